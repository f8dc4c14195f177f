package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"trivia-tracker/internal/app"
	"trivia-tracker/internal/domain"
	pgarchive "trivia-tracker/internal/infra/postgres"
	pgmigrations "trivia-tracker/internal/infra/postgres/migrations"
	infraredis "trivia-tracker/internal/infra/redis"
	"trivia-tracker/internal/mirror"
)

func TestContestSurvivesRestartEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	archive := pgarchive.NewRoundArchive(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	service := newService(redisClient, archive)
	m := mirror.New()
	m.Apply(service.Poll(ctx, m.Versions()))

	mustDo(t, service.OpenQuestion(ctx, 1, 1, 10, "Largest ocean?"))
	mustDo(t, service.ProposeAnswer(ctx, 1, 1, "Pacific", "alice", 5))
	mustDo(t, service.ProposeAnswer(ctx, 1, 1, "pacific ", "bob", 3))
	mustDo(t, service.CallIn(ctx, 1, 1, "carol"))
	mustDo(t, service.MarkCorrect(ctx, 1, 1, "carol"))
	mustDo(t, service.SetStandings(ctx, 1, []domain.Standing{{Team: "Team", Points: 10, Place: 1}}))

	result := service.Poll(ctx, m.Versions())
	if len(result.Rounds) != 1 {
		t.Fatalf("expected one changed round, got %d", len(result.Rounds))
	}
	m.Apply(result)
	r1, _ := m.Round(1)
	if r1.Answers[1].Status != domain.StatusDuplicate || !r1.Questions[0].Correct {
		t.Fatalf("unexpected round state %+v", r1)
	}

	// Drop the cache so the restart has to read Postgres.
	if err := redisClient.FlushAll(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	restarted := newService(redisClient, archive)
	n, err := restarted.Restore(ctx)
	if err != nil || n != 1 {
		t.Fatalf("restore: n=%d err=%v", n, err)
	}
	if got := restarted.Poll(ctx, m.Versions()); len(got.Rounds) != 0 {
		t.Fatalf("restarted server should match the client mirror, got %d changed", len(got.Rounds))
	}
}

func newService(client *goredis.Client, archive *pgarchive.RoundArchive) *app.ContestService {
	trivia := app.NewTrivia(app.Settings{TeamName: "Team", Rounds: 3, QuestionsNormal: 4, QuestionsSpeed: 6})
	store := infraredis.NewRoundStore(client, archive, 5*time.Minute)
	terminals := infraredis.NewTerminalRegistry(client, "Team", 5*time.Minute)
	return app.NewContestService(trivia, store, terminals)
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
