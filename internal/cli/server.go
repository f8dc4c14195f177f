package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"trivia-tracker/internal/app"
	"trivia-tracker/internal/config"
	"trivia-tracker/internal/infra/memory"
	pgarchive "trivia-tracker/internal/infra/postgres"
	redisstore "trivia-tracker/internal/infra/redis"
	transport "trivia-tracker/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the contest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := migrateArchive(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	restored, err := service.Restore(ctx)
	if err != nil {
		return err
	}
	log.Printf("restored %d rounds for team %q", restored, cfg.ContestSettings().TeamName)

	wsHandler := transport.NewWSHandler(service)
	syncHandler := transport.NewSyncHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/sync", syncHandler.ServeSync)
	mux.HandleFunc("/terminals", syncHandler.ServeTerminals)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting trivia tracker on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildService wires the round store and terminal roster from config: Redis
// in front of Postgres when both are configured, memory otherwise.
func buildService(ctx context.Context, cfg config.Config) (*app.ContestService, func(), error) {
	settings := contestSettings(cfg)
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var archive redisstore.Backing
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, pool.Close)
		archive = pgarchive.NewRoundArchive(pool)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var store app.RoundStore
	switch {
	case redisClient != nil:
		store = redisstore.NewRoundStore(redisClient, archive, redisTTL)
	case archive != nil:
		store = archive
	default:
		store = memory.NewRoundStore()
	}

	var terminals app.TerminalRegistry
	if redisClient != nil {
		terminals = redisstore.NewTerminalRegistry(redisClient, settings.TeamName, redisTTL)
	} else {
		terminals = memory.NewTerminalRegistry()
	}

	return app.NewContestService(app.NewTrivia(settings), store, terminals), cleanup, nil
}

func contestSettings(cfg config.Config) app.Settings {
	c := cfg.ContestSettings()
	return app.Settings{
		TeamName:        c.TeamName,
		Rounds:          c.Rounds,
		QuestionsNormal: c.QuestionsNormal,
		QuestionsSpeed:  c.QuestionsSpeed,
		Teams:           c.Teams,
	}
}
