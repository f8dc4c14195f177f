package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRounds          = 50
	defaultQuestionsNormal = 9
	defaultQuestionsSpeed  = 20
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Contest Contest `yaml:"contest"`
}

// Contest describes the shape of the tracked contest.
type Contest struct {
	TeamName        string `yaml:"team_name"`
	Rounds          int    `yaml:"rounds"`
	QuestionsNormal int    `yaml:"questions_normal"`
	QuestionsSpeed  int    `yaml:"questions_speed"`
	Teams           int    `yaml:"teams"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ContestSettings returns the contest section with defaults for unset sizes.
func (c Config) ContestSettings() Contest {
	contest := c.Contest
	if contest.Rounds <= 0 {
		contest.Rounds = defaultRounds
	}
	if contest.QuestionsNormal <= 0 {
		contest.QuestionsNormal = defaultQuestionsNormal
	}
	if contest.QuestionsSpeed <= 0 {
		contest.QuestionsSpeed = defaultQuestionsSpeed
	}
	return contest
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
