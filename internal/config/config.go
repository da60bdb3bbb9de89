package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-rush-service/internal/engine"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// MessagesPerSecond caps inbound websocket messages per connection.
		MessagesPerSecond float64 `yaml:"messages_per_second"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		TTL       string `yaml:"ttl"`
		Retention string `yaml:"retention"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	AMQP struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"amqp"`
	Game struct {
		QuestionTime     string `yaml:"question_time"`
		MaxPoints        int    `yaml:"max_points"`
		TickInterval     string `yaml:"tick_interval"`
		SubmitTimeout    string `yaml:"submit_timeout"`
		LeaderboardLimit int    `yaml:"leaderboard_limit"`
	} `yaml:"game"`
	Catalog struct {
		TTL        string `yaml:"ttl"`
		BadgesFile string `yaml:"badges_file"`
	} `yaml:"catalog"`
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

// Engine converts the game section into round settings; blanks keep engine defaults.
func (c Config) Engine() engine.Config {
	return engine.Config{
		QuestionTime:  TTLDuration(c.Game.QuestionTime, engine.DefaultQuestionTime),
		MaxPoints:     c.Game.MaxPoints,
		TickInterval:  TTLDuration(c.Game.TickInterval, engine.DefaultTickInterval),
		SubmitTimeout: TTLDuration(c.Game.SubmitTimeout, 5*time.Second),
	}
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
