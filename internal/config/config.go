package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-core-fx/config"
)

type gitConfig struct {
	RepoPath string        `koanf:"repo_path"`
	Remote   string        `koanf:"remote"`
	Timeout  time.Duration `koanf:"timeout"`

	Tagger taggerConfig `koanf:"tagger"`
}

type taggerConfig struct {
	Name  string `koanf:"name"`
	Email string `koanf:"email"`
}

type tagsConfig struct {
	Environments []string `koanf:"environments"`
}

type moverConfig struct {
	MaxRetries     uint64        `koanf:"max_retries"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	LockTimeout    time.Duration `koanf:"lock_timeout"`
}

type rollbackConfig struct {
	PreferUntagged bool `koanf:"prefer_untagged"`
}

type Config struct {
	Git      gitConfig      `koanf:"git"`
	Tags     tagsConfig     `koanf:"tags"`
	Mover    moverConfig    `koanf:"mover"`
	Rollback rollbackConfig `koanf:"rollback"`
}

func Default() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		Git: gitConfig{
			RepoPath: ".",
			Timeout:  30 * time.Second,
			Tagger: taggerConfig{
				Name:  "tagwarden",
				Email: "tagwarden@localhost",
			},
		},

		Tags: tagsConfig{
			Environments: []string{},
		},

		Mover: moverConfig{
			MaxRetries:     4,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			LockTimeout:    10 * time.Second,
		},
	}
}

func New() (Config, error) {
	cfg := Default()

	options := []config.Option{}
	if yamlPath := os.Getenv("CONFIG_PATH"); yamlPath != "" {
		options = append(options, config.WithLocalYAML(yamlPath))
	}

	if err := config.Load(&cfg, options...); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}
