// Package config loads runtime settings from the environment plus an
// optional YAML file of seek defaults. The API token is only ever read from
// the environment or a flag; this program never writes it anywhere.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Token       string        `env:"LICHESS_TOKEN"`
	BaseURL     string        `env:"LICHESS_BASE_URL" envDefault:"https://lichess.org"`
	SeekTimeout time.Duration `env:"SEEK_TIMEOUT" envDefault:"60s"`
	SeekFile    string        `env:"SEEK_FILE"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT" envDefault:"console"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// SeekDefaults mirror the seek form fields. Defaults match the site's
// casual 5+0 quick pairing.
type SeekDefaults struct {
	Rated            bool   `yaml:"rated"`
	TimeMinutes      int    `yaml:"time"`
	IncrementSeconds int    `yaml:"increment"`
	Color            string `yaml:"color"`
	Variant          string `yaml:"variant"`
	RatingRange      string `yaml:"ratingRange"`
}

func DefaultSeek() SeekDefaults {
	return SeekDefaults{TimeMinutes: 5, Color: "random", Variant: "standard"}
}

// LoadSeekDefaults reads a YAML seek file, filling unset fields from the
// defaults. An empty path returns the defaults as-is.
func LoadSeekDefaults(path string) (SeekDefaults, error) {
	out := DefaultSeek()
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read seek file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parse seek file %s: %w", path, err)
	}
	return out, nil
}
