package core

import (
	"os"
	"strings"

	manifest "github.com/joeydtaylor/certipop/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
)

// Env keys that override the [connector] block so credentials can stay out
// of the manifest file.
const (
	EnvURL            = "APIMS_URL"
	EnvUsername       = "APIMS_USERNAME"
	EnvPassword       = "APIMS_PASSWORD"
	EnvMunicipalityID = "APIMS_MUNICIPALITY_ID"
)

func LoadConfig(path string) (manifest.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manifest.Config{}, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes a manifest, applies env overrides and validates it.
func ParseConfig(b []byte) (manifest.Config, error) {
	var cfg manifest.Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return manifest.Config{}, err
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *manifest.Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Connector.URL, EnvURL)
	set(&cfg.Connector.Username, EnvUsername)
	set(&cfg.Connector.Password, EnvPassword)
	set(&cfg.Connector.MunicipalityID, EnvMunicipalityID)
}
