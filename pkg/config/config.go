package config

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/samber/oops"

	"github.com/aquasecurity/ossaudit/pkg/utils"
)

const configFile = "config.toml"

// DefaultColumns are the report columns used when neither the config
// file nor the command line selects any.
var DefaultColumns = []string{"name", "version", "title"}

type Config struct {
	Username  string   `toml:"username"`
	Token     string   `toml:"token"`
	Columns   []string `toml:"columns"`
	IgnoreIDs []string `toml:"ignore_ids"`
}

func Path() string {
	return filepath.Join(utils.ConfigDir(), configFile)
}

// Read loads the configuration file. With an empty path the default
// location is used and its absence yields the zero config; an explicit
// path must exist. Any malformed file is a configuration error,
// surfaced before any network activity.
func Read(path string) (Config, error) {
	cfg := Config{}

	explicit := path != ""
	if !explicit {
		path = Path()
		if ok, _ := utils.Exists(path); !ok {
			cfg.Columns = DefaultColumns
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, oops.With("file_path", path).Wrapf(err, "config read error")
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = DefaultColumns
	}
	return cfg, nil
}
