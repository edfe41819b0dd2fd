// Package config loads SkillMeat's runtime configuration via viper,
// discovering it from a project file first, then a user config dir,
// then a home dir, with SKILLMEAT_-prefixed environment variables always
// taking precedence over whatever was loaded from disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/skillmeat/skillmeat/internal/obs"
)

var v *viper.Viper

// ManifestDirname is the project-level directory config.yaml lives
// under, mirroring the ".claude" deployment root's own config surface.
const ManifestDirname = ".skillmeat"

// Initialize sets up the viper singleton. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD looking for <project>/.skillmeat/config.yaml.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ManifestDirname, "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. XDG user config dir (~/.config/skillmeat/config.yaml).
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "skillmeat", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.skillmeat/config.yaml).
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".skillmeat", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("SKILLMEAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("verbose", false)
	v.SetDefault("db", "")
	v.SetDefault("collection-root", "")
	v.SetDefault("lock-timeout", "30s")
	v.SetDefault("deploy.concurrency", 4)
	v.SetDefault("deploy.overwrite", false)
	v.SetDefault("discovery.scan-mode", "auto")
	v.SetDefault("deployset.depth-limit", 20)
	v.SetDefault("log.level", "info")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		obs.Debugf("config: loaded from %s", v.ConfigFileUsed())
	} else {
		obs.Debugf("config: no config.yaml found; using defaults and environment variables")
	}

	return nil
}

// Source identifies where a configuration value came from.
type Source string

const (
	SourceDefault    Source = "default"
	SourceConfigFile Source = "config_file"
	SourceEnvVar     Source = "env_var"
	SourceFlag       Source = "flag"
)

// GetValueSource reports the source of key's effective value. Flag
// overrides are applied by the CLI layer, not detectable here.
func GetValueSource(key string) Source {
	if v == nil {
		return SourceDefault
	}
	envKey := "SKILLMEAT_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if os.Getenv(envKey) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	return v.GetStringSlice(key)
}

func GetStringMapString(key string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return v.GetStringMapString(key)
}

func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// DBPath resolves the cache database file location: the "db" config key
// if set, else <collection-root>/.skillmeat/cache.db.
func DBPath() string {
	if explicit := GetString("db"); explicit != "" {
		return explicit
	}
	root := GetString("collection-root")
	if root == "" {
		root = "."
	}
	return filepath.Join(root, ManifestDirname, "cache.db")
}
