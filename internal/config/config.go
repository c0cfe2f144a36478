// Package config loads docmerge settings from config files, DM_* environment
// variables and built-in defaults, in that order of precedence (env wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/steveyegge/docmerge/internal/debug"
)

// Project config lives at <root>/.docmerge/config.yaml.
const (
	DirName   = ".docmerge"
	FileName  = "config.yaml"
	EnvPrefix = "DM"
)

// Config keys.
const (
	KeyMergeStyle        = "merge.style"
	KeyMergeContextLines = "merge.context-lines"
	KeyConflictStrategy  = "conflict.strategy"
	KeyConflictRulesFile = "conflict.rules-file"
	KeyHistoryPath       = "history.path"
	KeyHistoryMode       = "history.mode"
	KeyHistoryLockWait   = "history.lock-timeout"
	KeyRenderColumnWidth = "render.column-width"
	KeyRenderContext     = "render.context"
	KeyBatchWorkers      = "batch.workers"
)

var v *viper.Viper

// Initialize loads configuration, discovering the config file by walking
// up from the working directory and then checking the user config dir.
func Initialize() error {
	return InitializeWithFile("")
}

// InitializeWithFile loads configuration from path, or discovers it when
// path is empty. A missing discovered file is not an error.
func InitializeWithFile(path string) error {
	v = viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	// DM_MERGE_STYLE -> merge.style, DM_HISTORY_LOCK_TIMEOUT -> history.lock-timeout
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		debug.Logf("config: no config file found, using defaults")
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	debug.Logf("config: loaded %s", path)
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyMergeStyle, "merge")
	v.SetDefault(KeyMergeContextLines, 3)
	v.SetDefault(KeyConflictStrategy, "manual")
	v.SetDefault(KeyConflictRulesFile, "")
	v.SetDefault(KeyHistoryPath, filepath.Join(DirName, "history.json"))
	v.SetDefault(KeyHistoryMode, "file")
	v.SetDefault(KeyHistoryLockWait, 10*time.Second)
	v.SetDefault(KeyRenderColumnWidth, 60)
	v.SetDefault(KeyRenderContext, 3)
	v.SetDefault(KeyBatchWorkers, runtime.NumCPU())
}

// findConfigFile returns the nearest .docmerge/config.yaml above the working
// directory, else the user-level file, else "".
func findConfigFile() string {
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; ; {
			candidate := filepath.Join(dir, DirName, FileName)
			if fileExists(candidate) {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "docmerge", FileName)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ConfigFileUsed returns the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a value for the rest of the process (flags use this).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns every resolved setting, for `dm config`.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// ResetForTesting drops the loaded configuration.
func ResetForTesting() {
	v = nil
}
