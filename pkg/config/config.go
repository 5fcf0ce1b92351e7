// Package config resolves the cache root directory and optional tunable
// defaults (spec §2, §7). Resolution follows the same "environment
// variable, then XDG fallback" shape the teacher uses for its own data
// directory, and file loading follows the teacher's "absent file is not an
// error" convention for optional configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// cacheRootEnvironmentVariable overrides the cache root entirely, and
	// must be an absolute path (spec §2).
	cacheRootEnvironmentVariable = "DUNE_CACHE_ROOT"
	// xdgCacheHomeEnvironmentVariable is the fallback base directory when
	// DUNE_CACHE_ROOT is unset.
	xdgCacheHomeEnvironmentVariable = "XDG_CACHE_HOME"
	// defaultCacheHomeSubdirectory is appended to the home directory when
	// neither environment variable is set.
	defaultCacheHomeSubdirectory = ".cache"

	// cacheRootRelativeDune and cacheRootRelativeDB are the path components
	// appended beneath the resolved cache home to arrive at the store root.
	cacheRootRelativeDune = "dune"
	cacheRootRelativeDB   = "db"

	// configurationFileName is the optional defaults file read from inside
	// the cache root.
	configurationFileName = "config.yaml"
)

// Defaults holds optional tunables normally left to their zero value
// (meaning "use the built-in default"); an absent or empty configuration
// file is not an error.
type Defaults struct {
	// TrimPeriod, if non-zero, is the interval, in seconds, at which a
	// long-running caller should run an automatic Trim pass.
	TrimPeriod int `yaml:"trim-period-seconds"`
	// TrimSizeLimitBytes, if non-zero, is the default Size goal used by an
	// automatic Trim pass.
	TrimSizeLimitBytes uint64 `yaml:"trim-size-limit-bytes"`
}

// ResolveRoot determines the cache root directory. If DUNE_CACHE_ROOT is
// set, it is used verbatim and must be absolute; otherwise the root is
// $XDG_CACHE_HOME/dune/db, falling back to $HOME/.cache/dune/db.
func ResolveRoot() (string, error) {
	if root := os.Getenv(cacheRootEnvironmentVariable); root != "" {
		if !filepath.IsAbs(root) {
			return "", errors.Errorf("%s must be an absolute path, got %q", cacheRootEnvironmentVariable, root)
		}
		return root, nil
	}

	cacheHome := os.Getenv(xdgCacheHomeEnvironmentVariable)
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "unable to determine home directory")
		}
		cacheHome = filepath.Join(home, defaultCacheHomeSubdirectory)
	}

	return filepath.Join(cacheHome, cacheRootRelativeDune, cacheRootRelativeDB), nil
}

// LoadDefaults loads optional tunable defaults from root's configuration
// file. A missing file yields the zero-value Defaults and no error, since
// every tunable has a sensible built-in default (spec §2's "configuration
// is optional" contract).
func LoadDefaults(root string) (Defaults, error) {
	var defaults Defaults
	path := filepath.Join(root, configurationFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return defaults, errors.Wrap(err, "unable to load configuration file")
	}

	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, errors.Wrap(err, "unable to parse configuration file")
	}
	return defaults, nil
}
