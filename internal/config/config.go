package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

// FileNames are the config file names looked up in each directory, in
// order of preference.
func FileNames() []string {
	return []string{"portfolio.toml", ".portfolio.toml"}
}

// Override replaces one setting read from the file. Key is the TOML path
// of the setting, such as "server.addr" or "build.parallel".
type Override struct {
	Key   string
	Value any
}

// Set returns an override for key.
func Set(key string, value any) Override {
	return Override{Key: key, Value: value}
}

// Load reads portfolio.toml from configPath, or from the nearest parent
// directory when configPath is empty. Overrides are layered over the file
// before defaults and validation, so a bad flag fails like a bad file.
// Relative directories in the result are resolved against the directory
// holding the config file.
func Load(configPath string, overrides ...Override) (*Config, error) {
	path, err := locate(configPath)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if loadErr := k.Load(file.Provider(path), toml.Parser()); loadErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", path).
			Hint("Fix TOML syntax and required fields in your config").
			Wrapf(loadErr, "loading config from %q", path)
	}

	for _, o := range overrides {
		if setErr := k.Set(o.Key, o.Value); setErr != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("key", o.Key).
				Wrapf(setErr, "overriding %s", o.Key)
		}
	}

	cfg := &Config{ConfigDir: filepath.Dir(path)}
	if unmarshalErr := k.Unmarshal("", cfg); unmarshalErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", path).
			Hint("Fix config structure to match the portfolio.toml schema").
			Wrapf(unmarshalErr, "decoding config from %q", path)
	}

	cfg.ApplyDefaults()
	if valErr := cfg.Validate(); valErr != nil {
		return nil, valErr
	}

	cfg.resolvePaths()
	return cfg, nil
}

// resolvePaths makes every directory the build and the server touch
// absolute.
func (c *Config) resolvePaths() {
	c.ContentDir = c.ContentPath()
	c.Output = c.OutputPath()
	c.CacheDir = c.resolve(c.CacheDir)
}

// FindConfigFile walks up from the working directory to the first
// directory holding a config file.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", oops.Wrapf(err, "getting working directory")
	}

	for {
		for _, name := range FileNames() {
			candidate := filepath.Join(dir, name)
			ok, statErr := isFile(candidate)
			if statErr != nil {
				return "", statErr
			}
			if ok {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", oops.
				Code("CONFIG_NOT_FOUND").
				Hint("Run 'portfolio init' to create a config file").
				Errorf("no %s found in any parent directory", strings.Join(FileNames(), " or "))
		}
		dir = parent
	}
}

// locate returns the absolute path of the config file to load.
func locate(configPath string) (string, error) {
	if configPath == "" {
		found, err := FindConfigFile()
		if err != nil {
			return "", err
		}
		configPath = found
	} else {
		ok, err := isFile(configPath)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", oops.
				Code("CONFIG_NOT_FOUND").
				With("path", configPath).
				Hint("Create the file or pass a valid --config path").
				Errorf("config file %q does not exist", configPath)
		}
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", oops.Wrapf(err, "resolving absolute config path")
	}

	return abs, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, oops.Wrapf(err, "checking config file %q", path)
	default:
		return !info.IsDir(), nil
	}
}
