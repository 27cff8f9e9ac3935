package compile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/mofc/internal/repository"
)

// DefaultConfigFile is the configuration file looked up in the working
// directory when no --config flag is given.
const DefaultConfigFile = ".mofc.yaml"

// Config is the content of a .mofc.yaml file.
type Config struct {
	// Namespace receives declarations that are not preceded by a
	// namespace pragma.
	Namespace   string   `yaml:"namespace"`
	SearchPaths []string `yaml:"search_paths"`
	Batch       bool     `yaml:"batch"`
	// Store is the SQLite database compiled namespaces are saved to.
	// Empty disables persistence.
	Store string `yaml:"store"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{Namespace: repository.DefaultNamespace}
}

// LoadConfig reads the configuration at path. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("parsing %s: %w", path, err)
	}
	if config.Namespace == "" {
		config.Namespace = repository.DefaultNamespace
	}
	return config, nil
}

// WriteConfig writes config to path, failing if the file already exists.
func WriteConfig(path string, config Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("marshaling configuration: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
