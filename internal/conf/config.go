// config.go: settings struct and loading of the partclass configuration.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/qualitylab/partclass/internal/logger"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. PARTCLASS_MODEL_PATH for model.path.
const EnvPrefix = "PARTCLASS"

// ModelSettings selects the classifier weights and category schema.
type ModelSettings struct {
	Path    string `mapstructure:"path" yaml:"path"`       // path to the .tflite weight file
	Schema  string `mapstructure:"schema" yaml:"schema"`   // 3class or 5class
	Threads int    `mapstructure:"threads" yaml:"threads"` // interpreter threads, 0 for all cores
}

// InputSettings controls image enumeration.
type InputSettings struct {
	Folder     string `mapstructure:"folder" yaml:"folder"`
	Permissive bool   `mapstructure:"permissive" yaml:"permissive"` // also accept .jpeg and .png
}

// CropSettings controls the crop stage of the pipeline.
type CropSettings struct {
	Enabled          bool   `mapstructure:"enabled" yaml:"enabled"`
	ProcessingFolder string `mapstructure:"processingfolder" yaml:"processingfolder"`
	LeftUp           string `mapstructure:"leftup" yaml:"leftup"`       // "x,y"
	RightDown        string `mapstructure:"rightdown" yaml:"rightdown"` // "x,y"
	Normalise        bool   `mapstructure:"normalise" yaml:"normalise"`
	Engine           string `mapstructure:"engine" yaml:"engine"` // draw or gocv
}

// DatabaseSettings configures the optional results database mirror.
type DatabaseSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Driver  string `mapstructure:"driver" yaml:"driver"` // sqlite or mysql
	Path    string `mapstructure:"path" yaml:"path"`     // sqlite database file
	DSN     string `mapstructure:"dsn" yaml:"dsn"`       // mysql data source name
}

// MetricsSettings configures the Prometheus textfile export.
type MetricsSettings struct {
	Path string `mapstructure:"path" yaml:"path"` // empty disables the export
}

// OutputSettings controls where results go.
type OutputSettings struct {
	CSV          string           `mapstructure:"csv" yaml:"csv"`
	HTML         bool             `mapstructure:"html" yaml:"html"`
	ReportFormat string           `mapstructure:"reportformat" yaml:"reportformat"` // html or text
	FailFast     bool             `mapstructure:"failfast" yaml:"failfast"`
	Database     DatabaseSettings `mapstructure:"database" yaml:"database"`
	Metrics      MetricsSettings  `mapstructure:"metrics" yaml:"metrics"`
}

// Settings contains all configuration options for partclass.
type Settings struct {
	Debug   bool                 `mapstructure:"debug" yaml:"debug"`
	Model   ModelSettings        `mapstructure:"model" yaml:"model"`
	Input   InputSettings        `mapstructure:"input" yaml:"input"`
	Crop    CropSettings         `mapstructure:"crop" yaml:"crop"`
	Output  OutputSettings       `mapstructure:"output" yaml:"output"`
	Logging logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file, the .env file and environment
// variables, in increasing order of precedence, and validates the result.
// Flags bound with BindFlag take precedence over all of them.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and reads the configuration sources.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := loadDotEnv(); err != nil {
		return err
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		GetLogger().Debug("Config file loaded", logger.String("path", configFile))
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Running from defaults, flags and environment alone is fine
			GetLogger().Debug("No config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("Config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// loadDotEnv loads a .env file from the working directory, if present.
// Variables already set in the environment are not overridden.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "partclass"))
	}
	return paths
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
