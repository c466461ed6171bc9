// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/qualitylab/partclass/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("model.path", "model/part_classifier.tflite")
	v.SetDefault("model.schema", "3class")
	v.SetDefault("model.threads", 0)

	v.SetDefault("input.folder", "")
	v.SetDefault("input.permissive", false)

	v.SetDefault("crop.enabled", false)
	v.SetDefault("crop.processingfolder", "")
	v.SetDefault("crop.leftup", "0,0")
	v.SetDefault("crop.rightdown", "0,0")
	v.SetDefault("crop.normalise", false)
	v.SetDefault("crop.engine", EngineDraw)

	v.SetDefault("output.csv", "results.csv")
	v.SetDefault("output.html", false)
	v.SetDefault("output.reportformat", ReportHTML)
	v.SetDefault("output.failfast", false)
	v.SetDefault("output.database.enabled", false)
	v.SetDefault("output.database.driver", DriverSQLite)
	v.SetDefault("output.database.path", "partclass.db")
	v.SetDefault("output.database.dsn", "")
	v.SetDefault("output.metrics.path", "")

	v.SetDefault("logging.level", logger.DefaultLogLevel)
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", logger.DefaultLogPath)
	v.SetDefault("logging.file.maxsize", logger.DefaultMaxSize)
	v.SetDefault("logging.file.maxbackups", logger.DefaultMaxBackups)
	v.SetDefault("logging.file.maxage", logger.DefaultMaxAge)
	v.SetDefault("logging.file.compress", false)
}

// Defaults returns a Settings populated only from default values.
func Defaults() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
