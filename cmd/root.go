package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qualitylab/partclass/cmd/batch"
	"github.com/qualitylab/partclass/cmd/classify"
	configcmd "github.com/qualitylab/partclass/cmd/config"
	"github.com/qualitylab/partclass/cmd/crop"
	"github.com/qualitylab/partclass/internal/buildinfo"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/logger"
)

// RootCommand creates and returns the root command. Settings are loaded
// into settings before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "partclass",
		Short:         "Crop and classify photographs of manufactured parts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildinfo.Current().String(),
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	configCmd := configcmd.Command()
	rootCmd.AddCommand(
		batch.Command(settings),
		classify.Command(settings),
		crop.Command(settings),
		configCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Writing a default config must work without a valid one
		if cmd.Name() == configCmd.Name() {
			return nil
		}
		if err := conf.BindMarkedFlags(cmd.Flags()); err != nil {
			return err
		}
		return initialize(settings, configFile)
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging before any
// subcommand runs.
func initialize(settings *conf.Settings, configFile string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.Level = string(logger.LogLevelDebug)
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	cobra.OnFinalize(func() { _ = central.Close() })

	conf.GetLogger().Debug("Configuration loaded",
		logger.String("version", buildinfo.Current().GetVersion()),
		logger.String("model_path", settings.Model.Path),
		logger.String("schema", settings.Model.Schema),
		logger.String("log_level", settings.Logging.Level))
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(configFile, "config", "", "Path to the config file (default ./config.yaml or ~/.config/partclass/config.yaml)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("model", "", "Path to the .tflite model file")
	flags.String("schema", "", "Category schema: 3class or 5class")

	for key, name := range map[string]string{
		"debug":        "debug",
		"model.path":   "model",
		"model.schema": "schema",
	} {
		if err := conf.MarkConfigFlag(flags, name, key); err != nil {
			return err
		}
	}
	return nil
}
