package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// BindFlag binds a command line flag to a config key so that an explicitly
// set flag overrides the config file and environment.
func BindFlag(flags *pflag.FlagSet, key, flagName string) error {
	flag := flags.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf("flag %q is not defined", flagName)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("error binding flag %q to %q: %w", flagName, key, err)
	}
	return nil
}

// configKeyAnnotation marks a flag with the config key it overrides.
const configKeyAnnotation = "partclass_config_key"

// MarkConfigFlag records that flagName overrides key. Several commands may
// mark flags for the same key; BindMarkedFlags binds only those of the
// command being executed.
func MarkConfigFlag(flags *pflag.FlagSet, flagName, key string) error {
	if err := flags.SetAnnotation(flagName, configKeyAnnotation, []string{key}); err != nil {
		return fmt.Errorf("error marking flag %q: %w", flagName, err)
	}
	return nil
}

// BindMarkedFlags binds every flag of flags marked with MarkConfigFlag.
func BindMarkedFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if bindErr != nil || len(keys) == 0 {
			return
		}
		bindErr = BindFlag(flags, keys[0], f.Name)
	})
	return bindErr
}

// pointValue is a flag value holding one pixel coordinate. It takes "x,y" in
// a single occurrence or x and y as two occurrences of the flag, and its
// string form is the "x,y" the config file uses.
type pointValue struct {
	coords []int
}

func (p *pointValue) String() string {
	parts := make([]string, len(p.coords))
	for i, c := range p.coords {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

func (p *pointValue) Set(s string) error {
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		v, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("coordinate %q is not an integer", field)
		}
		if v < 0 {
			return fmt.Errorf("coordinate %d must not be negative", v)
		}
		if len(p.coords) == 2 {
			return fmt.Errorf("a point takes exactly two integers, got more than %s", p)
		}
		p.coords = append(p.coords, v)
	}
	return nil
}

func (p *pointValue) Type() string { return "x,y" }

// PointFlagP defines a flag holding one x,y pixel coordinate.
func PointFlagP(flags *pflag.FlagSet, name, shorthand, usage string) {
	flags.VarP(&pointValue{}, name, shorthand, usage)
}

// WriteDefaultConfig writes the default settings as YAML to path. An existing
// file is only replaced when overwrite is set.
func WriteDefaultConfig(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	settings, err := Defaults()
	if err != nil {
		return fmt.Errorf("error building default settings: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling default settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating directories for config file: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}
