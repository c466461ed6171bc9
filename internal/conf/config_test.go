package conf

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate resets viper and moves into an empty directory so that neither a
// stray config.yaml nor a .env file leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Schema3Class, settings.Model.Schema)
	assert.Equal(t, "results.csv", settings.Output.CSV)
	assert.Equal(t, EngineDraw, settings.Crop.Engine)
	assert.Equal(t, ReportHTML, settings.Output.ReportFormat)
	assert.False(t, settings.Crop.Enabled)
	assert.Equal(t, "info", settings.Logging.Level)
	assert.Same(t, settings, GetSettings())
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)

	cfg := []byte(`
model:
  schema: 5class
crop:
  enabled: true
  processingfolder: processed
  leftup: "10,20"
  rightdown: "200,220"
output:
  csv: out/parts.csv
`)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, cfg, 0o644))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Schema5Class, settings.Model.Schema)
	assert.True(t, settings.Crop.Enabled)
	assert.Equal(t, "processed", settings.Crop.ProcessingFolder)
	assert.Equal(t, "10,20", settings.Crop.LeftUp)
	assert.Equal(t, "out/parts.csv", settings.Output.CSV)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PARTCLASS_MODEL_SCHEMA", "5class")

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Schema5Class, settings.Model.Schema)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PARTCLASS_OUTPUT_CSV=fromenv.csv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("PARTCLASS_OUTPUT_CSV") })

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fromenv.csv", settings.Output.CSV)
}

func TestLoadFlagOverride(t *testing.T) {
	isolate(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output_csv", "", "")
	require.NoError(t, BindFlag(flags, "output.csv", "output_csv"))
	require.NoError(t, flags.Parse([]string{"--output_csv", "flag.csv"}))

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "flag.csv", settings.Output.CSV)

	assert.Error(t, BindFlag(flags, "output.csv", "missing"))
}

func TestBindMarkedFlagsOnlyExecutingCommand(t *testing.T) {
	isolate(t)

	batch := pflag.NewFlagSet("batch", pflag.ContinueOnError)
	batch.String("left_up", "", "")
	require.NoError(t, MarkConfigFlag(batch, "left_up", "crop.leftup"))

	crop := pflag.NewFlagSet("crop", pflag.ContinueOnError)
	crop.String("left_up", "", "")
	require.NoError(t, MarkConfigFlag(crop, "left_up", "crop.leftup"))

	require.NoError(t, batch.Parse([]string{"--left_up", "5,6"}))
	require.NoError(t, BindMarkedFlags(batch))

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "5,6", settings.Crop.LeftUp)

	assert.Error(t, MarkConfigFlag(crop, "missing", "crop.leftup"))
}

func TestLoadInvalidSettings(t *testing.T) {
	isolate(t)
	t.Setenv("PARTCLASS_MODEL_SCHEMA", "7class")

	_, err := Load("")
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 1)
}

func TestWriteDefaultConfig(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path, false))
	assert.Error(t, WriteDefaultConfig(path, false), "existing file must not be replaced")
	require.NoError(t, WriteDefaultConfig(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var written Settings
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, Schema3Class, written.Model.Schema)
	assert.Equal(t, "results.csv", written.Output.CSV)

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, written.Output, settings.Output)
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    image.Point
		wantErr bool
	}{
		{"10,20", image.Pt(10, 20), false},
		{" 3 , 4 ", image.Pt(3, 4), false},
		{"0,0", image.Pt(0, 0), false},
		{"10", image.Point{}, true},
		{"a,1", image.Point{}, true},
		{"1,b", image.Point{}, true},
		{"-1,5", image.Point{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointFlag(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{"single occurrence", []string{"-l", "10,20"}, "10,20", ""},
		{"two occurrences", []string{"-l", "10", "-l", "20"}, "10,20", ""},
		{"spaces trimmed", []string{"--left_up", " 3 , 4 "}, "3,4", ""},
		{"three values", []string{"-l", "1,2,3"}, "", "exactly two integers"},
		{"third occurrence", []string{"-l", "1", "-l", "2", "-l", "3"}, "", "exactly two integers"},
		{"not an integer", []string{"-l", "a,1"}, "", "not an integer"},
		{"negative", []string{"-l", "-1,5"}, "", "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("batch", pflag.ContinueOnError)
			PointFlagP(flags, "left_up", "l", "")

			err := flags.Parse(tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, flags.Lookup("left_up").Value.String())
		})
	}
}

func TestPointFlagReachesSettings(t *testing.T) {
	isolate(t)

	flags := pflag.NewFlagSet("batch", pflag.ContinueOnError)
	PointFlagP(flags, "left_up", "l", "")
	require.NoError(t, MarkConfigFlag(flags, "left_up", "crop.leftup"))

	require.NoError(t, flags.Parse([]string{"-l", "7", "-l", "8"}))
	require.NoError(t, BindMarkedFlags(flags))

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7,8", settings.Crop.LeftUp)
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		s, err := Defaults()
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
		errs   int
	}{
		{"defaults", func(*Settings) {}, 0},
		{"crop without folder", func(s *Settings) { s.Crop.Enabled = true }, 1},
		{"crop bad point", func(s *Settings) {
			s.Crop.Enabled = true
			s.Crop.ProcessingFolder = "p"
			s.Crop.LeftUp = "x"
		}, 1},
		{"unknown engine", func(s *Settings) { s.Crop.Engine = "magick" }, 1},
		{"mysql without dsn", func(s *Settings) {
			s.Output.Database.Enabled = true
			s.Output.Database.Driver = DriverMySQL
		}, 1},
		{"unknown driver", func(s *Settings) {
			s.Output.Database.Enabled = true
			s.Output.Database.Driver = "postgres"
		}, 1},
		{"bad report format and level", func(s *Settings) {
			s.Output.ReportFormat = "pdf"
			s.Logging.Level = "loud"
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.errs == 0 {
				assert.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, tt.errs)
		})
	}
}
