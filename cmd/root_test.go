package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/errors"
)

func execute(t *testing.T, args ...string) (string, *conf.Settings, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	settings := &conf.Settings{}
	root := RootCommand(settings)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), settings, err
}

func TestConfigCommandWritesDefaults(t *testing.T) {
	out, _, err := execute(t, "config", "nested/config.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote nested/config.yaml")
	assert.FileExists(t, filepath.Join("nested", "config.yaml"))

	_, _, err = execute(t, "config")
	require.NoError(t, err)
}

func TestBatchRequiresInputFolder(t *testing.T) {
	_, _, err := execute(t, "batch")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestBatchFlagsReachSettings(t *testing.T) {
	_, settings, err := execute(t, "batch",
		"-i", "input", "-o", "out.csv", "-c", "-f", "processing",
		"-l", "10,10", "-r", "200,200", "-n", "--permissive", "--fail-fast",
		"--model", "missing.tflite", "--schema", "5class")

	// the model does not exist, so the run stops before any image
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryClassifierUnavailable))

	assert.Equal(t, "input", settings.Input.Folder)
	assert.Equal(t, "out.csv", settings.Output.CSV)
	assert.True(t, settings.Crop.Enabled)
	assert.Equal(t, "processing", settings.Crop.ProcessingFolder)
	assert.Equal(t, "10,10", settings.Crop.LeftUp)
	assert.Equal(t, "200,200", settings.Crop.RightDown)
	assert.True(t, settings.Crop.Normalise)
	assert.True(t, settings.Input.Permissive)
	assert.True(t, settings.Output.FailFast)
	assert.Equal(t, "missing.tflite", settings.Model.Path)
	assert.Equal(t, "5class", settings.Model.Schema)
}

func TestBatchInvalidBox(t *testing.T) {
	_, _, err := execute(t, "batch", "-i", "input", "-c", "-f", "p", "-l", "10")
	require.Error(t, err)

	var ve conf.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestBatchBoxCornersAsRepeatedFlags(t *testing.T) {
	_, settings, err := execute(t, "batch", "-i", "input", "-c", "-f", "p",
		"-l", "10", "-l", "20", "-r", "200", "-r", "210", "--model", "missing.tflite")
	assert.True(t, errors.IsCategory(err, errors.CategoryClassifierUnavailable))
	assert.Equal(t, "10,20", settings.Crop.LeftUp)
	assert.Equal(t, "200,210", settings.Crop.RightDown)
}

func TestBatchBoxCornerRejectsExtraValue(t *testing.T) {
	_, _, err := execute(t, "batch", "-i", "input", "-c", "-l", "1,2,3")
	require.Error(t, err)
	assert.ErrorContains(t, err, "exactly two integers")
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "unknown")
}
