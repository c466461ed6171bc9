package batch

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qualitylab/partclass/internal/analysis"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/pkg/spinner"
)

// Command creates the batch command that crops and classifies every image
// of a folder into the result ledger.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify a folder of images",
		Long: `Enumerate the images of the input folder, optionally crop each one to the
given box into the processing folder, classify them and append one row per
image to the CSV ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings) error {
	if settings.Input.Folder == "" {
		return errors.Newf("--input_folder is required").
			Category(errors.CategoryValidation).
			Build()
	}

	adapter, err := analysis.LoadClassifier(&settings.Model)
	if err != nil {
		return err
	}
	defer adapter.Close()

	var opts []analysis.Option
	var progress *spinner.Spinner
	if isTerminal(os.Stderr) && !settings.Debug {
		progress = spinner.NewSpinner(os.Stderr)
		opts = append(opts, analysis.WithProgress(progress.Progress))
	}

	pipeline, cleanup, err := analysis.NewFromSettings(settings, adapter, opts...)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := pipeline.Run(cmd.Context())
	if progress != nil {
		progress.Cleanup()
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	for _, f := range summary.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s (%s): %v\n", f.Path, f.Stage, f.Err)
	}
	if summary.ReportPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "report %s\n", summary.ReportPath)
	}
	if err != nil {
		return err
	}
	return summary.Err()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// setupFlags configures flags specific to the batch command.
func setupFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.StringP("input_folder", "i", "", "Folder holding the images to classify")
	flags.StringP("output_csv", "o", "", "CSV ledger the predictions are appended to (default results.csv)")
	flags.BoolP("crop", "c", false, "Crop the images before classification")
	flags.StringP("processing_folder", "f", "", "Folder the cropped images are written to")
	conf.PointFlagP(flags, "left_up", "l", "Upper-left corner of the crop box, as x,y or given twice")
	conf.PointFlagP(flags, "right_down", "r", "Lower-right corner of the crop box, as x,y or given twice")
	flags.BoolP("normalise", "n", false, "Stretch each colour channel to the full range before cropping")
	flags.Bool("html", false, "Render a report next to the ledger")
	flags.Bool("permissive", false, "Also accept .jpeg and .png images")
	flags.Bool("fail-fast", false, "Stop at the first image that fails")

	bindings := []struct{ key, flag string }{
		{"input.folder", "input_folder"},
		{"output.csv", "output_csv"},
		{"crop.enabled", "crop"},
		{"crop.processingfolder", "processing_folder"},
		{"crop.leftup", "left_up"},
		{"crop.rightdown", "right_down"},
		{"crop.normalise", "normalise"},
		{"output.html", "html"},
		{"input.permissive", "permissive"},
		{"output.failfast", "fail-fast"},
	}
	for _, b := range bindings {
		if err := conf.MarkConfigFlag(flags, b.flag, b.key); err != nil {
			return err
		}
	}
	return nil
}
