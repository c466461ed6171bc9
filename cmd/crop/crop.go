package crop

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qualitylab/partclass/internal/analysis"
	"github.com/qualitylab/partclass/internal/classifier"
	"github.com/qualitylab/partclass/internal/conf"
)

// Command creates the crop command that extracts the region of interest of
// a single image.
func Command(settings *conf.Settings) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "crop [image] [output]",
		Short: "Crop a single image to the region of interest",
		Long: `Crop one image to the box given by --left_up and --right_down, resize it
to a square and write it to the output path. The output extension selects
the encoding (.png or JPEG).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if size <= 0 {
				schema, err := classifier.LookupSchema(settings.Model.Schema)
				if err != nil {
					return err
				}
				size = schema.InputSize
			}

			if err := analysis.CropFile(cmd.Context(), &settings.Crop, args[0], args[1], size); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%dx%d)\n", args[0], args[1], size, size)
			return nil
		},
	}

	if err := setupFlags(cmd, &size); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the crop command.
func setupFlags(cmd *cobra.Command, size *int) error {
	flags := cmd.Flags()
	conf.PointFlagP(flags, "left_up", "l", "Upper-left corner of the crop box, as x,y or given twice")
	conf.PointFlagP(flags, "right_down", "r", "Lower-right corner of the crop box, as x,y or given twice")
	flags.BoolP("normalise", "n", false, "Stretch each colour channel to the full range before cropping")
	flags.String("engine", "", "Crop engine: draw or gocv")
	flags.IntVar(size, "size", 0, "Output size in pixels (default: the schema input size)")

	bindings := []struct{ key, flag string }{
		{"crop.leftup", "left_up"},
		{"crop.rightdown", "right_down"},
		{"crop.normalise", "normalise"},
		{"crop.engine", "engine"},
	}
	for _, b := range bindings {
		if err := conf.MarkConfigFlag(flags, b.flag, b.key); err != nil {
			return err
		}
	}
	return nil
}
