package classify

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/qualitylab/partclass/internal/analysis"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/ledger"
)

// Command creates the classify command for a single image.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "classify [image]",
		Short: "Classify a single image",
		Long:  "Classify one image and print its probability per category, optionally appending it to a ledger.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := analysis.LoadClassifier(&settings.Model)
			if err != nil {
				return err
			}
			defer adapter.Close()

			pred, err := analysis.ClassifyFile(cmd.Context(), adapter, args[0], output)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, category := range pred.Categories {
				fmt.Fprintf(out, "%-8s %s\n", category, strconv.FormatFloat(pred.Probabilities[i], 'f', ledger.Decimals, 64))
			}
			top, _ := pred.Top()
			fmt.Fprintf(out, "prediction: %s\n", top)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output_csv", "o", "", "Append the prediction to this CSV ledger")

	return cmd
}
