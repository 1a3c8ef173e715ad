package cli

import (
	"fmt"

	"github.com/jsonstash/jsonstash/internal/document/diff"
	"github.com/spf13/cobra"
)

func newDiffCmd(provider *AppProvider) *cobra.Command {
	var format, color string
	cmd := &cobra.Command{
		Use:   "diff <key-a> <key-b>",
		Short: "Compare two stored documents",
		Long: `Compare two stored documents structurally. Array order is ignored.

Exit status is 0 when the documents are equal, 1 when they differ and 2 on
errors.

Examples:
  stashctl diff user_20240102_030405 user_20240102_030512
  stashctl diff --format yaml a_1 a_2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			app, err := provider.Get()
			if err != nil {
				return err
			}
			colored, err := useColor(color, app.Out)
			if err != nil {
				return err
			}

			a, err := app.Store.Get(args[0])
			if err != nil {
				return err
			}
			b, err := app.Store.Get(args[1])
			if err != nil {
				return err
			}
			res := diff.Compare(a, b)

			switch format {
			case formatJSON:
				err = writeJSON(app.Out, newDiffReport(args[0], args[1], res))
			case formatYAML:
				err = writeYAML(app.Out, newDiffReport(args[0], args[1], res))
			default:
				if err = res.WriteText(app.Out, colored); err == nil && !res.Empty() {
					_, err = fmt.Fprintln(app.Out, res.Summary())
				}
			}
			if err != nil {
				return err
			}
			if !res.Empty() {
				return errDifferent
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, json or yaml")
	cmd.Flags().StringVar(&color, "color", "auto", "Colorize text output: auto, always or never")
	return cmd
}
