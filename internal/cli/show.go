package cli

import (
	"github.com/spf13/cobra"
)

func newShowCmd(provider *AppProvider) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatJSON, formatYAML); err != nil {
				return err
			}
			app, err := provider.Get()
			if err != nil {
				return err
			}
			doc, err := app.Store.Get(args[0])
			if err != nil {
				return err
			}
			if format == formatYAML {
				return writeYAML(app.Out, yamlValue(doc))
			}
			return writeJSON(app.Out, doc)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or yaml")
	return cmd
}
