package cli

import (
	"fmt"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/spf13/cobra"
)

func newKeysCmd(provider *AppProvider) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List stored keys grouped by prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			app, err := provider.Get()
			if err != nil {
				return err
			}
			groups := app.Store.Grouped()

			switch format {
			case formatJSON:
				return writeJSON(app.Out, map[string]any{"keys": app.Store.Keys(), "groups": groups})
			case formatYAML:
				return writeYAML(app.Out, map[string]any{"keys": app.Store.Keys(), "groups": groups})
			}

			if len(groups) == 0 {
				fmt.Fprintln(app.Out, "no documents")
				return nil
			}
			for _, p := range document.SortedPrefixes(groups) {
				fmt.Fprintf(app.Out, "%s (%d)\n", p, len(groups[p]))
				for _, k := range groups[p] {
					fmt.Fprintf(app.Out, "  %s\n", k)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}
