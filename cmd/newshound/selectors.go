package main

import (
	"fmt"

	"github.com/FranksOps/newshound/internal/serp"
	"github.com/spf13/cobra"
)

// NewSelectorsCmd creates the selectors command. It prints the selector
// table as YAML so it can be edited and passed back with --selectors.
func NewSelectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selectors",
		Short: "Print the page selector table as YAML",
		Long: `Print the XPath and CSS selectors used to drive the search page.

Without --file the built-in table is printed. With --file the file is loaded
over the defaults, validated and printed, which is a quick way to check an
override before a run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")

			sel := serp.DefaultSelectors()
			if path != "" {
				var err error
				if sel, err = serp.LoadSelectors(path); err != nil {
					return err
				}
			}

			out, err := sel.YAML()
			if err != nil {
				return fmt.Errorf("encode selectors: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringP("file", "f", "", "Selector YAML file to load over the defaults")
	return cmd
}
