package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/toolme/pkg/config"
)

func newVersionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit, and build time of toolmectl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), config.GetBuildInfo())
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.VersionString("toolmectl"))
			return nil
		},
	}
}
