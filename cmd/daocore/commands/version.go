package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/go-dao/internal/ui"
	"github.com/satishbabariya/go-dao/internal/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionShort {
			fmt.Fprintln(ui.Out, info.String())
			return nil
		}
		fmt.Fprintln(ui.Out, info.FullString())
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print a single line")

	rootCmd.AddCommand(versionCmd)
}
