package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vietddude/launcher/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("launcher %s (commit %s, %s)\n", info.Version, info.Commit, info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
