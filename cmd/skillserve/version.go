package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillserve/pkg/presenter"
	"github.com/jingkaihe/skillserve/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		info := version.Get()

		if asJSON {
			out, err := info.JSON()
			if err != nil {
				presenter.Error(err, "failed to render version info")
				return
			}
			fmt.Println(out)
			return
		}
		fmt.Println(info.String())
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output version information as JSON")
}
