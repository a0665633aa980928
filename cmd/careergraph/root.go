package main

import (
	"github.com/spf13/cobra"
)

func rootCMD() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "careergraph",
		Short:         "Generate career learning roadmaps with an LLM pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.json when present)")

	root.AddCommand(serveCMD(&cfgPath), generateCMD(&cfgPath), exportCMD(&cfgPath))
	return root
}
