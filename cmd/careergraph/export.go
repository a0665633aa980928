package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/careergraph/config"
	"github.com/mohammad-safakhou/careergraph/internal/export"
	"github.com/mohammad-safakhou/careergraph/internal/validation"
	"github.com/mohammad-safakhou/careergraph/models"
)

func exportCMD(cfgPath *string) *cobra.Command {
	var outDir string
	var exp = &cobra.Command{
		Use:   "export <roadmap.json>",
		Short: "Render a saved roadmap JSON document as standalone HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var rm models.Roadmap
			if err := json.Unmarshal(raw, &rm); err != nil {
				return fmt.Errorf("decode roadmap: %w", err)
			}
			if err := validation.Struct(rm); err != nil {
				return fmt.Errorf("invalid roadmap: %w", err)
			}

			dir := outDir
			if dir == "" {
				cfg, err := config.LoadConfig(*cfgPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dir = cfg.Server.ExportDir
			}
			path, err := export.WriteFile(dir, rm)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	exp.Flags().StringVar(&outDir, "out", "", "output directory (default server.export_dir)")
	return exp
}
