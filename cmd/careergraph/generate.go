package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/careergraph/internal/agent/core"
	"github.com/mohammad-safakhou/careergraph/internal/export"
)

func generateCMD(cfgPath *string) *cobra.Command {
	var htmlOut bool
	var outDir string
	var generate = &cobra.Command{
		Use:   "generate <query>",
		Short: "Run the pipeline once and print the roadmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// keep stdout clean for the roadmap JSON
			a, err := buildApp(ctx, *cfgPath, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = a.Close(closeCtx)
			}()

			if a.cfg.General.DefaultTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.General.DefaultTimeout)
				defer cancel()
			}

			state := a.orch.Run(ctx, args[0])
			if err := outcomeError(state); err != nil {
				return err
			}
			rm := state.Roadmap(time.Now())

			if htmlOut {
				dir := outDir
				if dir == "" {
					dir = a.cfg.Server.ExportDir
				}
				path, err := export.WriteFile(dir, rm)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rm)
		},
	}
	generate.Flags().BoolVar(&htmlOut, "html", false, "write a standalone HTML page instead of printing JSON")
	generate.Flags().StringVar(&outDir, "out", "", "directory for --html output (default server.export_dir)")
	return generate
}

// outcomeError turns a terminal state that carries no roadmap into an error.
func outcomeError(s core.State) error {
	switch s.Outcome() {
	case core.OutcomeCompleted:
		return nil
	case core.OutcomeRejected:
		return fmt.Errorf("invalid query: %s", s.ValidationMessage)
	default:
		if s.Error != "" {
			return fmt.Errorf("error generating roadmap: %s", s.Error)
		}
		return fmt.Errorf("failed to generate roadmap nodes")
	}
}
