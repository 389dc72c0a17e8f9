package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"plategate/internal/report"
	"plategate/internal/service"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write registrations, passes and fails to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			repo, closeRepo, err := openRepository(cfg, ctx.log)
			if err != nil {
				return err
			}
			defer closeRepo()

			history, err := service.NewHistoryService(repo).History(cmd.Context())
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = fmt.Sprintf("plategate_%s.xlsx", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(outPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}

			file, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			if err := report.WriteWorkbook(file, history.Registrations, history.Passes, history.Fails); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("close %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d registrations, %d passes, %d fails)\n",
				outPath, len(history.Registrations), len(history.Passes), len(history.Fails))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default plategate_<timestamp>.xlsx)")
	return cmd
}
