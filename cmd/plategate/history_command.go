package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plategate/internal/domain/plate"
	"plategate/internal/repository"
	"plategate/internal/service"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var only string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print registrations and scan results, newest first",
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

			only = strings.ToLower(strings.TrimSpace(only))
			out := cmd.OutOrStdout()
			sections := []struct {
				key   string
				title string
				table func() ([]string, [][]string)
			}{
				{"registrations", "Registrations", func() ([]string, [][]string) {
					return repository.RegistrationHeaders, registrationRows(history.Registrations, limit)
				}},
				{"passes", "Passes", func() ([]string, [][]string) {
					return repository.ScanEventHeaders, scanEventRows(history.Passes, limit)
				}},
				{"fails", "Fails", func() ([]string, [][]string) {
					return repository.ScanEventHeaders, scanEventRows(history.Fails, limit)
				}},
			}

			printed := false
			for _, section := range sections {
				if only != "" && only != section.key {
					continue
				}
				headers, rows := section.table()
				fmt.Fprintln(out, renderTable(out, section.title, headers, rows))
				printed = true
			}
			if !printed {
				return fmt.Errorf("unknown section %q (want registrations, passes or fails)", only)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows per section (0 for all)")
	cmd.Flags().StringVar(&only, "only", "", "Print a single section: registrations, passes or fails")
	return cmd
}

func registrationRows(regs []plate.Registration, limit int) [][]string {
	if limit > 0 && len(regs) > limit {
		regs = regs[:limit]
	}
	rows := make([][]string, 0, len(regs))
	for _, reg := range regs {
		rows = append(rows, []string{
			plate.FormatTimestamp(reg.Timestamp),
			reg.PlateNorm,
			reg.PlateRaw,
			reg.Owner,
			reg.ImagePath,
		})
	}
	return rows
}

func scanEventRows(events []plate.ScanEvent, limit int) [][]string {
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			plate.FormatTimestamp(event.Timestamp),
			event.PlateDetectedNorm,
			event.PlateDetectedRaw,
			string(event.Result),
			event.MatchedOwner,
			event.SnapshotPath,
		})
	}
	return rows
}
