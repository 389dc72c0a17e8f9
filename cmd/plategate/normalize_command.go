package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plategate/internal/utils"
)

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <plate text>...",
		Short: "Print the lookup key for a plate string",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), utils.NormalizePlate(strings.Join(args, " ")))
			return nil
		},
	}
}
