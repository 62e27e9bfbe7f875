// Package commands implements the cuadra command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "cuadra",
		Short:   "Double-entry books and weighted-average inventory for small businesses",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("dir", ".", "books directory (holds cuadra.yaml)")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(),
		newEntryCommand(),
		newLedgerCommand(),
		newTrialBalanceCommand(),
		newItemCommand(),
		newPurchaseCommand(),
		newSaleCommand(),
		newAdjustCommand(),
		newCheckCommand(),
		newImportCommand(),
		newServeCommand(),
	)
	return rootCmd
}
