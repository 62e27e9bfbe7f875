package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/model"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(newAccountAddCommand(), newAccountListCommand(), newAccountDeactivateCommand())
	return cmd
}

func newAccountAddCommand() *cobra.Command {
	var typ, description string

	cmd := &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Add an account to the chart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			a := model.Account{
				Code:        args[0],
				Name:        args[1],
				Type:        model.AccountType(typ),
				Active:      true,
				Description: description,
			}
			if err := s.books.AddAccount(ctx, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %s %s (%s)\n", a.Code, a.Name, a.Type)
			return s.done(ctx, auditlog.ActionAccountAdd, a.Code, a.Name)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "asset, liability, equity, revenue or expense (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	return cmd
}

func newAccountListCommand() *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := model.AccountType(typ)
			if t != "" && !t.Valid() {
				return fmt.Errorf("unknown account type %q", typ)
			}
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tTYPE\tNATURE\tACTIVE")
			for _, a := range s.books.AccountsByType(t) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", a.Code, a.Name, a.Type, a.Nature(), a.Active)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only accounts of this type")
	return cmd
}

func newAccountDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <code>",
		Short: "Stop an account from receiving postings",
		Long: `Marks an account inactive. Its posted lines stay in the ledger; new
entries that use it are rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			a, err := s.books.DeactivateAccount(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated account %s %s\n", a.Code, a.Name)
			return s.done(ctx, auditlog.ActionAccountDeactivate, a.Code, a.Name)
		},
	}
}
