package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/consistency"
)

func newLedgerCommand() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "ledger <account-code>",
		Short: "Print an account ledger (libro mayor) with running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := periodFlags(from, to)
			if err != nil {
				return err
			}
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			l, err := s.books.Ledger(args[0], period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", l.Account.Code, l.Account.Name, l.Account.Nature())
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "DATE\tENTRY\tACCOUNT\tDEBIT\tCREDIT\tBALANCE\tCONCEPT\t")
			if !period.From.IsZero() {
				fmt.Fprintf(w, "%s\t\t\t\t\t%s\t%s\t\n", period.From.Format(dateLayout), l.Opening.StringFixed(2), "Saldo inicial")
			}
			for _, r := range l.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					r.Date.Format(dateLayout), r.EntryID, r.AccountCode,
					amount(r.Debit), amount(r.Credit), r.Balance.StringFixed(2), r.Concept)
			}
			fmt.Fprintf(w, "\t\tTOTAL\t%s\t%s\t%s\t\t\n",
				l.TotalDebit.StringFixed(2), l.TotalCredit.StringFixed(2), l.Balance.StringFixed(2))
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD")
	return cmd
}

func newTrialBalanceCommand() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance (balance de comprobación de sumas y saldos)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := parseOptionalDate(asOf)
			if err != nil {
				return err
			}
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			report, tbErr := s.books.TrialBalance(ctx, date)
			var imbalance *apperr.TrialBalanceImbalanceError
			if tbErr != nil && !errors.As(tbErr, &imbalance) {
				return tbErr
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CODE\tACCOUNT\tDEBIT\tCREDIT\tDEBTOR\tCREDITOR\t")
			for _, r := range report.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
					r.Account.Code, r.Account.Name,
					r.TotalDebit.StringFixed(2), r.TotalCredit.StringFixed(2),
					amount(r.DebtorBalance), amount(r.CreditorBalance))
			}
			fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t%s\t%s\t\n",
				report.TotalDebit.StringFixed(2), report.TotalCredit.StringFixed(2),
				report.TotalDebtor.StringFixed(2), report.TotalCreditor.StringFixed(2))
			if err := w.Flush(); err != nil {
				return err
			}
			return tbErr
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "include entries up to this date YYYY-MM-DD")
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Cross-check the journal against inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			issues := s.books.Check()
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "No issues found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEVERITY\tCODE\tACCOUNT\tENTRY\tAMOUNT\tDESCRIPTION")
			for _, i := range issues {
				amt := ""
				if i.Amount.Valid {
					amt = i.Amount.Decimal.StringFixed(2)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", i.Severity, i.Code, i.AccountCode, i.EntryID, amt, i.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			summary := issues.Summary()
			fmt.Fprintf(out, "%d errors, %d warnings, %d info\n",
				summary[consistency.SeverityError], summary[consistency.SeverityWarning], summary[consistency.SeverityInfo])
			if issues.HasErrors() {
				return fmt.Errorf("consistency check found %d errors", summary[consistency.SeverityError])
			}
			return nil
		},
	}
}
