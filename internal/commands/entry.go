package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/ledger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

func newEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Post, void and list journal entries",
	}
	cmd.AddCommand(
		newEntryPostCommand(),
		newEntryVoidCommand(),
		newEntryReverseCommand(),
		newEntryListCommand(),
	)
	return cmd
}

// parseLegs turns "code=amount" flag values into lines on one side.
func parseLegs(values []string, debit bool) ([]model.Line, error) {
	lines := make([]model.Line, 0, len(values))
	for _, v := range values {
		code, amount, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("invalid line %q, expected code=amount", v)
		}
		d, err := parseDecimal("amount", amount)
		if err != nil {
			return nil, err
		}
		if debit {
			lines = append(lines, model.DebitLine(strings.TrimSpace(code), d))
		} else {
			lines = append(lines, model.CreditLine(strings.TrimSpace(code), d))
		}
	}
	return lines, nil
}

func newEntryPostCommand() *cobra.Command {
	var (
		date, concept, ref string
		debits, credits    []string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a journal entry",
		Example: `  cuadra entry post --date 2024-03-05 --concept "Venta al contado" \
    --debit 1111=250.50 --credit 4111=250.50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := parseDate(date)
			if err != nil {
				return err
			}
			dr, err := parseLegs(debits, true)
			if err != nil {
				return err
			}
			cr, err := parseLegs(credits, false)
			if err != nil {
				return err
			}

			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			posted, err := s.books.Post(ctx, model.JournalEntry{
				Date:      d,
				Concept:   concept,
				Reference: ref,
				Status:    model.StatusDraft,
				Lines:     append(dr, cr...),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s\n", posted.ID)
			return s.done(ctx, auditlog.ActionEntryPost, posted.ID, posted.Concept)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "entry date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&concept, "concept", "", "concept (glosa)")
	cmd.Flags().StringVar(&ref, "ref", "", "document reference")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit line code=amount (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit line code=amount (repeatable)")
	return cmd
}

func newEntryVoidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "void <entry-id>",
		Short: "Void a posted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			voided, err := s.books.Void(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Voided %s\n", voided.ID)
			return s.done(ctx, auditlog.ActionEntryVoid, voided.ID, voided.Concept)
		},
	}
}

func newEntryReverseCommand() *cobra.Command {
	var date, concept string

	cmd := &cobra.Command{
		Use:   "reverse <entry-id>",
		Short: "Post an entry that reverses a posted one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date)
			if err != nil {
				return err
			}
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			reversal, err := s.books.Reverse(ctx, args[0], d, concept)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s reversing %s\n", reversal.ID, args[0])
			return s.done(ctx, auditlog.ActionEntryReverse, reversal.ID, "reverses "+args[0])
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reversal date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&concept, "concept", "", "concept (default derived from the original)")
	return cmd
}

func newEntryListCommand() *cobra.Command {
	var from, to string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the journal (libro diario)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := periodFlags(from, to)
			if err != nil {
				return err
			}
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			entries := s.books.Journal(period)
			if all {
				entries = s.books.Entries()
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "ID\tDATE\tSTATUS\tACCOUNT\tDEBIT\tCREDIT\tCONCEPT\t")
			for _, e := range entries {
				for i, l := range e.Lines {
					id, date, status, concept := "", "", "", ""
					if i == 0 {
						id, date, status, concept = e.ID, e.Date.Format(dateLayout), string(e.Status), e.Concept
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
						id, date, status, l.AccountCode, amount(l.Debit), amount(l.Credit), concept)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD")
	cmd.Flags().BoolVar(&all, "all", false, "include voided entries, in posting order")
	return cmd
}

func periodFlags(from, to string) (ledger.Period, error) {
	f, err := parseOptionalDate(from)
	if err != nil {
		return ledger.Period{}, err
	}
	t, err := parseOptionalDate(to)
	if err != nil {
		return ledger.Period{}, err
	}
	return ledger.Period{From: f, To: t}, nil
}

// amount formats money for tables; zero prints blank.
func amount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
