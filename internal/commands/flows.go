package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/books"
)

func newPurchaseCommand() *cobra.Command {
	var qty, unitCost, date, ref, concept, credit string

	cmd := &cobra.Command{
		Use:   "purchase <item-code>",
		Short: "Receive goods at cost and post Dr inventory / Cr payable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDecimal("quantity", qty)
			if err != nil {
				return err
			}
			c, err := parseDecimal("unit cost", unitCost)
			if err != nil {
				return err
			}
			d, err := parseDate(date)
			if err != nil {
				return err
			}

			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.books.ItemByCode(args[0])
			if err != nil {
				return err
			}
			res, err := s.books.RecordPurchase(ctx, books.PurchaseParams{
				ItemID:    item.ID,
				Quantity:  q,
				UnitCost:  c,
				Date:      d,
				Reference: ref,
				Concept:   concept,
				Credit:    credit,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s; %s on hand %s at average %s\n",
				res.Entry.ID, item.Code, res.Movement.QuantityAfter.String(), res.Movement.ResultingAverageCost.StringFixed(4))
			return s.done(ctx, auditlog.ActionPurchase, item.Code, res.Entry.ID)
		},
	}
	cmd.Flags().StringVar(&qty, "qty", "", "quantity received (required)")
	cmd.Flags().StringVar(&unitCost, "unit-cost", "", "unit cost (required)")
	_ = cmd.MarkFlagRequired("qty")
	_ = cmd.MarkFlagRequired("unit-cost")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&ref, "ref", "", "invoice or document reference")
	cmd.Flags().StringVar(&concept, "concept", "", "concept (default \"Compra de <item>\")")
	cmd.Flags().StringVar(&credit, "credit", "", "account credited (default the payable account)")
	return cmd
}

func newSaleCommand() *cobra.Command {
	var qty, price, date, ref, concept, debit string

	cmd := &cobra.Command{
		Use:   "sale <item-code>",
		Short: "Sell goods: post revenue and cost of sales at weighted average",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseDecimal("quantity", qty)
			if err != nil {
				return err
			}
			p, err := parseDecimal("price", price)
			if err != nil {
				return err
			}
			d, err := parseDate(date)
			if err != nil {
				return err
			}

			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.books.ItemByCode(args[0])
			if err != nil {
				return err
			}
			res, err := s.books.RecordSale(ctx, books.SaleParams{
				ItemID:    item.ID,
				Quantity:  q,
				Price:     p,
				Date:      d,
				Reference: ref,
				Concept:   concept,
				Debit:     debit,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Posted %s (revenue %s)\n", res.Revenue.ID, p.StringFixed(2))
			if res.COGS != nil {
				fmt.Fprintf(out, "Posted %s (cost of sales %s)\n", res.COGS.ID, res.Exit.CostBasis.StringFixed(2))
			}
			return s.done(ctx, auditlog.ActionSale, item.Code, res.Revenue.ID)
		},
	}
	cmd.Flags().StringVar(&qty, "qty", "", "quantity sold (required)")
	cmd.Flags().StringVar(&price, "price", "", "total sale amount (required)")
	_ = cmd.MarkFlagRequired("qty")
	_ = cmd.MarkFlagRequired("price")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&ref, "ref", "", "invoice or document reference")
	cmd.Flags().StringVar(&concept, "concept", "", "concept (default \"Venta de <item>\")")
	cmd.Flags().StringVar(&debit, "debit", "", "account debited (default cash)")
	return cmd
}

func newAdjustCommand() *cobra.Command {
	var delta, reason, date, ref string

	cmd := &cobra.Command{
		Use:   "adjust <item-code>",
		Short: "Record a physical count difference at the current average cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dq, err := parseDecimal("delta", delta)
			if err != nil {
				return err
			}
			d, err := parseDate(date)
			if err != nil {
				return err
			}

			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.books.ItemByCode(args[0])
			if err != nil {
				return err
			}
			res, err := s.books.RecordAdjustment(ctx, books.AdjustmentParams{
				ItemID:    item.ID,
				Delta:     dq,
				Reason:    reason,
				Date:      d,
				Reference: ref,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			subject := item.Code
			details := res.Adjustment.Movement.ID
			fmt.Fprintf(out, "Adjusted %s to %s\n", item.Code, res.Adjustment.Movement.QuantityAfter.String())
			if res.Entry != nil {
				fmt.Fprintf(out, "Posted %s (%s)\n", res.Entry.ID, res.Adjustment.Value.StringFixed(2))
				details = res.Entry.ID
			}
			return s.done(ctx, auditlog.ActionAdjust, subject, details)
		},
	}
	cmd.Flags().StringVar(&delta, "delta", "", "quantity difference, negative for shortage (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the adjustment (required)")
	_ = cmd.MarkFlagRequired("delta")
	_ = cmd.MarkFlagRequired("reason")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&ref, "ref", "", "count sheet reference")
	return cmd
}
