package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/auditlog"
)

func newItemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage inventory items",
	}
	cmd.AddCommand(newItemAddCommand(), newItemListCommand(), newItemKardexCommand())
	return cmd
}

func newItemAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <code> <name>",
		Short: "Register an inventory item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.books.RegisterItem(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added item %s %s\n", item.Code, item.Name)
			return s.done(ctx, auditlog.ActionItemAdd, item.Code, item.Name)
		},
	}
}

func newItemListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List items with quantity, average cost and valuation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CODE\tNAME\tQUANTITY\tAVG COST\tVALUATION\t")
			for _, i := range s.books.Items() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
					i.Code, i.Name, i.QuantityOnHand.String(),
					i.AverageUnitCost.StringFixed(4), i.Valuation().StringFixed(2))
			}
			return w.Flush()
		},
	}
}

func newItemKardexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kardex <code>",
		Short: "Print the movement card of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			item, err := s.books.ItemByCode(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "DATE\tTYPE\tQUANTITY\tUNIT COST\tVALUE\tBALANCE\tAVG COST\tREFERENCE\t")
			for _, m := range s.books.Movements(&item.ID) {
				qty := m.Quantity.String()
				if !m.Increases() {
					qty = "-" + qty
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					m.Date.Format(dateLayout), m.Type, qty,
					m.UnitCost.StringFixed(4), m.Value().StringFixed(2),
					m.QuantityAfter.String(), m.ResultingAverageCost.StringFixed(4), m.Reference)
			}
			return w.Flush()
		},
	}
}
