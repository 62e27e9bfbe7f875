package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/importer"
)

func newImportCommand() *cobra.Command {
	var format string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Post the batch files waiting in import/",
		Long: `Posts every CSV in <dir>/import/ and moves it to import/processed/.

A file is posted only if all its entries validate; otherwise nothing from
that file is posted and it stays in import/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := importer.DefaultRegistry()
			parser := registry.Get(format)
			if parser == nil {
				return fmt.Errorf("unknown import format %q (known: %s)", format, strings.Join(registry.Formats(), ", "))
			}

			s, ctx, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			files, err := importer.Scan(s.dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "Nothing to import")
				return nil
			}

			for _, f := range files {
				entries, err := importer.ParseFile(parser, f.Path)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if err := s.books.Validate(e); err != nil {
						return fmt.Errorf("%s: entry %s: %w", f.Name, e.Reference, err)
					}
				}
				if dryRun {
					fmt.Fprintf(out, "%s: %d entries valid\n", f.Name, len(entries))
					continue
				}

				for _, e := range entries {
					posted, err := s.books.Post(ctx, e)
					if err != nil {
						return fmt.Errorf("%s: entry %s: %w", f.Name, e.Reference, err)
					}
					fmt.Fprintf(out, "%s: posted %s (%s)\n", f.Name, posted.ID, e.Reference)
				}
				if err := importer.MarkProcessed(s.dir, f.Name); err != nil {
					return err
				}
				if err := s.done(ctx, auditlog.ActionImport, f.Name, fmt.Sprintf("%d entries", len(entries))); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "journal", "file format")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without posting")
	return cmd
}
