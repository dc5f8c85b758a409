package main

import (
	"fmt"
	"os"

	"github.com/erazemk/shramba/internal/export"
	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format, scope, search, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the pantry as CSV or PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			s, err := export.ParseScope(scope)
			if err != nil {
				return err
			}
			c, err := ctx.client()
			if err != nil {
				return err
			}

			if out == "-" {
				return c.Export(cmd.Context(), string(f), string(s), search, cmd.OutOrStdout())
			}
			if out == "" {
				out = export.FileName(f, s)
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := c.Export(cmd.Context(), string(f), string(s), search, file); err != nil {
				file.Close()
				os.Remove(out)
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "Export format (csv or pdf)")
	cmd.Flags().StringVar(&scope, "scope", string(export.ScopeAll), "Export scope (all or filtered)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Name prefix for the filtered scope")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout (default inventory_<scope>.csv or inventory.pdf)")
	return cmd
}
