package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecipeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recipe <id>...",
		Short: "Suggest a recipe from the selected items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			recipe, err := c.Recipe(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), recipe)
			return nil
		},
	}
}
