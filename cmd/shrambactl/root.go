package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "shrambactl",
		Short:         "Shared pantry inventory CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.serverFlag, "server", "", "Server URL (default $SHRAMBA_SERVER or "+defaultServer+")")
	rootCmd.PersistentFlags().StringVar(&ctx.tokenFlag, "token", "", "Session token (default $SHRAMBA_TOKEN)")

	rootCmd.AddCommand(newJoinCommand(ctx))
	rootCmd.AddCommand(newLeaveCommand(ctx))
	rootCmd.AddCommand(newWhoamiCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newUseCommand(ctx))
	rootCmd.AddCommand(newRemoveCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newRecipeCommand(ctx))

	return rootCmd
}
