package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJoinCommand(ctx *commandContext) *cobra.Command {
	var passphrase string
	var quiet, create, existing bool

	cmd := &cobra.Command{
		Use:   "join <group>",
		Short: "Create or join a group and print a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			anon := ctx.anonymous()
			signIn := anon.SignIn
			switch {
			case create:
				signIn = anon.CreateGroup
			case existing:
				signIn = anon.JoinGroup
			}

			res, err := signIn(cmd.Context(), args[0], passphrase)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(out, res.Token)
				return nil
			}
			if res.Created {
				fmt.Fprintf(out, "Created group %s\n", res.GroupID)
			} else {
				fmt.Fprintf(out, "Joined group %s\n", res.GroupID)
			}
			fmt.Fprintf(out, "export SHRAMBA_TOKEN=%s\n", res.Token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Group passphrase (sets it when creating the group)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the token")
	cmd.Flags().BoolVar(&create, "new", false, "Fail if the group already exists")
	cmd.Flags().BoolVar(&existing, "existing", false, "Fail if the group does not exist")
	cmd.MarkFlagsMutuallyExclusive("new", "existing")
	return cmd
}

func newLeaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Sign out and revoke the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			if err := c.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the group of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			session, err := c.Session(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.GroupID)
			return nil
		},
	}
}
