package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erazemk/shramba/internal/client"
	"github.com/erazemk/shramba/internal/model"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pantry items, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			items, err := c.Items(cmd.Context(), search)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items")
				return nil
			}
			fmt.Fprintln(out, renderItems(out, items))
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show items whose name starts with this text")
	return cmd
}

func renderItems(w io.Writer, items []model.Item) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		image := ""
		if item.Image != "" {
			image = "yes"
		}
		rows = append(rows, []string{
			item.ID,
			item.Name,
			strconv.Itoa(item.Quantity),
			item.Description,
			image,
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(w,
		[]string{"ID", "Name", "Qty", "Description", "Image", "Added"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

type itemFlags struct {
	name        string
	quantity    int
	description string
	image       string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Item name")
	cmd.Flags().IntVarP(&f.quantity, "quantity", "q", 1, "Item quantity")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Item description")
	cmd.Flags().StringVarP(&f.image, "image", "i", "", "Path to a JPEG or PNG image")
}

// attachImage reads the image file, if one was given, into item.
func (f *itemFlags) attachImage(item *client.Item) error {
	if f.image == "" {
		return nil
	}
	data, err := os.ReadFile(f.image)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	item.ImageName = filepath.Base(f.image)
	item.ImageData = data
	return nil
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var flags itemFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item to the pantry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			item := client.Item{
				Name:        flags.name,
				Quantity:    flags.quantity,
				Description: flags.description,
			}
			if err := flags.attachImage(&item); err != nil {
				return err
			}
			id, err := c.Add(cmd.Context(), item)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", item.Name, id)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var flags itemFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an item; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			current, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			item := client.Item{
				Name:        current.Name,
				Quantity:    current.Quantity,
				Description: current.Description,
			}
			if cmd.Flags().Changed("name") {
				item.Name = flags.name
			}
			if cmd.Flags().Changed("quantity") {
				item.Quantity = flags.quantity
			}
			if cmd.Flags().Changed("description") {
				item.Description = flags.description
			}
			if err := flags.attachImage(&item); err != nil {
				return err
			}

			outcome, err := c.Update(cmd.Context(), args[0], item)
			if err != nil {
				return err
			}
			printOutcome(cmd, current.Name, outcome)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newUseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Use one unit of an item; the last unit removes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			current, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outcome, err := c.Decrement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutcome(cmd, current.Name, outcome)
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an item and its image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func printOutcome(cmd *cobra.Command, name, outcome string) {
	out := cmd.OutOrStdout()
	if outcome == "deleted" {
		fmt.Fprintf(out, "%s is used up and was removed\n", name)
		return
	}
	fmt.Fprintf(out, "Updated %s\n", name)
}
