package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpattn/keyset/internal/config"
	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/pkg/keyset"
)

func init() {
	cursorCmd := &cobra.Command{
		Use:   "cursor",
		Short: "Works with pagination cursors.",
	}

	var order string
	inspectCmd := &cobra.Command{
		Use:     "inspect <cursor>",
		Aliases: []string{"decode"},
		Short:   "Decodes a people cursor against a sort order.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			codec, err := cfg.Codec()
			if err != nil {
				return err
			}
			return inspectCursor(cmd, codec, order, args[0])
		},
	}
	inspectCmd.Flags().StringVarP(&order, "order", "o", domain.DefaultPersonOrder, "Sort order the cursor was issued for")

	cursorCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(cursorCmd)
}

func inspectCursor(cmd *cobra.Command, codec *keyset.Codec, order, cursor string) error {
	sorts, err := domain.ParsePersonSorts(order)
	if err != nil {
		return err
	}
	spec, err := domain.PersonSortSpec(sorts)
	if err != nil {
		return err
	}
	values, err := codec.Decode(cursor, spec)
	if err != nil {
		return fmt.Errorf("cursor is not valid for order %q (%s): %w", spec, keyset.CursorErrorClass(err), err)
	}

	tabWr := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(tabWr, "#\tCOLUMN\tDIRECTION\tTYPE\tVALUE")
	for _, v := range values {
		value := any(keyset.NullToken)
		if v.Value != nil {
			value = v.Value
		}
		fmt.Fprintf(tabWr, "%d\t%s\t%s\t%s\t%v\n", v.Column.Position, v.Column.Key(), v.Column.Direction, v.Column.Type.Tag(), value)
	}
	return tabWr.Flush()
}
