package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:   "theme [dark|light|toggle]",
	Short: "Show or change the theme",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Println(store.Theme())
			return nil
		}

		next := args[0]
		if next == "toggle" {
			if store.Theme() == "dark" {
				next = "light"
			} else {
				next = "dark"
			}
		}
		if next != "dark" && next != "light" {
			return fmt.Errorf("unknown theme %q (expected dark or light)", args[0])
		}

		if err := store.SetTheme(ctx, next); err != nil {
			return err
		}
		fmt.Println(next)
		return nil
	},
}
