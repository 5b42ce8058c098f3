package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newFavoritesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite products",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorite product ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				ids, err := a.favorites.List(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(c.out, id)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(
		favoriteIDCmd(c, "add", "Add a product to favorites", func(ctx context.Context, a *app, id int) (string, error) {
			return fmt.Sprintf("added %d", id), a.favorites.Add(ctx, id)
		}),
		favoriteIDCmd(c, "remove", "Remove a product from favorites", func(ctx context.Context, a *app, id int) (string, error) {
			return fmt.Sprintf("removed %d", id), a.favorites.Remove(ctx, id)
		}),
		favoriteIDCmd(c, "toggle", "Toggle a product in favorites", func(ctx context.Context, a *app, id int) (string, error) {
			now, err := a.favorites.Toggle(ctx, id)
			if now {
				return fmt.Sprintf("added %d", id), err
			}
			return fmt.Sprintf("removed %d", id), err
		}),
	)
	return cmd
}

func favoriteIDCmd(c *cli, use, short string, run func(ctx context.Context, a *app, id int) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				msg, err := run(ctx, a, id)
				if err != nil {
					return err
				}
				n, err := a.favorites.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s (%d favorites)\n", msg, n)
				return nil
			})
		},
	}
}

// withApp 打开应用、执行fn并释放资源
func (c *cli) withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	a, err := c.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
