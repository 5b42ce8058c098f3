package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	sferrors "github.com/yourusername/storefront/pkg/errors"
)

func newProductCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid product id %q", args[0])
			}

			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.catalog.FetchProductByID(ctx, id)
			if sferrors.IsNotFound(err) {
				return fmt.Errorf("product %d not found", id)
			}
			if err != nil {
				return err
			}
			fav, err := a.favorites.IsFavorite(ctx, id)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(struct {
				Product  any  `json:"product"`
				Favorite bool `json:"favorite"`
			}{p, fav}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, string(out))
			return nil
		},
	}
}
