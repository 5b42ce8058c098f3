package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yourusername/storefront/internal/tui"
	"github.com/yourusername/storefront/pkg/browse"
	"github.com/yourusername/storefront/pkg/catalog"
)

func newBrowseCmd(c *cli) *cobra.Command {
	var (
		query string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Long: `Opens a terminal browser over the catalog. --query restores a listing from
a query string such as "search=phone&category=smartphones&page=2".

With --plain the listing is printed once and the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			values, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("invalid --query: %w", err)
			}

			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg
			loc, err := cfg.Browse.LoadLocation()
			if err != nil {
				return err
			}
			anchor, err := cfg.Catalog.ReferenceTime()
			if err != nil {
				return err
			}

			p := browse.NewFromValues(values,
				browse.WithDebounce(cfg.Browse.SearchDebounce),
				browse.WithLocation(loc),
				browse.WithLogger(c.log),
			)
			defer p.Close()

			loader := catalog.SessionLoader(a.catalog)

			if plain {
				if err := p.Load(ctx, loader); err != nil {
					return err
				}
				ids, err := a.favorites.List(ctx)
				if err != nil {
					return err
				}
				favs := make(map[int]bool, len(ids))
				for _, id := range ids {
					favs[id] = true
				}
				v := p.Snapshot()
				fmt.Fprint(c.out, tui.Render(v, tui.RenderOptions{Favorites: favs, Cursor: -1}))
				if v.Query != "" {
					fmt.Fprintf(c.out, "?%s\n", v.Query)
				}
				return nil
			}

			m := tui.New(ctx, p, tui.Options{
				Loader:    loader,
				Favorites: a.favorites,
				Anchor:    anchor,
				Logger:    c.log,
			})
			defer m.Close()

			// 终端界面运行期间写到终端的日志会破坏画面
			if cfg.Log.Output != "file" {
				c.log.SetOutput(io.Discard)
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "initial listing state as a URL query string")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the listing once instead of opening the browser")
	return cmd
}
