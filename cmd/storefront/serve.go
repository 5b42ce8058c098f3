package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/storefront/internal/server"
	"github.com/yourusername/storefront/pkg/catalog"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr   string
		noWarm bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and favorites over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg
			srvCfg := cfg.Server
			if addr != "" {
				srvCfg.Addr = addr
			}

			loc, err := cfg.Browse.LoadLocation()
			if err != nil {
				return err
			}

			if !noWarm {
				// 预热失败不阻止启动，首个请求会重试
				if sess, err := catalog.LoadSession(ctx, a.catalog); err != nil {
					c.log.WithError(err).Warn("catalog warm-up failed")
				} else {
					c.log.WithFields(logrus.Fields{
						"products":   len(sess.Products),
						"categories": len(sess.Categories),
					}).Info("catalog warmed")
				}
			}

			svc := server.NewService(a.catalog, a.favorites,
				server.WithMetrics(a.metrics),
				server.WithLocation(loc),
				server.WithLogger(c.log),
			)
			opts := server.RouterOptions{
				MetricsPath: cfg.Metrics.Path,
				CacheStats:  a.cacheStats(),
				Logger:      c.log,
			}
			if cfg.Metrics.Enable {
				opts.Metrics = a.metrics
			}

			srv := server.New(srvCfg, server.NewHandler(svc), opts)
			c.log.WithField("addr", srvCfg.Addr).Info("storefront listening")
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&noWarm, "no-warm", false, "skip loading the catalog before listening")
	return cmd
}
