// Command storefront serves and browses a product catalog.
//
// storefront 提供商品目录的HTTP服务和终端浏览界面。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/storefront/configs"
	"github.com/yourusername/storefront/internal/logging"
)

// cli 保存根命令解析出的全局状态
type cli struct {
	configFile string
	envFiles   []string
	verbose    bool

	vc        *configs.ViperConfig
	log       *logrus.Logger
	logCloser io.Closer

	out io.Writer
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	// 命令失败时不会执行PersistentPostRun
	defer c.teardown()

	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Browse a product catalog from the terminal or over HTTP",
		Long: `storefront fetches a product catalog, lets you search, filter by category
and date added, page through the results and keep a list of favorites.

Configuration is read from --config (YAML or JSON) and STOREFRONT_* environment
variables, e.g. STOREFRONT_SERVER_ADDR=:9090.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "path to a YAML or JSON config file")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(c),
		newBrowseCmd(c),
		newProductCmd(c),
		newFavoritesCmd(c),
		newConfigCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.out == nil {
		c.out = cmd.OutOrStdout()
	}
	if err := configs.LoadDotEnv(c.envFiles...); err != nil {
		return err
	}

	vc, err := configs.NewViperConfig(c.configFile)
	if err != nil {
		return err
	}
	c.vc = vc

	cfg := vc.Get()
	if cfg.Extensions.HotReload.Enable && c.configFile != "" {
		vc.EnableHotReload()
	}

	logCfg := cfg.Log
	if c.verbose {
		logCfg.Level = "debug"
	}
	log, closer, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	c.log, c.logCloser = log, closer
	vc.SetLogger(log)

	// 热重载只调整日志级别；其余设置需要重启
	vc.Subscribe(func(next *configs.Config) {
		if c.verbose {
			return
		}
		if lvl, err := logrus.ParseLevel(next.Log.Level); err == nil {
			log.SetLevel(lvl)
			log.WithField("level", lvl).Info("log level reloaded")
		}
	})

	log.WithFields(logrus.Fields{
		"config":  c.configFile,
		"command": cmd.Name(),
	}).Debug("configuration loaded")
	return nil
}

func (c *cli) teardown() {
	if c.vc != nil {
		c.vc.Close()
		c.vc = nil
	}
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

// openApp 使用当前配置构建应用组件
func (c *cli) openApp(ctx context.Context) (*app, error) {
	return newApp(ctx, c.vc.Get(), c.log)
}
