// Package logging 根据日志配置构建logrus日志器
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/storefront/configs"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. The returned Closer releases the log file
// when Output is "file" and is a no-op otherwise.
//
// New 根据cfg构建日志器。Output为"file"时返回的Closer负责关闭日志文件。
func New(cfg configs.LogConfig) (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr", "":
		logger.SetOutput(os.Stderr)
	case "file":
		if dir := filepath.Dir(cfg.FilePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("logging: create directory: %w", err)
			}
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", cfg.FilePath, err)
		}
		logger.SetOutput(file)
		closer = file
	default:
		return nil, nil, fmt.Errorf("logging: unknown output %q", cfg.Output)
	}

	return logger, closer, nil
}

// Discard 返回丢弃所有输出的日志器，用于测试和安静模式
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
