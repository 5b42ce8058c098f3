// Package configs provides configuration structures and utilities for the storefront.
// This file implements Viper-based configuration management with environment
// overrides and hot reloading support.
//
// Package configs 提供商店前端的配置结构和工具。
// 本文件实现基于Viper的配置管理，支持环境变量覆盖和热重载。
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. STOREFRONT_SERVER_ADDR.
const EnvPrefix = "STOREFRONT"

// ViperConfig wraps a Config with Viper functionality for environment
// overrides and hot reloading. Access through Get is safe for concurrent use.
//
// ViperConfig 使用Viper功能包装Config以支持环境变量覆盖和热重载。
// 通过Get访问是并发安全的。
type ViperConfig struct {
	config      *Config      // 当前配置
	viper       *viper.Viper // Viper实例
	configFile  string       // 配置文件路径，可为空
	log         logrus.FieldLogger
	mu          sync.RWMutex
	subscribers []func(*Config) // 配置更改时要通知的订阅者

	stopOnce sync.Once
	stop     chan struct{}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
//
// LoadDotEnv 将给定文件中的KEY=VALUE加载到进程环境变量中，不覆盖已存在的变量。
// 缺失的文件会被跳过。
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// NewViperConfig creates a new ViperConfig. Defaults are registered first,
// then the file (if configFile is non-empty) and finally STOREFRONT_*
// environment variables are applied. The result is validated.
//
// NewViperConfig 创建一个新的ViperConfig。依次应用默认值、配置文件（configFile非空时）
// 和 STOREFRONT_* 环境变量，然后验证结果。
//
// Parameters:
//   - configFile: Path to the configuration file, or "" for defaults and environment only
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading or validation fails
//
// 参数：
//   - configFile: 配置文件的路径，为空时仅使用默认值和环境变量
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载或验证失败则返回错误
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()
	if err := registerDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		config:     config,
		viper:      v,
		configFile: configFile,
		log:        logrus.StandardLogger(),
		stop:       make(chan struct{}),
	}, nil
}

// SetLogger sets the logger used to report reloads.
func (vc *ViperConfig) SetLogger(l logrus.FieldLogger) {
	if l == nil {
		return
	}
	vc.mu.Lock()
	vc.log = l
	vc.mu.Unlock()
}

// EnableHotReload watches the configuration file with fsnotify. On every
// change the configuration is re-read, validated and, if valid, swapped in
// before subscribers are notified. Invalid edits are logged and ignored.
//
// EnableHotReload 使用fsnotify监视配置文件。每次更改时重新读取并验证配置，
// 有效时替换当前配置并通知订阅者。无效的修改会被记录并忽略。
func (vc *ViperConfig) EnableHotReload() {
	if vc.configFile == "" {
		return
	}
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		vc.logger().WithField("file", e.Name).Info("config file changed")
		vc.reload()
	})
	vc.viper.WatchConfig()
}

// Subscribe adds a subscriber that will be called with the new configuration
// after every successful reload.
//
// Subscribe 添加一个在每次成功重载后以新配置调用的订阅者。
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
//
// Get 返回当前配置。
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.config
}

// ConfigFile returns the path the configuration was read from.
func (vc *ViperConfig) ConfigFile() string {
	return vc.configFile
}

// Close stops the polling watcher, if any.
func (vc *ViperConfig) Close() {
	vc.stopOnce.Do(func() { close(vc.stop) })
}

// reload re-reads the file and applies it when it differs from the current
// configuration. It reports whether subscribers were notified.
func (vc *ViperConfig) reload() bool {
	if err := vc.viper.ReadInConfig(); err != nil {
		vc.logger().WithError(err).Warn("failed to read config file")
		return false
	}

	newConfig, err := decode(vc.viper)
	if err != nil {
		vc.logger().WithError(err).Warn("ignoring config change")
		return false
	}

	vc.mu.Lock()
	if configsEqual(vc.config, newConfig) {
		vc.mu.Unlock()
		return false
	}
	vc.config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
	return true
}

func (vc *ViperConfig) logger() logrus.FieldLogger {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.log
}

// LoadViperConfig loads a configuration using Viper and optionally enables
// fsnotify-based hot reloading.
//
// LoadViperConfig 使用Viper加载配置，并可选地启用基于fsnotify的热重载。
func LoadViperConfig(configFile string, enableHotReload bool) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	if enableHotReload {
		vc.EnableHotReload()
	}

	return vc, nil
}

// LoadViperConfigWithWatcher loads a configuration and starts a goroutine that
// re-reads the file every watchInterval until Close is called. It is an
// alternative to fsnotify for file systems without change notifications.
//
// LoadViperConfigWithWatcher 加载配置并启动一个goroutine，每隔watchInterval重新读取文件，
// 直到调用Close。适用于不支持变更通知的文件系统。
//
// Parameters:
//   - configFile: Path to the configuration file
//   - watchInterval: How often to check for changes
//
// 参数：
//   - configFile: 配置文件的路径
//   - watchInterval: 检查更改的频率
func LoadViperConfigWithWatcher(configFile string, watchInterval time.Duration) (*ViperConfig, error) {
	if configFile == "" {
		return nil, fmt.Errorf("a config file is required for watching")
	}
	if watchInterval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive")
	}

	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	go func() {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-vc.stop:
				return
			case <-ticker.C:
				if vc.reload() {
					vc.logger().WithField("file", configFile).Info("config file changed")
				}
			}
		}
	}()

	return vc, nil
}

func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// registerDefaults flattens c into dotted keys so that AutomaticEnv can
// override keys the config file does not mention.
func registerDefaults(v *viper.Viper, c *Config) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to decode defaults: %w", err)
	}

	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]interface{}); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

// configsEqual reports whether two configurations are identical.
func configsEqual(c1, c2 *Config) bool {
	return reflect.DeepEqual(c1, c2)
}
