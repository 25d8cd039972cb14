package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tcellshell "git.sr.ht/~ghost08/tcell-shell"
	"git.sr.ht/~ghost08/tcell-shell/termutil"
)

const envPrefix = "TCELLSHELL"

type config struct {
	Term              string        `mapstructure:"term" yaml:"term"`
	ChunkSize         int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	CompletionTimeout time.Duration `mapstructure:"completion_timeout" yaml:"completion_timeout"`
	MaxLines          int           `mapstructure:"max_lines" yaml:"max_lines"`
	LogFile           string        `mapstructure:"log_file" yaml:"log_file,omitempty"`
	Theme             themeConfig   `mapstructure:"theme" yaml:"theme"`
}

type themeConfig struct {
	Foreground string `mapstructure:"foreground" yaml:"foreground,omitempty"`
	// Palette overrides entries of the 16 colour palette, keyed by index
	Palette map[string]string `mapstructure:"palette" yaml:"palette,omitempty"`
}

func defaultConfig() config {
	return config{
		Term:              termutil.DefaultTERM,
		ChunkSize:         termutil.DefaultChunkSize,
		CompletionTimeout: termutil.DefaultCompletionTimeout,
		MaxLines:          tcellshell.DefaultMaxLines,
	}
}

// defaultConfigPath is config.yaml in the user's config directory
func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tcellshell", "config.yaml"), nil
}

// loadConfig reads the config file at path, then the environment, then
// the flags of cmd that were set. A missing file is only an error when
// path was given explicitly.
func loadConfig(path string, cmd *cobra.Command) (config, error) {
	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err != nil {
			return config{}, err
		}
		path = p
	}

	cfg := defaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("term", cfg.Term)
	v.SetDefault("chunk_size", cfg.ChunkSize)
	v.SetDefault("completion_timeout", cfg.CompletionTimeout)
	v.SetDefault("max_lines", cfg.MaxLines)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("theme.foreground", "")

	if cmd != nil {
		for key, flag := range map[string]string{
			"term":               "term",
			"chunk_size":         "chunk-size",
			"completion_timeout": "completion-timeout",
			"max_lines":          "max-lines",
			"log_file":           "log-file",
		} {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return config{}, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if !missing || explicit {
			return config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.ChunkSize <= 0 {
		return config{}, fmt.Errorf("chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.CompletionTimeout <= 0 {
		return config{}, fmt.Errorf("completion_timeout must be positive, got %s", cfg.CompletionTimeout)
	}
	return cfg, nil
}

// theme builds the output theme from the configured overrides
func (c config) theme() (*termutil.Theme, error) {
	factory := termutil.NewThemeFactory()
	if c.Theme.Foreground != "" {
		fg, err := termutil.ParseColour(c.Theme.Foreground)
		if err != nil {
			return nil, fmt.Errorf("theme.foreground: %w", err)
		}
		factory.WithForeground(fg)
	}
	for key, value := range c.Theme.Palette {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= termutil.PaletteSize {
			return nil, fmt.Errorf("theme.palette: %q is not a palette index", key)
		}
		colour, err := termutil.ParseColour(value)
		if err != nil {
			return nil, fmt.Errorf("theme.palette.%d: %w", idx, err)
		}
		factory.WithColour(termutil.Colour(idx), colour)
	}
	return factory.Build(), nil
}

// newShell returns a shell configured from c. It is not started.
func (c config) newShell() *tcellshell.Shell {
	sh := tcellshell.New()
	sh.TERM = c.Term
	sh.ChunkSize = c.ChunkSize
	sh.CompletionTimeout = c.CompletionTimeout
	return sh
}
