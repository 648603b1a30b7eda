package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	configDirName = ".gemtutor"
	apiBaseEnv    = "GEMTUTOR_API_BASE"
)

type ConfigFile struct {
	APIBase        *string `yaml:"api_base,omitempty"`
	LogLevel       *string `yaml:"log_level,omitempty"`
	LogFile        *string `yaml:"log_file,omitempty"`
	MaxFileSizeKB  *int    `yaml:"max_file_size_kb,omitempty"`
	MaxImageSizeKB *int    `yaml:"max_image_size_kb,omitempty"`
	Width          *int    `yaml:"width,omitempty"`
	Welcome        *bool   `yaml:"welcome,omitempty"`
	Timeout        *int    `yaml:"timeout,omitempty"` // Seconds
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName)
}

func configPath(dir string) string {
	return filepath.Join(dir, "config.yaml")
}

// loadConfig reads dir/config.yaml. A missing or unreadable file yields an
// empty config; only a malformed one is an error.
func loadConfig(dir string) (*ConfigFile, error) {
	if dir == "" {
		return &ConfigFile{}, nil
	}

	path := configPath(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Don't fail if we can't create the directory
			os.MkdirAll(dir, 0o755)
		}
		return &ConfigFile{}, nil
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

type RunConfig struct {
	APIBase        string
	LogLevel       string
	LogFile        string
	Verbose        bool
	MaxFileSizeKB  int
	MaxImageSizeKB int
	Width          int
	Welcome        bool
	Timeout        time.Duration
	Chat           bool
	Preview        bool
	Files          []string
}

// getRunConfig merges flags over the config file. A config value wins only
// when the matching flag was not set on the command line.
func getRunConfig(cmd *cobra.Command, cfg *ConfigFile, dir string) (RunConfig, error) {
	flags := cmd.Flags()

	apiBase, _ := flags.GetString("api-base")
	logLevel, _ := flags.GetString("log-level")
	logFile, _ := flags.GetString("log-file")
	verbose, _ := flags.GetBool("verbose")
	width, _ := flags.GetInt("width")
	noWelcome, _ := flags.GetBool("no-welcome")
	timeoutSec, _ := flags.GetInt("timeout")
	chat, _ := flags.GetBool("chat")
	preview, _ := flags.GetBool("preview")
	files, _ := flags.GetStringSlice("files")

	rc := RunConfig{
		APIBase:        apiBase,
		LogLevel:       logLevel,
		LogFile:        logFile,
		Verbose:        verbose,
		MaxFileSizeKB:  20480,
		MaxImageSizeKB: 10240,
		Width:          width,
		Welcome:        !noWelcome,
		Timeout:        time.Duration(timeoutSec) * time.Second,
		Chat:           chat,
		Preview:        preview,
		Files:          files,
	}

	if cfg.APIBase != nil && !flags.Changed("api-base") {
		rc.APIBase = *cfg.APIBase
	}
	if env := os.Getenv(apiBaseEnv); env != "" && !flags.Changed("api-base") {
		rc.APIBase = env
	}
	if cfg.LogLevel != nil && !flags.Changed("log-level") {
		rc.LogLevel = *cfg.LogLevel
	}
	if cfg.LogFile != nil && !flags.Changed("log-file") {
		rc.LogFile = *cfg.LogFile
	}
	if cfg.MaxFileSizeKB != nil {
		rc.MaxFileSizeKB = *cfg.MaxFileSizeKB
	}
	if cfg.MaxImageSizeKB != nil {
		rc.MaxImageSizeKB = *cfg.MaxImageSizeKB
	}
	if cfg.Width != nil && !flags.Changed("width") {
		rc.Width = *cfg.Width
	}
	if cfg.Welcome != nil && !flags.Changed("no-welcome") {
		rc.Welcome = *cfg.Welcome
	}
	if cfg.Timeout != nil && !flags.Changed("timeout") {
		rc.Timeout = time.Duration(*cfg.Timeout) * time.Second
	}

	if rc.Verbose {
		rc.LogLevel = "debug"
	}
	if rc.LogFile == "" && dir != "" {
		rc.LogFile = filepath.Join(dir, "gemtutor.log")
	}
	if strings.HasPrefix(rc.LogFile, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			rc.LogFile = filepath.Join(home, rc.LogFile[2:])
		}
	}
	if rc.Timeout < 0 {
		return rc, fmt.Errorf("timeout must not be negative (%v)", rc.Timeout)
	}
	if rc.MaxFileSizeKB <= 0 || rc.MaxImageSizeKB <= 0 {
		return rc, fmt.Errorf("size limits must be positive (file %d KB, image %d KB)", rc.MaxFileSizeKB, rc.MaxImageSizeKB)
	}

	return rc, nil
}
