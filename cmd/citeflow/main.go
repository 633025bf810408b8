// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citeflow CLI. citeflow resolves
// partial citations (a DOI, a title, an arXiv ID, a PDF) into one merged
// citation by querying bibliographic sources and keeping track of where
// every field came from.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/citeflow/internal/secrets"
	"github.com/pdiddy/citeflow/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is built in PersistentPreRunE once --verbose is known.
var logger = zap.NewNop()

// rootCmd is the base command for the citeflow CLI.
var rootCmd = &cobra.Command{
	Use:   "citeflow",
	Short: "Resolve partial citations into complete, sourced records",
	Long: `citeflow takes whatever is known about a paper (a DOI, a title, an arXiv
ID, a PubMed ID, or the paper itself as a PDF) and asks CrossRef, NCBI, arXiv,
OpenAlex, and the publisher for the rest. Every answer is kept as a separate
fragment; the merged citation picks each field from the most trusted source
and records which fragment it came from.

Resolution runs in three passes: identify finds identifiers, expand fetches
metadata for them, and dereference collects links to the full text.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		log, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = log

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./citeflow.yaml or ~/.config/citeflow/citeflow.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log resolver activity to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citeflow")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citeflow"))
		}
	}

	setDefaults(types.DefaultConfig())

	viper.SetEnvPrefix("CITEFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key with viper so that environment
// variables such as CITEFLOW_HTTP_TIMEOUT are picked up by Unmarshal.
func setDefaults(def types.Config) {
	viper.SetDefault("http.timeout", def.HTTP.Timeout)
	viper.SetDefault("http.user_agent", def.HTTP.UserAgent)
	viper.SetDefault("http.max_retries", def.HTTP.MaxRetries)
	viper.SetDefault("http.requests_per_second", def.HTTP.RequestsPerSecond)
	viper.SetDefault("resolution.source_order", def.Resolution.SourceOrder)
	viper.SetDefault("resolution.mergeable", def.Resolution.Mergeable)
	viper.SetDefault("resolution.workers", def.Resolution.Workers)
	viper.SetDefault("resolution.resolver_timeout", def.Resolution.ResolverTimeout)
	viper.SetDefault("resolution.disabled", def.Resolution.Disabled)
	viper.SetDefault("sources.contact_email", def.Sources.ContactEmail)
	viper.SetDefault("sources.ncbi_api_key", def.Sources.NCBIAPIKey)
	viper.SetDefault("store.path", def.Store.Path)
}

// loadConfig decodes the viper settings and fills credentials from
// .secrets/ where the config leaves them empty.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Sources.ContactEmail = secrets.Fallback(loadedSecrets, secrets.ContactEmail, cfg.Sources.ContactEmail)
	cfg.Sources.NCBIAPIKey = secrets.Fallback(loadedSecrets, secrets.NCBIAPIKey, cfg.Sources.NCBIAPIKey)
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

func main() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
