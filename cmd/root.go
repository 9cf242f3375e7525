/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/lexipop/internal/config"
	"github.com/valpere/lexipop/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile  string
	envFile  string
	appCfg   *config.Config
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "lexipop",
	Short: "Pick words from video transcripts and build a Japanese vocabulary deck",
	Long: `lexipop resolves English words of a transcript sentence to Japanese
definition candidates, lets you choose one (or write your own) and keeps the
result in a flashcard deck.

Definitions come from the dictionary API and are translated through the
lexipop backend; run "lexipop serve" to start one.

Use "lexipop define --help" for one-shot lookups and "lexipop pick --help"
for the interactive picker.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}

		cfg, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		appCfg = cfg

		logger, closer, err := logging.New(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		log.Logger = logger
		closeLog = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./lexipop.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before configuration")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error, disabled")
	flags.String("log-file", "", "Write JSON logs to this file instead of stderr")
	flags.String("dictionary-url", "", "Dictionary API base URL")
	flags.String("backend-url", "", "lexipop backend base URL")
	flags.String("db", "", "Deck database path")

	bind := map[string]string{
		"log.level":           "log-level",
		"log.file":            "log-file",
		"dictionary.base_url": "dictionary-url",
		"backend.base_url":    "backend-url",
		"deck.db_path":        "db",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}
