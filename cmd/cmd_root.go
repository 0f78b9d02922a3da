// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

// newLogger builds the process logger: JSON for pipes, console when stderr
// is a terminal.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

var rootCmd = &cobra.Command{
	Use:   "friendmap",
	Short: "puts the friends of an account on a map",
	Long: `
friendmap reads the friend list of an account, geocodes the location each
friend wrote on their profile and draws them on an OpenStreetMap based map.

Settings can also be provided through the environment or a .env file in the
working directory (FRIENDMAP_BEARER_TOKEN, FRIENDMAP_API_URL,
FRIENDMAP_GEOCODER_URL, FRIENDMAP_USER_AGENT, PORT).
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		logger = l

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enables debug logging")
}
