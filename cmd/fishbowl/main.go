// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile string
	address    string
	useTls     bool
	username   string
	password   string
	timeout    time.Duration
	logLevel   string
	logFile    string
}

// cli holds the state shared by the subcommands once the root command has run
type cli struct {
	flags     globalFlags
	config    Config
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(&cli{})
}

func buildRootCommand(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fishbowl",
		Short:         "Talk to a Fishbowl inventory server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logCloser != nil {
				return c.logCloser.Close()
			}
			return nil
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.flags.configFile, "config", "", "path to TOML config file")
	flags.StringVar(
		&c.flags.address,
		"address",
		"",
		"server address in host or host:port format",
	)
	flags.BoolVar(&c.flags.useTls, "tls", false, "enable TLS")
	flags.StringVar(&c.flags.username, "username", "", "user name to log in with")
	flags.StringVar(&c.flags.password, "password", "", "password to log in with")
	flags.DurationVar(&c.flags.timeout, "timeout", 30*time.Second, "round trip timeout")
	flags.StringVar(&c.flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&c.flags.logFile, "log-file", "", "write JSON logs to this file instead of the console")

	rootCmd.AddCommand(
		newLoginCommand(c),
		newRequestCommand(c),
		newStatusCodesCommand(),
	)
	return rootCmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	c.config = defaultConfig()
	if c.flags.configFile != "" {
		if err := loadConfigFile(c.flags.configFile, &c.config); err != nil {
			return err
		}
	}
	applyFlags(cmd.Flags(), &c.flags, &c.config)
	logger, closer, err := newLogger(c.config.LogLevel, c.config.LogFile)
	if err != nil {
		return err
	}
	c.logger = logger
	c.logCloser = closer
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
