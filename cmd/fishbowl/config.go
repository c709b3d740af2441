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
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	fishbowl "github.com/djinnsour/fishbowl-1"
)

type Config struct {
	Address  string
	UseTls   bool
	Username string
	Password string
	Timeout  time.Duration
	LogLevel string
	LogFile  string
	AppInfo  fishbowl.AppInfo
}

func defaultConfig() Config {
	return Config{
		Timeout:  30 * time.Second,
		LogLevel: "info",
		AppInfo:  fishbowl.DefaultAppInfo(),
	}
}

type fileConfig struct {
	Address        string `toml:"address"`
	UseTls         bool   `toml:"tls"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	Timeout        string `toml:"timeout"`
	LogLevel       string `toml:"log_level"`
	LogFile        string `toml:"log_file"`
	AppId          uint   `toml:"app_id"`
	AppName        string `toml:"app_name"`
	AppDescription string `toml:"app_description"`
}

// loadConfigFile applies the keys present in the TOML file at path on top of cfg
func loadConfigFile(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}
	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("tls") {
		cfg.UseTls = raw.UseTls
	}
	if meta.IsDefined("username") {
		cfg.Username = raw.Username
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("app_id") {
		cfg.AppInfo.Id = raw.AppId
	}
	if meta.IsDefined("app_name") {
		cfg.AppInfo.Name = raw.AppName
	}
	if meta.IsDefined("app_description") {
		cfg.AppInfo.Description = raw.AppDescription
	}
	return nil
}

// applyFlags copies the flags given on the command line over cfg
func applyFlags(flags *pflag.FlagSet, f *globalFlags, cfg *Config) {
	if flags.Changed("address") {
		cfg.Address = f.address
	}
	if flags.Changed("tls") {
		cfg.UseTls = f.useTls
	}
	if flags.Changed("username") {
		cfg.Username = f.username
	}
	if flags.Changed("password") {
		cfg.Password = f.password
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = f.logFile
	}
}
