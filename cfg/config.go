// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved mount configuration, merged from defaults,
// an optional YAML config file, and command-line flags, in that order of
// increasing precedence.
type Config struct {
	MountPath ResolvedPath `yaml:"mount-path" mapstructure:"mount-path"`

	SourcePath ResolvedPath `yaml:"source-path" mapstructure:"source-path"`

	NoUnmount bool `yaml:"no-unmount" mapstructure:"no-unmount"`

	DisallowRoot bool `yaml:"disallow-root" mapstructure:"disallow-root"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// LoggingConfig controls where and how severely the mount logs.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity" mapstructure:"severity"`

	Format string `yaml:"format" mapstructure:"format"`

	FilePath ResolvedPath `yaml:"file-path" mapstructure:"file-path"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate" mapstructure:"log-rotate"`
}

// LogRotateLoggingConfig controls rotation of the log file named by
// LoggingConfig.FilePath.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb int64 `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count" mapstructure:"backup-file-count"`

	Compress bool `yaml:"compress" mapstructure:"compress"`
}

// BindFlags declares every mount flag on flagSet and binds it to the
// matching viper key, so Config can be populated by a single Unmarshal
// regardless of whether a value came from a flag, the config file, or a
// default.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("mount-path", "m", "", "Directory to mount the tag filesystem at.")
	if err = viper.BindPFlag("mount-path", flagSet.Lookup("mount-path")); err != nil {
		return err
	}

	flagSet.StringP("source-path", "s", "", "Directory holding the flat file collection to expose as tags.")
	if err = viper.BindPFlag("source-path", flagSet.Lookup("source-path")); err != nil {
		return err
	}

	flagSet.BoolP("no-unmount", "a", false, "Do not unmount automatically when the mounting process exits.")
	if err = viper.BindPFlag("no-unmount", flagSet.Lookup("no-unmount")); err != nil {
		return err
	}

	flagSet.BoolP("disallow-root", "r", false, "Disallow access to other users, including root, when run via sudo.")
	if err = viper.BindPFlag("disallow-root", flagSet.Lookup("disallow-root")); err != nil {
		return err
	}

	flagSet.String("log-severity", string(InfoLogSeverity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.String("log-format", "json", "Logging format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.String("log-file", "", "Path to write logs to. Empty means stdout.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.Int64("log-rotate-max-size-mb", 512, "Maximum size in MB of the log file before it is rotated.")
	if err = viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-rotate-max-size-mb")); err != nil {
		return err
	}

	flagSet.Int("log-rotate-backup-count", 10, "Number of rotated log files to retain.")
	if err = viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-rotate-backup-count")); err != nil {
		return err
	}

	flagSet.Bool("log-rotate-compress", true, "Compress rotated log files.")
	if err = viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-rotate-compress")); err != nil {
		return err
	}

	return nil
}
