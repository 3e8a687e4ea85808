/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/suparena/tablestore"
	tserrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/internal/loggingutil"
)

// legacyConnectionSetting is the application setting the customer sample reads.
const legacyConnectionSetting = "StorageConnectionString"

type app struct {
	v          *viper.Viper
	logger     pslog.Logger
	clientOpts []tablestore.Option
}

func newRootCommand(baseLogger pslog.Logger, clientOpts ...tablestore.Option) *cobra.Command {
	a := &app{
		v:          viper.New(),
		logger:     loggingutil.EnsureLogger(baseLogger),
		clientOpts: clientOpts,
	}

	cmd := &cobra.Command{
		Use:           "tablesas",
		Short:         "Table storage SAS and stored access policy tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "YAML config file")
	persistent.String("env-file", ".env", "dotenv file loaded before reading the environment")
	persistent.String("connection-string", "", "storage connection string (or TABLESAS_CONNECTION_STRING, StorageConnectionString)")
	persistent.Bool("trace", false, "log every table operation at debug level and emit spans")
	persistent.Duration("timeout", 2*time.Minute, "overall command timeout")
	a.bind(persistent, "config", "env-file", "connection-string", "trace", "timeout")

	a.v.SetEnvPrefix("TABLESAS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cmd.AddCommand(
		newDemoCommand(a),
		newSASCommand(a),
		newPolicyCommand(a),
		newProbeCommand(a),
		newVersionCommand(),
	)
	return cmd
}

func (a *app) bind(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		flag := flags.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := a.v.BindPFlag(name, flag); err != nil {
			panic(err)
		}
	}
}

func (a *app) loadConfig() error {
	if envFile := a.v.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfgPath := strings.TrimSpace(a.v.GetString("config"))
	if cfgPath == "" {
		return nil
	}
	expanded, err := filepath.Abs(cfgPath)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	a.v.SetConfigFile(expanded)
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %q: %w", expanded, err)
	}
	a.logger.Debug("config loaded", "path", expanded)
	return nil
}

func (a *app) connectionString() (string, error) {
	if s := strings.TrimSpace(a.v.GetString("connection-string")); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(os.Getenv(legacyConnectionSetting)); s != "" {
		return s, nil
	}
	return "", tserrors.NewConfigurationError("connection-string", "set --connection-string, TABLESAS_CONNECTION_STRING or "+legacyConnectionSetting, nil)
}

func (a *app) options(sub string) []tablestore.Option {
	opts := []tablestore.Option{
		tablestore.WithLogger(loggingutil.WithSubsystem(a.logger, sub)),
		tablestore.WithTracing(a.v.GetBool("trace")),
	}
	return append(opts, a.clientOpts...)
}

func (a *app) client(sub string) (*tablestore.Client, error) {
	descriptor, err := a.connectionString()
	if err != nil {
		return nil, err
	}
	return tablestore.NewClient(descriptor, a.options(sub)...)
}

func (a *app) table(cmd *cobra.Command, sub string) (*tablestore.Table, error) {
	name, _ := cmd.Flags().GetString("table")
	if name == "" {
		return nil, tserrors.NewValidationError("table", "--table is required")
	}
	client, err := a.client(sub)
	if err != nil {
		return nil, err
	}
	return client.Table(name)
}

// parseExpiry accepts a duration from now ("24h") or an absolute RFC3339 time.
func parseExpiry(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return time.Time{}, tserrors.NewValidationError("expiry", "duration must be positive")
		}
		return now.Add(d).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, tserrors.NewValidationError("expiry", fmt.Sprintf("%q is neither a duration nor an RFC3339 time", v))
	}
	return t.UTC(), nil
}

func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if timeout := a.v.GetDuration("timeout"); timeout > 0 {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	return context.WithCancel(cmd.Context())
}
