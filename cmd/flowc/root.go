package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Tsinling0525/flowc/config"
	"github.com/Tsinling0525/flowc/infra/n8napi"
	"github.com/Tsinling0525/flowc/logger"
)

type rootOptions struct {
	logLevel string
	logJSON  bool
	envFile  string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "flowc",
		Short:         "Compile generic workflow graphs into n8n workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit logs as JSON")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newServeCmd(opts), newCompileCmd(opts))
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	o.cfg = cfg
	o.log = logger.Default()
	return nil
}

func (o *rootOptions) n8nClient() *n8napi.Client {
	return n8napi.New(n8napi.Config{
		BaseURL:    o.cfg.N8N.APIURL,
		APIKey:     o.cfg.N8N.APIKey.Value(),
		Timeout:    o.cfg.N8N.Timeout,
		MaxRetries: o.cfg.N8N.MaxRetries,
		RetryWait:  o.cfg.N8N.RetryWait,
	})
}
