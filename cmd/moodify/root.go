package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/moodify/internal/auth"
	"github.com/justestif/moodify/internal/config"
	"github.com/justestif/moodify/internal/logger"
)

// Version is the application version.
const Version = "0.1.0"

// app carries state shared by subcommands once the root command has loaded
// the configuration.
type app struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "moodify",
		Short:         "Music recommendations from facial emotion",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./moodify.yaml or ~/.config/moodify/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newServeCmd(a), newDetectCmd(a), newLogoutCmd(a))
	return root
}

// load reads the configuration and sets up logging.
func (a *app) load() error {
	cfg, err := config.LoadConfigFile(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if a.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	a.cfg = cfg
	a.log = logger.New(cfg.Verbose)
	if cfg.LogFile != "" {
		if err := a.log.SetFileLog(cfg.LogFile); err != nil {
			return err
		}
	}
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached Spotify token",
		Args:  cobra.NoArgs,
		// Only the token cache is touched, so skip config validation.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := auth.DefaultTokenCache()
			if err != nil {
				return err
			}
			if err := cache.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", cache.Path())
			return nil
		},
	}
}
