// Package cli implements the contentctl command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/content-collections/internal/config"
	"github.com/content-collections/pkg/logger"
)

// ErrCheckFailed is returned when at least one document fails validation
var ErrCheckFailed = errors.New("content check failed")

// app carries the state shared by every subcommand
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     zerolog.Logger
	out     io.Writer
	errOut  io.Writer
}

// NewRootCommand builds the contentctl command tree writing to out and errOut
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "contentctl",
		Short: "Validate and manage blog, docs and pages content collections",
		Long: `contentctl checks the front-matter of every document in a content
directory against the schema of its collection, and manages the database
backing the content collections server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initializeConfig(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./contentctl.yaml)")
	flags.String("cache", "", "validation cache backend: none, sqlite or redis")
	flags.Int("concurrency", 0, "documents validated in parallel")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newCheckCommand(a),
		newWatchCommand(a),
		newSchemaCommand(a),
		newMigrateCommand(a),
	)
	return root
}

// Execute runs contentctl and returns the process exit code
func Execute() int {
	cmd := NewRootCommand(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, ErrCheckFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func (a *app) initializeConfig(cmd *cobra.Command) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	bindings := map[string]string{
		"cache":       "cache.backend",
		"concurrency": "content.concurrency",
		"log-level":   "log.level",
	}
	for flag, key := range bindings {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	a.v = v
	a.cfg = cfg
	a.log = logger.NewWithWriter(a.errOut, cfg.Log.Level, "pretty")
	if used := v.ConfigFileUsed(); used != "" {
		a.log.Debug().Str("file", used).Msg("Using config file")
	}
	return nil
}

// contentRoot resolves the directory argument of check and watch
func (a *app) contentRoot(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return a.cfg.Content.Root
}
