// Package main provides crmctl, a command-line tool for finding and merging
// duplicate records in a Contactly database.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/logger"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/service"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

type rootOptions struct {
	dbPath  string
	output  string
	tuning  string
	verbose bool
	noColor bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "crmctl",
		Short: "Find and merge duplicate CRM records",
		Long: `crmctl scans a Contactly SQLite database for duplicate contacts or
companies and merges them.

Examples:
  # List likely duplicate contacts by email and phone
  crmctl scan --db ~/Contactly/data/contactly.db --fields Email,Phone

  # Preview a merge, then persist it
  crmctl merge --db contactly.db con-abc con-def
  crmctl merge --db contactly.db --apply con-abc con-def`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputText && opts.output != outputYAML {
				return fmt.Errorf("invalid output %q (must be %s or %s)", opts.output, outputText, outputYAML)
			}
			if opts.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to the SQLite database")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format (text, yaml)")
	cmd.PersistentFlags().StringVar(&opts.tuning, "tuning", "", "Dedupe tuning TOML file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newMergeCmd(opts))

	return cmd
}

// workspace holds the services a command runs against. Only records live
// on disk; saved searches and the candidate index are scratch copies.
type workspace struct {
	records    *sqlite.Store
	kv         *store.Store
	index      *search.CandidateIndex
	duplicates *service.DuplicateService
}

func openWorkspace(opts *rootOptions, stderr io.Writer) (*workspace, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Config{Writer: stderr, Level: level})

	dedupeCfg := config.DedupeConfig{
		Thresholds: dedupe.DefaultThresholds(),
	}
	if opts.tuning != "" {
		tuning, err := config.LoadDedupeTuning(opts.tuning)
		if err != nil {
			return nil, err
		}
		tuning.Apply(&dedupeCfg)
		if err := dedupeCfg.Thresholds.Validate(); err != nil {
			return nil, fmt.Errorf("invalid dedupe thresholds: %w", err)
		}
	}

	if _, err := os.Stat(opts.dbPath); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	records, err := sqlite.Open(opts.dbPath, log.Logger)
	if err != nil {
		return nil, err
	}
	kv, err := store.Open("", log.Logger, store.Options{InMemory: true})
	if err != nil {
		_ = records.Close()
		return nil, err
	}
	index, err := search.NewCandidateIndex(search.Options{Logger: log.Logger})
	if err != nil {
		_ = kv.Close()
		_ = records.Close()
		return nil, err
	}

	return &workspace{
		records:    records,
		kv:         kv,
		index:      index,
		duplicates: service.NewDuplicateService(records, kv, index, dedupeCfg, log.Logger),
	}, nil
}

func (w *workspace) Close() error {
	var firstErr error
	for _, closeFn := range []func() error{w.index.Close, w.kv.Close, w.records.Close} {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
