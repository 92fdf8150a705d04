// triage is the support-ticket intake and triage console: requesters
// submit tickets through a guided wizard, staff work them on a live
// dashboard with audio reminders for outstanding unresolved tickets.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/nhle/ticket-triage/internal/app"
	"github.com/nhle/ticket-triage/internal/logging"
	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		dbPath     string
		logPath    string
		logLevel   string
	)

	flagSet := pflag.NewFlagSet("triage", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	flagSet.StringVar(&dbPath, "db", "", "override the ticket database path")
	flagSet.StringVar(&logPath, "log", "", "override the log file path")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, closeLog, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening ticket store: %w", err)
	}
	defer s.Close()

	logger.Info("starting triage console",
		"db", cfg.Store.Path,
		"reminder_period", cfg.Reminder.PeriodSec)

	p := tea.NewProgram(app.New(s, *cfg, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}

	return nil
}
