// Package main is the entry point for cmeter. Without a subcommand it runs
// the usage dashboard; subcommands run a single action and exit.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/claude-meter-tui/internal/app"
	"github.com/j-veylop/claude-meter-tui/internal/config"
	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/ui/tabs/dashboard"
	"github.com/j-veylop/claude-meter-tui/internal/ui/tabs/history"
	"github.com/j-veylop/claude-meter-tui/internal/ui/tabs/info"
	"github.com/j-veylop/claude-meter-tui/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries what every command needs once the root has loaded it.
type cli struct {
	cfg       *config.Config
	logCloser io.Closer
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "cmeter",
		Short: "Claude Meter - Claude subscription and API usage monitor",
		Long: `Claude Meter shows how much of your Claude usage limits you have consumed.

Without a subcommand it opens the dashboard. Keyboard shortcuts:
  1-3             Switch between tabs (Dashboard, History, Info)
  r               Refresh now
  t / x           Set / clear a manual token
  ?               Toggle help
  q, Ctrl+C       Quit`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			c.teardown()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.runDashboard()
		},
	}
	root.SetVersionTemplate(version.Info() + "\n")

	root.AddCommand(
		c.newRefreshCommand(),
		c.newDetailsCommand(),
		c.newConfigureTokenCommand(),
		c.newClearTokenCommand(),
		c.newHistoryCommand(),
		newVersionCommand(),
	)
	return root
}

// setup loads configuration and points logging at the log file so nothing
// interferes with the terminal.
func (c *cli) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c.cfg = cfg

	closer, err := logger.Init(logger.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	c.logCloser = closer
	return nil
}

func (c *cli) teardown() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
		c.logCloser = nil
	}
}

// runDashboard runs the TUI until the user quits.
func (c *cli) runDashboard() error {
	defer c.teardown()

	svcManager, err := services.NewManager(c.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		dashboard.New(state),
		history.New(state),
		info.New(state, c.cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	svcManager.Start()
	logger.Info("dashboard started", "version", version.GetVersion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
