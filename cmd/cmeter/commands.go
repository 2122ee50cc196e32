package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/j-veylop/claude-meter-tui/internal/app"
	"github.com/j-veylop/claude-meter-tui/internal/config"
	"github.com/j-veylop/claude-meter-tui/internal/services"
	"github.com/j-veylop/claude-meter-tui/internal/services/notifier"
	"github.com/j-veylop/claude-meter-tui/internal/version"
)

// defaultHistoryDays is how many days `cmeter history` lists by default.
const defaultHistoryDays = 14

// withManager runs fn against a manager that never schedules or watches.
// Notifications are printed to stderr instead of the desktop.
func (c *cli) withManager(cmd *cobra.Command, fn func(*services.Manager) error) error {
	stderr := cmd.ErrOrStderr()
	mgr, err := services.NewManager(c.cfg,
		services.WithoutWatcher(),
		services.WithSender(notifier.SenderFunc(func(n notifier.Notification) error {
			_, err := fmt.Fprintln(stderr, formatNotification(n))
			return err
		})),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	runErr := fn(mgr)
	if closeErr := mgr.Close(); closeErr != nil && runErr == nil {
		return closeErr
	}
	return runErr
}

func formatNotification(n notifier.Notification) string {
	msg := n.Message
	if len(n.Choices) > 0 {
		msg += " Run `cmeter configure-token` to set one."
	}
	return "! " + msg
}

func (c *cli) newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch usage once and print the status line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(cmd, func(mgr *services.Manager) error {
				err := mgr.Refresh(cmd.Context())
				fmt.Fprintln(cmd.OutOrStdout(), formatStatus(mgr.State(), time.Now()))
				return err
			})
		},
	}
}

func (c *cli) newDetailsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "details",
		Short: "Fetch usage once and print every window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(cmd, func(mgr *services.Manager) error {
				err := mgr.Refresh(cmd.Context())
				fmt.Fprint(cmd.OutOrStdout(), formatDetails(mgr.State(), time.Now()))
				return err
			})
		},
	}
}

func (c *cli) newConfigureTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "configure-token [token]",
		Short: "Save a manual token (OAuth access token or sk-ant-admin-... key)",
		Long: `Save a manual token in the settings file. It takes precedence over the
credentials Claude Code writes. Without an argument the token is read from
a masked prompt so it stays out of your shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := tokenFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return c.withManager(cmd, func(mgr *services.Manager) error {
				err := mgr.ConfigureToken(cmd.Context(), token)
				if err != nil && !errors.Is(err, config.ErrTokenOverridden) {
					return fmt.Errorf("failed to save token: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Token saved to %s\n", c.cfg.SettingsPath)
				warnTokenOverridden(cmd, err)
				fmt.Fprintln(out, formatStatus(mgr.State(), time.Now()))
				return nil
			})
		},
	}
}

// tokenFromArgs takes the token from the argument, a pipe, or the masked
// prompt, in that order.
func tokenFromArgs(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return validToken(args[0])
	}

	if f, ok := stdin.(*os.File); !ok || !term.IsTerminal(f.Fd()) {
		data, err := io.ReadAll(io.LimitReader(stdin, 4096))
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return validToken(string(data))
	}

	token, err := app.ReadToken()
	if err != nil {
		return "", err
	}
	return validToken(token)
}

func validToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}

func (c *cli) newClearTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-token",
		Short: "Remove the manual token and fall back to auto-discovery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(cmd, func(mgr *services.Manager) error {
				err := mgr.ClearToken(cmd.Context())
				if err != nil && !errors.Is(err, config.ErrTokenOverridden) {
					return fmt.Errorf("failed to clear token: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Manual token cleared from the settings file")
				warnTokenOverridden(cmd, err)
				fmt.Fprintln(out, formatStatus(mgr.State(), time.Now()))
				return nil
			})
		},
	}
}

// warnTokenOverridden tells the user that the environment token still wins
// over the settings file.
func warnTokenOverridden(cmd *cobra.Command, err error) {
	if errors.Is(err, config.ErrTokenOverridden) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s is set and stays in effect; unset it to use the settings file token\n", config.EnvToken)
	}
}

func (c *cli) newHistoryCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the recorded daily usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			return c.withManager(cmd, func(mgr *services.Manager) error {
				fmt.Fprint(cmd.OutOrStdout(), formatHistory(mgr.State(), days, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", defaultHistoryDays, "number of days to list")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
