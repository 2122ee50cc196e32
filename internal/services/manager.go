// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-meter-tui/internal/config"
	"github.com/j-veylop/claude-meter-tui/internal/db"
	"github.com/j-veylop/claude-meter-tui/internal/history"
	"github.com/j-veylop/claude-meter-tui/internal/logger"
	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/services/credentials"
	"github.com/j-veylop/claude-meter-tui/internal/services/notifier"
	"github.com/j-veylop/claude-meter-tui/internal/services/projection"
	"github.com/j-veylop/claude-meter-tui/internal/services/scheduler"
	"github.com/j-veylop/claude-meter-tui/internal/services/usage"
)

// authRetryDelay is how soon an auto-discovered token is retried after the
// API rejects it. The Claude CLI usually rewrites the file within seconds.
const authRetryDelay = 30 * time.Second

type (
	// RefreshStartedEvent is emitted when a refresh cycle begins.
	RefreshStartedEvent struct{}

	// StateEvent is emitted whenever the observable state changes.
	StateEvent struct {
		State State
	}

	// ErrorEvent is emitted when a refresh cycle fails. Interrupt is true
	// only when the error kind differs from the previous failure.
	ErrorEvent struct {
		Error     *models.UsageError
		Action    notifier.Action
		Interrupt bool
	}

	// NotificationEvent mirrors every notification sent to the desktop.
	NotificationEvent struct {
		Notification notifier.Notification
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (RefreshStartedEvent) isServiceEvent() {}
func (StateEvent) isServiceEvent()          {}
func (ErrorEvent) isServiceEvent()          {}
func (NotificationEvent) isServiceEvent()   {}

// Option configures a Manager.
type Option func(*Manager)

// WithClient replaces the usage client.
func WithClient(c *usage.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithResolver replaces the credential resolver.
func WithResolver(r *credentials.Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithSender replaces the desktop notification sender.
func WithSender(s notifier.Sender) Option {
	return func(m *Manager) { m.sender = s }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithoutWatcher disables credential file watching.
func WithoutWatcher() Option {
	return func(m *Manager) { m.watch = false }
}

// Manager runs refresh cycles and owns the state they produce. Cycles and
// token commands are serialized by cycleMu; readers use mu.
type Manager struct {
	ctx         context.Context
	sender      notifier.Sender
	cancel      context.CancelFunc
	cfg         *config.Config
	client      *usage.Client
	resolver    *credentials.Resolver
	notifier    *notifier.Notifier
	scheduler   *scheduler.Scheduler
	watcher     *credentials.Watcher
	database    *db.DB
	log         *history.Log
	now         func() time.Time
	subscribers []chan ServiceEvent
	state       State
	cycleMu     sync.Mutex
	mu          sync.RWMutex
	watch       bool
	started     bool
}

// NewManager creates a manager, opening the database and loading the
// persisted history. Nothing is fetched until Start or Refresh.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		now:    time.Now,
		watch:  true,
		sender: notifier.DesktopSender{},
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.client == nil {
		m.client = usage.NewClient(usage.WithBaseURL(cfg.APIBaseURL))
	}
	if m.resolver == nil {
		m.resolver = credentials.NewResolver()
	}
	m.notifier = notifier.New(notifier.Multi(m.sender, notifier.SenderFunc(m.mirrorNotification)))
	m.scheduler = scheduler.New(m.onTick)

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Debug("database opened", "path", m.database.Path())

	m.log = history.New(m.loadHistory())
	m.state.Display = cfg.Display()
	m.state.RefreshInterval = cfg.RefreshInterval()
	m.syncHistoryLocked()

	return m, nil
}

func (m *Manager) loadHistory() ([]models.HistoryTuple, []models.DailyAggregate) {
	entries, err := m.database.LoadHistory(m.ctx)
	if err != nil {
		logger.Warn("discarding unreadable usage history", "error", err)
		entries = nil
	}
	daily, err := m.database.LoadDaily(m.ctx)
	if err != nil {
		logger.Warn("discarding unreadable daily history", "error", err)
		daily = nil
	}
	return entries, daily
}

// Start begins periodic refreshing and credential watching, then runs the
// first cycle in the background.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.scheduler.Start(m.cfg.RefreshInterval())

	if m.watch {
		w, err := credentials.NewWatcher(m.resolver.Candidates(), m.onCredentialsChanged)
		if err != nil {
			logger.Warn("credential watching disabled", "error", err)
		} else {
			m.watcher = w
		}
	}

	go func() { _ = m.Refresh(m.ctx) }()
}

func (m *Manager) onTick() {
	_ = m.Refresh(m.ctx)
}

// onCredentialsChanged re-arms error notifications and refreshes at once.
func (m *Manager) onCredentialsChanged() {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	logger.Info("credential file changed, refreshing")
	m.clearErrorKind()
	_ = m.refreshLocked(m.ctx)
}

// Refresh runs one refresh cycle. Failures are recorded in the state and
// returned; they never stop the scheduler.
func (m *Manager) Refresh(ctx context.Context) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	m.state.Refreshing = true
	m.mu.Unlock()
	m.broadcast(RefreshStartedEvent{})

	cred, err := m.resolver.Resolve(m.cfg.Settings.ManualToken)
	if err != nil {
		return m.fail(err, nil)
	}

	m.mu.Lock()
	m.state.Credential = &CredentialInfo{
		Source:    cred.Source,
		Kind:      cred.Kind,
		Masked:    cred.Masked(),
		ExpiresAt: cred.ExpiresAt,
	}
	m.mu.Unlock()

	switch cred.Kind {
	case models.KindEnterpriseAdminKey:
		return m.refreshBucketed(ctx, cred)
	case models.KindSubscriptionOAuth:
		return m.refreshRolling(ctx, cred)
	default:
		return m.fail(models.NewUsageError(models.ErrAPI,
			"Regular API keys (sk-ant-...) cannot access usage data. "+
				"Use an OAuth token from the Claude CLI or an admin key (sk-ant-admin-...)."), &cred)
	}
}

func (m *Manager) refreshRolling(ctx context.Context, cred models.Credential) error {
	raw, err := m.client.FetchRollingWindows(ctx, cred.Token)
	if err != nil {
		return m.fail(err, &cred)
	}

	now := m.now()
	snap := usage.NormalizeRollingWindows(raw, now)
	m.log.Record(snap, now)
	m.persistHistory()

	threshold := m.cfg.Settings.NotifyAtThreshold
	if snap.FiveHour != nil {
		m.notifier.NotifyIfCrossed("five_hour", "Daily", snap.FiveHour.Utilization, threshold)
	}
	if snap.SevenDay != nil {
		m.notifier.NotifyIfCrossed("seven_day", "Weekly", snap.SevenDay.Utilization, threshold)
	}

	m.mu.Lock()
	m.state.Rolling = snap
	m.state.Bucketed = nil
	m.state.FiveHourTrend = trendFor(m.log, 1, snap.FiveHour, now)
	m.state.SevenDayTrend = trendFor(m.log, 2, snap.SevenDay, now)
	m.state.FiveHourProj = projection.Estimate(m.log.History, 1, snap.FiveHour, now)
	m.state.SevenDayProj = projection.Estimate(m.log.History, 2, snap.SevenDay, now)
	m.succeedLocked(now)
	m.mu.Unlock()

	logger.Debug("usage refreshed", "kind", cred.Kind, "source", cred.Source)
	m.broadcast(StateEvent{State: m.State()})
	return nil
}

func (m *Manager) refreshBucketed(ctx context.Context, cred models.Credential) error {
	raw, err := m.client.FetchBucketedTotals(ctx, cred.Token)
	if err != nil {
		return m.fail(err, &cred)
	}

	now := m.now()
	snap := usage.NormalizeBucketedTotals(raw, now)

	m.mu.Lock()
	m.state.Bucketed = snap
	m.state.Rolling = nil
	m.state.FiveHourTrend = models.Trend{}
	m.state.SevenDayTrend = models.Trend{}
	m.state.FiveHourProj = models.Projection{}
	m.state.SevenDayProj = models.Projection{}
	m.succeedLocked(now)
	m.mu.Unlock()

	logger.Debug("usage report refreshed", "buckets", len(raw.Data))
	m.broadcast(StateEvent{State: m.State()})
	return nil
}

func trendFor(log *history.Log, slot int, r *models.RollingWindowReading, now time.Time) models.Trend {
	if r == nil {
		return models.Trend{}
	}
	return log.Trend(slot, r.Utilization*100, now)
}

func (m *Manager) succeedLocked(now time.Time) {
	m.state.Refreshing = false
	m.state.LastError = nil
	m.state.LastErrorKind = ""
	m.state.LastSuccess = now
	m.state.LastAttempt = now
	m.syncHistoryLocked()
}

// fail records err. The interruptive reaction runs only when the error kind
// changed since the last failure; repeats update the passive status only.
func (m *Manager) fail(err error, cred *models.Credential) error {
	uerr := models.AsUsageError(err)

	m.mu.Lock()
	interrupt := m.state.LastErrorKind != uerr.Kind
	m.state.Refreshing = false
	m.state.LastError = uerr
	m.state.LastErrorKind = uerr.Kind
	m.state.LastAttempt = m.now()
	m.mu.Unlock()

	var action notifier.Action
	if interrupt {
		action = m.notifier.HandleError(uerr)
	} else {
		action = notifier.ReactToError(uerr)
	}

	if uerr.Kind == models.ErrTokenExpired && cred != nil && cred.Source == models.SourceAutoDiscovered {
		m.scheduler.ScheduleRetry(authRetryDelay)
	}

	logger.Warn("refresh failed", "kind", uerr.Kind, "status", uerr.HTTPStatus, "error", uerr.Message)
	m.broadcast(ErrorEvent{Error: uerr, Action: action, Interrupt: interrupt})
	m.broadcast(StateEvent{State: m.State()})
	return uerr
}

func (m *Manager) clearErrorKind() {
	m.mu.Lock()
	m.state.LastErrorKind = ""
	m.mu.Unlock()
}

// persistHistory merges both logs with what is stored and writes the result
// in one transaction, so readings saved by another process sharing the
// database survive. Failures are logged and otherwise ignored.
func (m *Manager) persistHistory() {
	err := m.database.UpdateLogs(m.ctx, func(stored []models.HistoryTuple, storedDaily []models.DailyAggregate) ([]models.HistoryTuple, []models.DailyAggregate) {
		m.log.Merge(stored, storedDaily)
		return m.log.History, m.log.Daily
	})
	if err != nil {
		logger.Error("failed to save usage history", "error", err)
	}
}

func (m *Manager) syncHistoryLocked() {
	m.state.History = append([]models.HistoryTuple(nil), m.log.History...)
	m.state.Daily = append([]models.DailyAggregate(nil), m.log.Daily...)
}

// ConfigureToken persists a manual token and refreshes with it.
func (m *Manager) ConfigureToken(ctx context.Context, token string) error {
	if err := config.SaveManualToken(m.cfg.SettingsPath, token); err != nil {
		return err
	}
	return m.tokenChanged(ctx)
}

// ClearToken removes the manual token and falls back to auto-discovery.
func (m *Manager) ClearToken(ctx context.Context) error {
	if err := config.ClearManualToken(m.cfg.SettingsPath); err != nil {
		return err
	}
	return m.tokenChanged(ctx)
}

// tokenChanged applies a settings file token change. The change is kept
// but config.ErrTokenOverridden is returned when the environment token
// still takes precedence.
func (m *Manager) tokenChanged(ctx context.Context) error {
	if err := m.settingsChanged(ctx); err != nil {
		return err
	}
	if config.TokenOverridden() {
		logger.Warn("settings file token change has no effect", "env", config.EnvToken)
		return config.ErrTokenOverridden
	}
	return nil
}

// ReloadSettings re-reads the settings file and applies it. On a read
// failure the previous settings stay in effect and the error is returned.
func (m *Manager) ReloadSettings(ctx context.Context) error {
	return m.settingsChanged(ctx)
}

// settingsChanged reloads configuration, restarts the schedule with the
// possibly new interval, re-arms error notifications and refreshes.
func (m *Manager) settingsChanged(ctx context.Context) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	reloadErr := m.cfg.Reload()
	if reloadErr != nil {
		logger.Warn("failed to reload settings", "error", reloadErr)
	}

	m.mu.Lock()
	m.state.Display = m.cfg.Display()
	m.state.RefreshInterval = m.cfg.RefreshInterval()
	started := m.started
	m.mu.Unlock()

	if started {
		m.scheduler.Start(m.cfg.RefreshInterval())
	}
	m.clearErrorKind()
	_ = m.refreshLocked(ctx)
	return reloadErr
}

func (m *Manager) mirrorNotification(n notifier.Notification) error {
	m.broadcast(NotificationEvent{Notification: n})
	return nil
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Config returns the active configuration.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Scheduler returns the refresh scheduler.
func (m *Manager) Scheduler() *scheduler.Scheduler {
	return m.scheduler
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd that waits for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ev
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops refreshing, cancels in-flight requests and closes the database.
func (m *Manager) Close() error {
	m.cancel()

	var errs []error

	if err := m.scheduler.Close(); err != nil {
		errs = append(errs, err)
	}

	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	// Wait for an in-flight cycle before closing the database under it
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	if err := m.database.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
