package app

import (
	"testing"
	"time"

	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/services"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if s.Loaded() {
		t.Error("a new state should not be loaded")
	}
	if s.Usage().HasData() {
		t.Error("a new state should hold no usage")
	}
}

func TestState_Usage(t *testing.T) {
	s := NewState()

	st := services.State{
		Rolling: &models.RollingWindowSnapshot{FiveHour: &models.RollingWindowReading{Utilization: 0.4}},
	}
	s.SetUsage(st)

	if !s.Loaded() {
		t.Error("Loaded should be true after SetUsage")
	}
	if got := s.Usage().Rolling.FiveHour.Percent(); got != 40 {
		t.Errorf("five hour percent = %d, want 40", got)
	}

	s.SetRefreshing(true)
	got := s.Usage()
	if !got.Refreshing {
		t.Error("Refreshing should be set")
	}
	if got.Rolling == nil {
		t.Error("SetRefreshing must keep the snapshot")
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationInfo, "test", time.Minute)
	if id == "" {
		t.Error("AddNotification returned empty ID")
	}
	if other := s.AddNotification(NotificationInfo, "other", time.Minute); other == id {
		t.Error("notification IDs must be unique")
	}

	notifs := s.GetNotifications()
	if len(notifs) != 2 {
		t.Fatalf("GetNotifications len = %d, want 2", len(notifs))
	}
	if notifs[0].Message != "test" {
		t.Errorf("Notification message = %s, want test", notifs[0].Message)
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 1 {
		t.Error("Notification should be removed")
	}
}

func TestState_NotificationsBounded(t *testing.T) {
	s := NewState()
	for range maxNotifications + 5 {
		s.AddNotification(NotificationInfo, "n", 0)
	}
	if got := len(s.GetNotifications()); got != maxNotifications {
		t.Errorf("kept %d notifications, want %d", got, maxNotifications)
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s := NewState()
	s.now = func() time.Time { return now }

	s.notifications = append(s.notifications,
		Notification{ID: "expired", CreatedAt: now.Add(-2 * time.Minute), Duration: time.Minute},
		Notification{ID: "active", CreatedAt: now, Duration: time.Minute},
		Notification{ID: "sticky", CreatedAt: now.Add(-time.Hour)},
	)

	s.ClearExpiredNotifications()

	notifs := s.GetNotifications()
	if len(notifs) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(notifs))
	}
	if notifs[0].ID != "active" || notifs[1].ID != "sticky" {
		t.Errorf("unexpected survivors: %s, %s", notifs[0].ID, notifs[1].ID)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("loading...")
	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != LoadingNotificationID || notifs[0].Type != NotificationLoading {
		t.Errorf("unexpected loading notification %+v", notifs[0])
	}

	s.SetLoadingNotification("still loading...")
	notifs = s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification after update, got %d", len(notifs))
	}
	if notifs[0].Message != "still loading..." {
		t.Errorf("Expected message still loading..., got %s", notifs[0].Message)
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("Loading notification should be cleared")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		t    NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationLoading, "loading"},
		{NotificationType(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
