package history

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/claude-meter-tui/internal/app"
	"github.com/j-veylop/claude-meter-tui/internal/models"
	"github.com/j-veylop/claude-meter-tui/internal/services"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func seededState() services.State {
	var st services.State
	for i := range 10 {
		ts := testNow.Add(time.Duration(i-10) * 5 * time.Minute)
		st.History = append(st.History, models.HistoryTuple{
			TimestampMs: ts.UnixMilli(),
			Slot1:       models.Float(float64(10 + i*5)),
			Slot2:       models.Float(20),
		})
	}
	st.Daily = []models.DailyAggregate{
		{Date: "2026-10-13", Slot1: models.Float(55), Slot2: models.Float(18)},
		{Date: "2026-10-14", Slot1: nil, Slot2: models.Float(19)},
		{Date: "2026-10-15", Slot1: models.Float(72), Slot2: models.Float(20)},
	}
	st.Rolling = &models.RollingWindowSnapshot{}
	return st
}

func newTestModel(st *services.State) *Model {
	state := app.NewState()
	if st != nil {
		state.SetUsage(*st)
	}
	m := New(state)
	m.now = func() time.Time { return testNow }
	m.SetSize(100, 60)
	return m
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should have nothing to do")
	}
	if m.Range() != RangeRecent {
		t.Error("default range should be recent")
	}
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
}

func TestRange(t *testing.T) {
	if RangeRecent.Next() != RangeDaily || RangeDaily.Next() != RangeRecent {
		t.Error("Next should alternate")
	}
	if RangeRecent.String() != "Recent" || RangeDaily.String() != "Daily" {
		t.Error("unexpected range names")
	}
}

func TestToggleRange(t *testing.T) {
	m := newTestModel(nil)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	if m.Range() != RangeDaily {
		t.Error("v should switch to the daily range")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	if m.Range() != RangeRecent {
		t.Error("v should switch back")
	}
}

func TestView_Loading(t *testing.T) {
	if !strings.Contains(newTestModel(nil).View(), "Loading history") {
		t.Error("unloaded state should say so")
	}
}

func TestView_Empty(t *testing.T) {
	tests := []struct {
		name string
		st   services.State
		want string
	}{
		{"subscription", services.State{Rolling: &models.RollingWindowSnapshot{}}, "as usage readings are recorded"},
		{"enterprise", services.State{Bucketed: &models.BucketedTotalsSnapshot{}}, "subscription usage windows only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := newTestModel(&tt.st).View()
			if !strings.Contains(view, "No historical data") || !strings.Contains(view, tt.want) {
				t.Errorf("unexpected empty view:\n%s", view)
			}
		})
	}
}

func TestView_Recent(t *testing.T) {
	st := seededState()
	view := newTestModel(&st).View()

	for _, want := range []string{"Per Refresh", "10 readings", "50 minutes ago", "5-hour", "7-day", "utilization %"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_Daily(t *testing.T) {
	st := seededState()
	m := newTestModel(&st)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})

	view := m.View()
	for _, want := range []string{"Last 7 Days", "3 days", "2026-10-15", "72%", "—"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Index(view, "2026-10-15") > strings.Index(view, "2026-10-13") {
		t.Error("the table should list the newest day first")
	}
}

func TestPercentCell(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "—"},
		{models.Float(50), "█████░░░░░  50%"},
		{models.Float(120), "██████████ 120%"},
	}
	for _, tt := range tests {
		if got := percentCell(tt.in); got != tt.want {
			t.Errorf("percentCell = %q, want %q", got, tt.want)
		}
	}
}
