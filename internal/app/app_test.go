package app

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strap-monitor.klederson.com/internal/bluetooth"
	"strap-monitor.klederson.com/internal/encoder"
	"strap-monitor.klederson.com/internal/monitor"
	"strap-monitor.klederson.com/internal/ui"
)

type fakeCalibrator struct {
	calls int
	err   error
}

func (f *fakeCalibrator) ToggleCalibration() error {
	f.calls++
	return f.err
}

func newModel(t *testing.T, cal *fakeCalibrator) (AppModel, *monitor.State) {
	t.Helper()
	state := monitor.NewState()
	m := New(Options{Adapter: "hci0", DeviceName: encoder.DeviceName}, state, cal)
	m.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(AppModel), state
}

func TestView_BeforeSize(t *testing.T) {
	m := New(Options{}, monitor.NewState(), &fakeCalibrator{})
	assert.Equal(t, "Initializing Strap Monitor...", m.View())
}

func TestInitSchedulesTick(t *testing.T) {
	m := New(Options{FPS: 10}, monitor.NewState(), &fakeCalibrator{})
	assert.NotNil(t, m.Init())
	assert.Equal(t, 10, m.opts.FPS)
}

func TestTickSnapshotsState(t *testing.T) {
	m, state := newModel(t, &fakeCalibrator{})
	assert.Contains(t, m.View(), "Disconnected")

	state.MarkConnected("AA:BB:CC:DD:EE:FF", "Espressif", -58)
	state.SetZone(encoder.ZoneMaybeLoose)

	// The view reads the cached snapshot, not the live state.
	assert.Contains(t, m.View(), "Waiting for Data")

	next, cmd := m.Update(TickMsg(time.Now()))
	require.NotNil(t, cmd)
	m = next.(AppModel)

	view := m.View()
	assert.Contains(t, view, "Connected")
	assert.Contains(t, view, "Strap May Be Loose")
	assert.Contains(t, view, "AA:BB:CC:DD:EE:FF")
}

func TestKeyTogglesCalibration(t *testing.T) {
	cal := &fakeCalibrator{}
	m, _ := newModel(t, cal)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	m = next.(AppModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(AppModel)

	assert.Equal(t, 2, cal.calls)
	assert.Equal(t, "Starting calibration...", m.notice)
}

func TestToggleWhileDisconnectedShowsNotice(t *testing.T) {
	cal := &fakeCalibrator{err: bluetooth.ErrNotConnected}
	m, _ := newModel(t, cal)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	m = next.(AppModel)

	assert.Equal(t, 1, cal.calls)
	assert.Contains(t, m.View(), "Not connected - cannot toggle calibration")
}

func TestToggleOtherErrorShowsMessage(t *testing.T) {
	cal := &fakeCalibrator{err: errors.New("adapter gone")}
	m, _ := newModel(t, cal)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'C'}})
	assert.Equal(t, "adapter gone", next.(AppModel).notice)
}

func TestNoticeExpires(t *testing.T) {
	cal := &fakeCalibrator{err: bluetooth.ErrNotConnected}
	m, _ := newModel(t, cal)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	m = next.(AppModel)
	require.NotEmpty(t, m.notice)

	next, _ = m.Update(TickMsg(m.now().Add(time.Second)))
	m = next.(AppModel)
	assert.NotEmpty(t, m.notice)

	next, _ = m.Update(TickMsg(m.now().Add(10 * time.Second)))
	m = next.(AppModel)
	assert.Empty(t, m.notice)
}

func TestMouseClickOnButton(t *testing.T) {
	cal := &fakeCalibrator{}
	m, _ := newModel(t, cal)
	r := ui.CalibrationButtonRect(0, menuHeight)

	click := func(x, y int, action tea.MouseAction, button tea.MouseButton) {
		next, _ := m.Update(tea.MouseMsg{X: x, Y: y, Action: action, Button: button})
		m = next.(AppModel)
	}

	click(r.X+2, r.Y+1, tea.MouseActionPress, tea.MouseButtonLeft)
	assert.Equal(t, 1, cal.calls)

	click(r.X+2, r.Y+1, tea.MouseActionRelease, tea.MouseButtonLeft)
	click(r.X+2, r.Y+1, tea.MouseActionPress, tea.MouseButtonRight)
	click(r.X+r.W+5, r.Y+1, tea.MouseActionPress, tea.MouseButtonLeft)
	click(r.X, r.Y+r.H, tea.MouseActionPress, tea.MouseButtonLeft)
	assert.Equal(t, 1, cal.calls, "only a left press inside the button toggles")
}

func TestLinkEventsFeedLog(t *testing.T) {
	m, _ := newModel(t, &fakeCalibrator{})

	events := []monitor.Event{
		{Kind: monitor.EventConnected, Detail: "AA:BB"},
		{Kind: monitor.EventZone, Zone: encoder.ZoneTight},
		{Kind: monitor.EventZone, Zone: encoder.ZoneLoose},
	}
	for _, e := range events {
		next, cmd := m.Update(bluetooth.LinkEventMsg{Event: e})
		assert.Nil(t, cmd)
		m = next.(AppModel)
	}

	assert.Equal(t, 3, m.shared.events.Len())
	assert.Equal(t, []encoder.Zone{encoder.ZoneTight, encoder.ZoneLoose}, m.shared.events.Zones())
	assert.Contains(t, m.View(), "EVENTS [3]")
}

func TestQuitKeys(t *testing.T) {
	m, _ := newModel(t, &fakeCalibrator{})

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}
