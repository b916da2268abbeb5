package app

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"strap-monitor.klederson.com/internal/bluetooth"
	"strap-monitor.klederson.com/internal/config"
	"strap-monitor.klederson.com/internal/monitor"
	"strap-monitor.klederson.com/internal/ui"
)

// Calibrator flips the strap's calibration mode; *bluetooth.Link implements it.
type Calibrator interface {
	ToggleCalibration() error
}

// Options configures the model.
type Options struct {
	Demo       bool
	Adapter    string
	DeviceName string
	FPS        int
}

// shared holds state shared between the Bubble Tea model copies.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	state  *monitor.State
	events *monitor.EventRing
	link   Calibrator
}

// AppModel is the root Bubble Tea model for the strap monitor.
type AppModel struct {
	width  int
	height int

	opts   Options
	shared *shared

	// Cached snapshot, refreshed every tick
	snap monitor.Snapshot

	notice      string
	noticeUntil time.Time
	now         func() time.Time
}

// New creates a new AppModel reading state and sending calibration
// requests to link.
func New(opts Options, state *monitor.State, link Calibrator) AppModel {
	if opts.FPS <= 0 {
		opts.FPS = config.TargetFPS
	}
	return AppModel{
		opts: opts,
		shared: &shared{
			state:  state,
			events: monitor.NewEventRing(config.EventHistory),
			link:   link,
		},
		snap: state.Snapshot(),
		now:  time.Now,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.tickCmd()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case TickMsg:
		m.snap = m.shared.state.Snapshot()
		if m.notice != "" && !time.Time(msg).Before(m.noticeUntil) {
			m.notice = ""
		}
		return m, m.tickCmd()

	case bluetooth.LinkEventMsg:
		m.shared.events.Push(msg.Event)
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		return m, tea.Quit

	case "c", "C", " ", "enter":
		m.toggleCalibration()
	}

	return m, nil
}

func (m AppModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if ui.CalibrationButtonRect(0, menuHeight).Contains(msg.X, msg.Y) {
		m.toggleCalibration()
	}
	return m, nil
}

func (m *AppModel) toggleCalibration() {
	err := m.shared.link.ToggleCalibration()
	switch {
	case errors.Is(err, bluetooth.ErrNotConnected):
		m.setNotice("Not connected - cannot toggle calibration")
	case err != nil:
		m.setNotice(err.Error())
	case m.snap.Calibrating:
		m.setNotice("Stopping calibration...")
	default:
		m.setNotice("Starting calibration...")
	}
}

func (m *AppModel) setNotice(s string) {
	m.notice = s
	m.noticeUntil = m.now().Add(config.NoticeTTL)
}

const (
	menuHeight   = 1
	statusHeight = 1
)

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing Strap Monitor..."
	}

	bodyH := m.height - menuHeight - statusHeight
	if bodyH < 20 {
		bodyH = 20
	}

	logW := m.width * 2 / 5
	if logW < 24 {
		logW = 24
	}
	panelW := m.width - logW
	if panelW < ui.ButtonWidth+8 {
		panelW = ui.ButtonWidth + 8
	}

	menuBar := ui.RenderMenuBar(m.width, m.opts.Adapter, m.opts.Demo)
	statusPanel := ui.RenderStatusPanel(m.snap, m.shared.events.Zones(), m.notice, panelW, bodyH)
	eventLog := ui.RenderEventLog(m.shared.events.Values(), logW, bodyH)
	statusBar := ui.RenderStatusBar(m.width, m.opts.DeviceName, m.snap, m.now())

	return ui.ComposeLayout(menuBar, statusPanel, eventLog, statusBar)
}

func (m AppModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
