package tui

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/OlenaTeqBlaze/adunit/internal/errors"
	"github.com/OlenaTeqBlaze/adunit/internal/event"
	"github.com/OlenaTeqBlaze/adunit/internal/interstitial"
	"github.com/OlenaTeqBlaze/adunit/internal/simulator"
	"github.com/OlenaTeqBlaze/adunit/internal/tui/styles"
)

// maxLogEntries bounds the event log shown on screen.
const maxLogEntries = 12

// tickMsg is sent periodically to refresh the display
type tickMsg time.Time

// logEntry is one line of the event log.
type logEntry struct {
	at        time.Time
	eventType string
	cycleID   string
	err       error
}

// eventLog collects bus events for display.
type eventLog struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *eventLog) add(e event.Event) {
	le, ok := e.(event.LifecycleEvent)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{
		at:        le.Timestamp(),
		eventType: le.EventType(),
		cycleID:   le.CycleID,
		err:       le.Err,
	})
	if len(l.entries) > maxLogEntries {
		l.entries = l.entries[len(l.entries)-maxLogEntries:]
	}
}

func (l *eventLog) snapshot() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]logEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Model is the Bubbletea model for the interactive simulator.
type Model struct {
	ctx   context.Context
	unit  *interstitial.Unit
	coord *simulator.Coordinator
	sched *Scheduler
	log   *eventLog

	bus          *event.Bus
	subscription string

	host     *interstitial.Host
	hostName string
	hosts    int

	status    string
	statusErr bool

	width    int
	height   int
	quitting bool
}

// NewModel creates a model driving unit through coord. Task messages are
// executed through sched, and every lifecycle event published on bus is
// shown in the event log until Detach.
func NewModel(ctx context.Context, unit *interstitial.Unit, coord *simulator.Coordinator, sched *Scheduler, bus *event.Bus) Model {
	m := Model{
		ctx:   ctx,
		unit:  unit,
		coord: coord,
		sched: sched,
		log:   &eventLog{},
		bus:   bus,
	}
	if bus != nil {
		m.subscription = bus.SubscribeAll(m.log.add)
	}
	m.newHost()
	return m
}

// Detach stops feeding bus events into the event log.
func (m Model) Detach() {
	if m.bus != nil {
		m.bus.Unsubscribe(m.subscription)
	}
}

func (m *Model) newHost() {
	m.hosts++
	m.hostName = fmt.Sprintf("screen-%d", m.hosts)
	m.host = interstitial.NewHost(m.hostName)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.sched.claim()

	switch msg := msg.(type) {
	case taskMsg:
		m.sched.run(msg)
		return m, nil

	case tickMsg:
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "l":
		m.unit.LoadAd(m.ctx)
		m.setStatus("load requested", false)

	case "s":
		before := m.unit.Phase()
		err := m.unit.Show(m.host)
		after := m.unit.Phase()
		switch {
		case err != nil && errors.IsUserFacing(err):
			m.setStatus(err.Error(), true)
		case err != nil:
			m.setStatus("show rejected, see log", true)
		case before == interstitial.PhaseReady && after == interstitial.PhaseShowing:
			m.setStatus("presenting on "+m.hostName, false)
		case before == interstitial.PhaseShowing:
			m.setStatus(fmt.Sprintf("show ignored: %v", errors.ErrAlreadyShowing), true)
		default:
			m.setStatus(fmt.Sprintf("show ignored: %v (%s)", errors.ErrNotReady, before), true)
		}

	case "c":
		if m.coord.Click() {
			m.setStatus("clicked", false)
		} else {
			m.setStatus("nothing on screen to click", true)
		}

	case "x":
		if m.coord.LeaveApp() {
			m.setStatus("left the app", false)
		} else {
			m.setStatus("nothing on screen", true)
		}

	case "d":
		if m.coord.Dismiss() {
			m.setStatus("dismissed", false)
		} else {
			m.setStatus("nothing on screen to dismiss", true)
		}

	case "r":
		m.host = nil
		runtime.GC()
		m.setStatus("released "+m.hostName, false)

	case "n":
		m.newHost()
		m.setStatus("attached "+m.hostName, false)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render("adunit " + m.unit.ID()))
	b.WriteString("\n")
	b.WriteString(styles.StatusBox.Render(m.renderStatus()))
	b.WriteString("\n")
	b.WriteString(styles.EventLog.Render(m.renderLog()))
	b.WriteString("\n")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(styles.WarningMsg.Render(m.status))
		} else {
			b.WriteString(styles.SuccessMsg.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(renderHelp())
	return b.String()
}

func (m Model) renderStatus() string {
	phase := m.unit.Phase().String()
	badge := styles.PhaseBadge.
		Background(styles.PhaseColor(phase)).
		Render(styles.PhaseIcon(phase) + " " + phase)

	ready := styles.Muted.Render("no")
	if m.unit.IsReady() {
		ready = styles.Secondary.Render("yes")
	}

	host := styles.Muted.Render("released")
	if m.host != nil {
		host = m.hostName
	}
	if presented := m.unit.PresentationHost(); presented != nil {
		host += styles.Primary.Render(" (presenting on " + presented.Name + ")")
	}

	cycle := shortCycle(m.unit.CycleID())

	stats := m.coord.Stats()
	lines := []string{
		styles.Label.Render("Phase") + badge,
		styles.Label.Render("Cycle") + cycle,
		styles.Label.Render("Ready") + ready,
		styles.Label.Render("Host") + host,
		styles.Label.Render("Network") + fmt.Sprintf("requests %d  fills %d  failures %d  shown %d  dismissed %d",
			stats.Requests, stats.Fills, stats.Failures, stats.Presentations, stats.Dismissals),
	}
	for i, line := range lines {
		lines[i] = fitWidth(line, m.contentWidth())
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// contentWidth is the usable width inside a bordered, padded box.
func (m Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(m.width-4, 4)
}

func (m Model) renderLog() string {
	entries := m.log.snapshot()
	if len(entries) == 0 {
		return styles.Muted.Render("no events yet")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := styles.EventTime.Render(e.at.Format("15:04:05.000")) +
			lipgloss.NewStyle().Foreground(styles.EventColor(e.eventType)).Render(fmt.Sprintf("%-18s", e.eventType)) +
			styles.Muted.Render(shortCycle(e.cycleID))
		if e.err != nil {
			line += " " + styles.Error.Render(e.err.Error())
			if errors.IsRetryable(e.err) {
				line += styles.Warning.Render(" (retryable)")
			}
		}
		lines = append(lines, fitWidth(line, m.contentWidth()))
	}
	return strings.Join(lines, "\n")
}

func shortCycle(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderHelp() string {
	keys := []struct{ key, desc string }{
		{"l", "load"},
		{"s", "show"},
		{"c", "click"},
		{"x", "leave app"},
		{"d", "dismiss"},
		{"r", "release host"},
		{"n", "new host"},
		{"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = styles.HelpKey.Render(k.key) + " " + k.desc
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
