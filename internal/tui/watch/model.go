package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/forgeline/internal/events"
)

const maxLogLines = 50

type eventMsg events.StatusEvent

type subClosedMsg struct{}

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	sub    <-chan events.StatusEvent
	cancel func()

	width  int
	height int

	spinner spinner.Model
	theme   Theme

	// Newest-first transition log plus terminal-status tallies. lastSeq
	// dedupes the backfill snapshot against the live subscription.
	log       []events.StatusEvent
	lastSeq   int64
	succeeded int
	failed    int
	skipped   int
}

// New creates a watch model subscribed to the hub. The hub's buffered history
// is replayed first, so attaching mid-dispatch shows what already happened.
func New(hub *events.Hub) *Model {
	sub, cancel := hub.Subscribe()
	m := newModel(sub, cancel)
	for _, e := range hub.SnapshotSince(0) {
		m.ingest(e)
	}
	return m
}

// newModel wraps an arbitrary event feed; RunRemote supplies one backed by a
// polling HTTP client instead of an in-process hub.
func newModel(sub <-chan events.StatusEvent, cancel func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Model{
		sub:     sub,
		cancel:  cancel,
		spinner: s,
		theme:   NewDefaultTheme(),
	}
}

// ingest folds one status transition into the log and tallies. Events already
// seen (by Seq) are dropped.
func (m *Model) ingest(e events.StatusEvent) {
	if e.Seq <= m.lastSeq {
		return
	}
	m.lastSeq = e.Seq

	m.log = append([]events.StatusEvent{e}, m.log...)
	if len(m.log) > maxLogLines {
		m.log = m.log[:maxLogLines]
	}

	switch e.Status {
	case "succeeded":
		m.succeeded++
	case "failed":
		m.failed++
	case "skipped":
		m.skipped++
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		receiveNextEvent(m.sub),
		tea.EnterAltScreen,
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		m.ingest(events.StatusEvent(msg))
		return m, receiveNextEvent(m.sub)

	case subClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("forgeline dispatch watch"))
	b.WriteString("  " + m.spinner.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Header.Render(fmt.Sprintf("succeeded %d  failed %d  skipped %d", m.succeeded, m.failed, m.skipped)))
	b.WriteString("\n\n")

	visible := m.log
	if m.height > 6 && len(visible) > m.height-6 {
		visible = visible[:m.height-6]
	}
	for _, e := range visible {
		line := fmt.Sprintf("%s  %-18s %-28s %s",
			e.At.Format("15:04:05"), e.Kind, e.Target, e.Status)
		if e.Detail != "" {
			line += "  " + m.theme.Dim.Render(e.Detail)
		}
		b.WriteString(m.theme.styleFor(e.Status).Render(line))
		b.WriteString("\n")
	}

	if len(m.log) == 0 {
		b.WriteString(m.theme.Dim.Render("waiting for dispatch activity... (q to quit)"))
		b.WriteString("\n")
	}

	return b.String()
}

// receiveNextEvent waits for one event from the hub subscription.
func receiveNextEvent(sub <-chan events.StatusEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-sub
		if !ok {
			return subClosedMsg{}
		}
		return eventMsg(e)
	}
}

// Run starts the watch TUI and blocks until the user quits.
func Run(hub *events.Hub) error {
	p := tea.NewProgram(New(hub))
	_, err := p.Run()
	return err
}
