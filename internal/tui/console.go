// Package tui is the terminal console for a running engine: the preset
// queue, preview playback and the most recent engine notifications.
package tui

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/events"
	"github.com/mattjoyce/lvsctl/internal/protocol"
)

const DefaultTick = 500 * time.Millisecond

// Controller is the part of the client the console drives.
type Controller interface {
	SetTimestamp(ms uint64) error
	LoadPreset(name string, startMs uint64) error
	DeletePreset(name string, atMs uint64) error
	StartPreview(fromMs uint64) error
	StopPreview() error
	State() client.State
}

type (
	tickMsg         time.Time
	eventMsg        events.Event
	eventsClosedMsg struct{}
	resultMsg       struct {
		action string
		quiet  bool
		err    error
	}
)

// Model is the BubbleTea model for the console.
type Model struct {
	ctrl   Controller
	events <-chan events.Event
	tick   time.Duration

	width  int
	height int

	state      client.State
	rows       []protocol.PresetQueueEntry
	positionMs uint64

	queue  table.Model
	input  textinput.Model
	adding bool

	activity  Activity
	theme     Theme
	lastEvent string
	status    string
	lastError string
}

// New builds a console over ctrl. feed is usually an events.Hub
// subscription; the console quits when it closes.
func New(ctrl Controller, feed <-chan events.Event, tick time.Duration) Model {
	if tick <= 0 {
		tick = DefaultTick
	}
	theme := NewDefaultTheme()

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Preset", Width: 36},
			{Title: "Start (s)", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(theme.Table)

	in := textinput.New()
	in.Placeholder = "preset-name@12.5"
	in.CharLimit = 256
	in.Width = 40

	m := Model{
		ctrl:   ctrl,
		events: feed,
		tick:   tick,
		queue:  t,
		input:  in,
		theme:  theme,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		receiveNextEvent(m.events),
		m.scheduleTick(),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.queue.SetHeight(max(3, msg.Height-14))

	case tickMsg:
		m.activity.Decay(time.Time(msg))
		m.refresh()
		if !m.state.IsPreviewPlaying {
			return m, m.scheduleTick()
		}
		m.positionMs += uint64(m.tick / time.Millisecond)
		return m, tea.Batch(m.sendTimestamp(m.positionMs), m.scheduleTick())

	case eventMsg:
		m.applyEvent(events.Event(msg))
		return m, receiveNextEvent(m.events)

	case eventsClosedMsg:
		return m, tea.Quit

	case resultMsg:
		m.refresh()
		if msg.err != nil {
			m.lastError = msg.err.Error()
		} else if !msg.quiet {
			m.status = msg.action
			m.lastError = ""
		}
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "a":
		m.adding = true
		m.input.Reset()
		return m, m.input.Focus()

	case "d":
		entry, ok := m.selected()
		if !ok {
			m.lastError = "no preset selected"
			return m, nil
		}
		return m, m.run(fmt.Sprintf("deleted %s at %ss", entry.PresetName, formatSeconds(entry.TimestampMs)), func() error {
			return m.ctrl.DeletePreset(entry.PresetName, entry.TimestampMs)
		})

	case "p":
		if m.state.IsPreviewPlaying {
			return m, m.run("preview stopped", m.ctrl.StopPreview)
		}
		from := m.positionMs
		return m, m.run(fmt.Sprintf("preview from %ss", formatSeconds(from)), func() error {
			return m.ctrl.StartPreview(from)
		})

	case "0":
		m.positionMs = 0
		return m, m.sendTimestamp(0)
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		name, startMs, err := parseSchedule(m.input.Value())
		if err != nil {
			m.lastError = err.Error()
			return m, nil
		}
		m.adding = false
		m.input.Blur()
		return m, m.run(fmt.Sprintf("added %s at %ss", name, formatSeconds(startMs)), func() error {
			return m.ctrl.LoadPreset(name, startMs)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyEvent folds one hub event into the view.
func (m *Model) applyEvent(ev events.Event) {
	m.activity.OnEvent(ev.At)
	m.lastEvent = ev.Type
	m.refresh()

	switch ev.Type {
	case protocol.KindPreviewStatus.String():
		var ps protocol.PreviewStatus
		if err := json.Unmarshal(ev.Data, &ps); err == nil {
			m.positionMs = ps.CurrentTimestampMs
		}
	case protocol.KindError.String():
		var er protocol.ErrorReport
		if err := json.Unmarshal(ev.Data, &er); err == nil {
			m.lastError = "engine: " + er.Error
		}
	case events.TypeEngineExited:
		m.lastError = "engine exited"
	}
}

// refresh pulls a fresh snapshot and rebuilds the table rows.
func (m *Model) refresh() {
	m.state = m.ctrl.State()
	m.rows = m.state.SortedQueue()

	rows := make([]table.Row, 0, len(m.rows))
	for i, e := range m.rows {
		rows = append(rows, table.Row{fmt.Sprint(i + 1), e.PresetName, formatSeconds(e.TimestampMs)})
	}
	m.queue.SetRows(rows)
	if c := m.queue.Cursor(); c >= len(rows) {
		m.queue.SetCursor(max(0, len(rows)-1))
	}
}

func (m Model) selected() (protocol.PresetQueueEntry, bool) {
	i := m.queue.Cursor()
	if i < 0 || i >= len(m.rows) {
		return protocol.PresetQueueEntry{}, false
	}
	return m.rows[i], true
}

func (m Model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{action: action, err: fn()}
	}
}

func (m Model) sendTimestamp(ms uint64) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return resultMsg{action: "timestamp", quiet: true, err: ctrl.SetTimestamp(ms)}
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}
