// Package watch is the Bubble Tea model for the live sync monitor. It
// shows the local replica, the engine state and a feed of sync events.
package watch

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/todosync/internal/events"
	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/sync"
	"github.com/marcus/todosync/internal/todos"
)

// maxFeed is how many sync events the feed keeps.
const maxFeed = 50

// FeedItem is one entry in the event feed.
type FeedItem struct {
	At      time.Time
	Kind    events.Kind
	Message string
}

// TickMsg triggers a data refresh.
type TickMsg time.Time

// RefreshDataMsg carries the refreshed replica.
type RefreshDataMsg struct {
	Todos     []*models.Todo
	Pending   int
	Timestamp time.Time
}

// BusMsg wraps a sync event delivered through the event bus. The
// command layer forwards these into the program with Send.
type BusMsg events.Event

// Model is the main Bubble Tea model for the watch TUI.
type Model struct {
	Service *todos.Service
	Engine  *sync.Engine

	Width  int
	Height int

	Todos       []*models.Todo
	Pending     int
	Feed        []FeedItem
	Online      bool
	Syncing     bool
	LastRefresh time.Time
	Err         error

	Spinner         spinner.Model
	RefreshInterval time.Duration
}

// NewModel creates a watch model.
func NewModel(service *todos.Service, engine *sync.Engine, online bool, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		Service:         service,
		Engine:          engine,
		Online:          online,
		Spinner:         sp,
		RefreshInterval: interval,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchData(),
		m.scheduleTick(),
		m.Spinner.Tick,
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case RefreshDataMsg:
		m.Todos = msg.Todos
		m.Pending = msg.Pending
		m.LastRefresh = msg.Timestamp
		return m, nil

	case BusMsg:
		return m.handleBusEvent(events.Event(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleBusEvent folds a sync event into the feed and state flags.
func (m Model) handleBusEvent(ev events.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case events.KindSyncStart:
		m.Syncing = true
	case events.KindSyncComplete, events.KindSyncError:
		m.Syncing = false
	case events.KindOnlineStatusChange:
		m.Online = ev.IsOnline
	}

	m.Feed = append(m.Feed, FeedItem{At: time.Now(), Kind: ev.Kind, Message: ev.Message})
	if len(m.Feed) > maxFeed {
		m.Feed = m.Feed[len(m.Feed)-maxFeed:]
	}

	// A finished cycle changed the replica; refresh immediately.
	if ev.Kind == events.KindSyncComplete {
		return m, m.fetchData()
	}
	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "s":
		m.Engine.TriggerSync(sync.TriggerManual)
		return m, nil

	case "r":
		return m, m.fetchData()
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// fetchData returns a command that reloads the replica.
func (m Model) fetchData() tea.Cmd {
	service := m.Service
	return func() tea.Msg {
		all, err := service.List(false)
		if err != nil {
			return RefreshDataMsg{Timestamp: time.Now()}
		}
		pending, _ := service.Pending()
		return RefreshDataMsg{Todos: all, Pending: len(pending), Timestamp: time.Now()}
	}
}
