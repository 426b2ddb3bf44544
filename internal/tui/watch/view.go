package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcus/todosync/internal/events"
	"github.com/marcus/todosync/internal/output"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	syncingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// renderView draws the whole screen.
func (m Model) renderView() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTodos())
	b.WriteString("\n")
	b.WriteString(m.renderFeed())
	b.WriteString(helpStyle.Render("s sync · r refresh · q quit"))
	return b.String()
}

func (m Model) renderHeader() string {
	status := output.FormatOnline(m.Online)
	if m.Syncing {
		status += "  " + syncingStyle.Render(m.Spinner.View()+"syncing")
	}

	pending := ""
	if m.Pending > 0 {
		pending = subtleStyle.Render(fmt.Sprintf("  %d pending", m.Pending))
	}

	return headerStyle.Render("todosync watch") + "  " + status + pending
}

func (m Model) renderTodos() string {
	if len(m.Todos) == 0 {
		return panelStyle.Render(subtleStyle.Render("no todos"))
	}

	lines := make([]string, 0, len(m.Todos))
	for _, t := range m.Todos {
		lines = append(lines, output.FormatTodo(t))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFeed() string {
	if len(m.Feed) == 0 {
		return panelStyle.Render(subtleStyle.Render("no sync activity yet"))
	}

	// Newest first, capped to a screenful.
	n := len(m.Feed)
	shown := 8
	if n < shown {
		shown = n
	}

	lines := make([]string, 0, shown)
	for i := n - 1; i >= n-shown; i-- {
		item := m.Feed[i]
		line := fmt.Sprintf("%s  %s", item.At.Format(time.TimeOnly), feedLabel(item))
		lines = append(lines, line)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func feedLabel(item FeedItem) string {
	switch item.Kind {
	case events.KindSyncStart:
		return syncingStyle.Render("sync started")
	case events.KindSyncComplete:
		return item.Message
	case events.KindSyncError:
		return errorStyle.Render("sync failed: " + item.Message)
	case events.KindOnlineStatusChange:
		return subtleStyle.Render("connectivity changed")
	}
	return item.Message
}
