// Package output provides styled terminal output helpers (success,
// error, todo formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/marcus/todosync/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// IsTTY reports whether stdout is a terminal. Styled output is skipped
// when piping.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatTodo renders a single todo as a list line.
func FormatTodo(t *models.Todo) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}

	title := t.Title
	if t.Completed {
		title = doneStyle.Render(title)
	} else {
		title = titleStyle.Render(title)
	}

	line := fmt.Sprintf("%3d %s %s", t.LocalID, check, title)

	var marks []string
	if t.Dirty() {
		marks = append(marks, pendingStyle.Render("pending"))
	}
	if t.SyncError != "" {
		marks = append(marks, failedStyle.Render("sync failed"))
	}
	if len(marks) > 0 {
		line += "  " + strings.Join(marks, " ")
	}
	return line
}

// FormatTodoLong renders a todo with its sync details.
func FormatTodoLong(t *models.Todo) string {
	var b strings.Builder
	b.WriteString(FormatTodo(t))
	b.WriteString("\n")

	b.WriteString(subtleStyle.Render(fmt.Sprintf("    created %s, updated %s",
		t.CreatedAt.Local().Format(time.DateTime),
		t.UpdatedAt.Local().Format(time.DateTime))))
	b.WriteString("\n")

	switch {
	case t.SyncedAt != nil:
		b.WriteString(subtleStyle.Render(fmt.Sprintf("    synced %s as %s",
			t.SyncedAt.Local().Format(time.DateTime), t.RemoteID)))
	case t.SyncError != "":
		b.WriteString(failedStyle.Render("    sync error: " + t.SyncError))
	default:
		b.WriteString(subtleStyle.Render("    never synced"))
	}
	return b.String()
}

// FormatOnline renders a connectivity flag for status output.
func FormatOnline(online bool) string {
	if online {
		return successStyle.Render("online")
	}
	return warningStyle.Render("offline")
}
