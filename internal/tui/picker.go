// Package tui provides terminal user interface components for grove-ctl
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devchain-engineering/devchain-grove/packages/grove-ctl/internal/worktree"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionDelete
	ActionMerge
	ActionLogs
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action   Action
	Worktree *worktree.Record
}

// worktreeItem implements list.Item for worktree display
type worktreeItem struct {
	rec *worktree.Record
}

func (i worktreeItem) Title() string {
	return i.rec.Name
}

func (i worktreeItem) Description() string {
	statusIcon := "●"
	switch i.rec.Status {
	case worktree.StatusRunning:
		statusIcon = "✓"
	case worktree.StatusError:
		statusIcon = "⚠"
	case worktree.StatusMerged:
		statusIcon = "◆"
	case worktree.StatusStopped, worktree.StatusCompleted:
		statusIcon = "○"
	}

	runtime := string(i.rec.RuntimeType)
	endpoint := "-"
	if p := i.rec.Port(); p != 0 {
		endpoint = fmt.Sprintf(":%d", p)
	}

	return fmt.Sprintf("%s %s | %s | %s | %s",
		statusIcon,
		i.rec.Status,
		runtime,
		endpoint,
		age(i.rec.CreatedAt),
	)
}

func (i worktreeItem) FilterValue() string {
	return i.rec.Name
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t).Round(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("35")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("35")).
			Bold(true)
)

// Model is the bubbletea model for the worktree picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new worktree picker
func NewPicker(records []*worktree.Record) Model {
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = worktreeItem{rec: rec}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "grove-ctl - Select Worktree"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter", "s":
			if item, ok := m.list.SelectedItem().(worktreeItem); ok {
				m.result = PickerResult{Action: ActionStart, Worktree: item.rec}
				m.quitting = true
				return m, tea.Quit
			}

		case "x":
			if item, ok := m.list.SelectedItem().(worktreeItem); ok {
				m.result = PickerResult{Action: ActionStop, Worktree: item.rec}
				m.quitting = true
				return m, tea.Quit
			}

		case "d":
			if item, ok := m.list.SelectedItem().(worktreeItem); ok {
				m.result = PickerResult{Action: ActionDelete, Worktree: item.rec}
				m.quitting = true
				return m, tea.Quit
			}

		case "m":
			if item, ok := m.list.SelectedItem().(worktreeItem); ok {
				m.result = PickerResult{Action: ActionMerge, Worktree: item.rec}
				m.quitting = true
				return m, tea.Quit
			}

		case "l":
			if item, ok := m.list.SelectedItem().(worktreeItem); ok {
				m.result = PickerResult{Action: ActionLogs, Worktree: item.rec}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Start  [x] Stop  [m] Merge  [l] Logs  [d] Delete  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive worktree picker
func RunPicker(records []*worktree.Record) (PickerResult, error) {
	if len(records) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	m := NewPicker(records)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimpleList is a non-interactive rendering of the worktree table
func SimpleList(records []*worktree.Record) string {
	var sb strings.Builder

	sb.WriteString("grove-ctl - Worktrees\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(records) == 0 {
		sb.WriteString("No worktrees found.\n")
		sb.WriteString("Create one with: grove-ctl create <name>\n")
		return sb.String()
	}

	for i, rec := range records {
		statusIcon := "●"
		switch rec.Status {
		case worktree.StatusRunning:
			statusIcon = "✓"
		case worktree.StatusError:
			statusIcon = "⚠"
		case worktree.StatusStopped, worktree.StatusCompleted:
			statusIcon = "○"
		}

		sb.WriteString(fmt.Sprintf("%d. %s %s (%s on %s)\n",
			i+1, statusIcon, rec.Name, rec.BranchName, rec.BaseBranch))
		sb.WriteString(fmt.Sprintf("   Status: %s | Runtime: %s | Port: %d\n\n",
			rec.Status, rec.RuntimeType, rec.Port()))
	}

	return sb.String()
}
