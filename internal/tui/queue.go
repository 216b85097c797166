package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autodevhq/autodev/internal/snapshot"
)

// QueueModel renders the live work snapshot: aggregate counters and every
// active item across the issue, PR, and merge queues, in a bubbles/table.
type QueueModel struct {
	home     string
	width    int
	height   int
	status   *snapshot.Status
	loadErr  error
	lastLoad time.Time
	table    table.Model
}

type queueLoadedMsg struct {
	status *snapshot.Status
	err    error
}

func NewQueueModel(home string) QueueModel {
	cols := []table.Column{
		{Title: "KIND", Width: 8},
		{Title: "REPOSITORY", Width: 28},
		{Title: "PHASE", Width: 18},
		{Title: "TITLE", Width: 36},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(false))
	t.SetStyles(tableStyles())
	return QueueModel{home: home, table: t}
}

func (m QueueModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m QueueModel) loadCmd() tea.Cmd {
	home := m.home
	return func() tea.Msg {
		st, err := snapshot.Read(home)
		return queueLoadedMsg{status: st, err: err}
	}
}

func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case queueLoadedMsg:
		m.status = msg.status
		m.loadErr = msg.err
		m.lastLoad = time.Now()
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg { return m.loadCmd()() })
	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.loadCmd()
		}
	}
	return m, nil
}

func (m *QueueModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	lineLimit := h - 12
	if lineLimit < 3 {
		lineLimit = 3
	}
	m.table.SetHeight(lineLimit)
}

func (m QueueModel) View() string {
	if m.status == nil {
		if m.loadErr != nil {
			return panelStyle.Width(maxInt(20, m.width-2)).Render(
				dimStyle.Render("daemon not running or status unavailable: " + m.loadErr.Error()))
		}
		return panelStyle.Width(maxInt(20, m.width-2)).Render("Loading status...")
	}

	c := m.status.Counters
	cardW := 16
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCounter("WIP", c.WIP, wipStyle, cardW),
		renderCounter("Done", c.Done, doneStyle, cardW),
		renderCounter("Skip", c.Skip, skipStyle, cardW),
		renderCounter("Failed", c.Failed, failedStyle, cardW),
	)

	rows := make([]table.Row, 0, len(m.status.ActiveItems))
	for _, it := range m.status.ActiveItems {
		rows = append(rows, table.Row{
			it.Kind,
			truncate(it.RepoName, 28),
			phaseBadge(it.Phase),
			truncate(it.Title, 36),
		})
	}
	m.table.SetRows(rows)

	body := m.table.View()
	if len(rows) == 0 {
		body = dimStyle.Render("No active work. The queues are empty.")
	}

	updated := "never"
	if !m.lastLoad.IsZero() {
		updated = m.lastLoad.Format("15:04:05")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(maxInt(20, m.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Active Items"),
				body,
				dimStyle.Render(fmt.Sprintf("r refresh   updated %s   uptime %ds", updated, m.status.UptimeSecs)),
			),
		),
	)
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(label),
		),
	) + "  "
}
