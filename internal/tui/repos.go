package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autodevhq/autodev/internal/store"
)

// ReposModel lists registered repositories and whether the daemon is
// currently watching them.
type ReposModel struct {
	st      *store.Store
	width   int
	height  int
	repos   []store.Repository
	loadErr error
}

type reposLoadedMsg struct {
	repos []store.Repository
	err   error
}

func NewReposModel(st *store.Store) ReposModel {
	return ReposModel{st: st}
}

func (m ReposModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ReposModel) loadCmd() tea.Cmd {
	st := m.st
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		repos, err := st.AllRepos(ctx)
		return reposLoadedMsg{repos: repos, err: err}
	}
}

func (m ReposModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reposLoadedMsg:
		m.repos = msg.repos
		m.loadErr = msg.err
		return m, tea.Tick(10*time.Second, func(time.Time) tea.Msg { return m.loadCmd()() })
	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.loadCmd()
		}
	}
	return m, nil
}

func (m *ReposModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m ReposModel) View() string {
	if m.loadErr != nil {
		return panelStyle.Width(maxInt(20, m.width-2)).Render(dimStyle.Render("error: " + m.loadErr.Error()))
	}

	rows := ""
	for _, r := range m.repos {
		state := mutedBadgeStyle.Render("disabled")
		if r.Enabled {
			state = lipgloss.NewStyle().Foreground(bgDark).Background(green).Padding(0, 1).Render("enabled")
		}
		rows += lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(40).Foreground(ink).Render(truncate(r.FullName, 38)),
			lipgloss.NewStyle().Width(14).Render(state),
			dimStyle.Render(r.URL),
		) + "\n"
	}
	if len(m.repos) == 0 {
		rows = dimStyle.Render("No repositories registered. Run: autodev repo add <url>\n")
	}

	return panelStyle.Width(maxInt(20, m.width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			panelHeaderStyle.Render("Registered Repositories"),
			dimStyle.Render("FULL NAME                               STATE         URL"),
			rows,
		),
	)
}
