package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/autodevhq/autodev/internal/store"
)

// Tab identifies one dashboard section.
type Tab int

const (
	TabQueue Tab = iota
	TabRepos
)

var tabNames = []string{"Queue", "Repos"}

// App is the root bubbletea model for `autodev dashboard`.
type App struct {
	home      string
	width     int
	height    int
	activeTab Tab
	queue     QueueModel
	repos     ReposModel
}

// NewApp creates the dashboard application, polling home's status snapshot
// and st's repo registry.
func NewApp(home string, st *store.Store) *App {
	return &App{
		home:  home,
		queue: NewQueueModel(home),
		repos: NewReposModel(st),
	}
}

// Run starts the bubbletea program.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.queue.Init(), a.repos.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentW := msg.Width - 2
		if contentW < 20 {
			contentW = 20
		}
		contentH := msg.Height - 7
		if contentH < 8 {
			contentH = 8
		}
		a.queue.SetSize(contentW, contentH)
		a.repos.SetSize(contentW, contentH)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.activeTab = TabQueue
		case "2":
			a.activeTab = TabRepos
		case "tab":
			a.activeTab = (a.activeTab + 1) % Tab(len(tabNames))
		case "shift+tab":
			a.activeTab--
			if a.activeTab < 0 {
				a.activeTab = Tab(len(tabNames) - 1)
			}
		}
	}

	switch a.activeTab {
	case TabQueue:
		newQueue, cmd := a.queue.Update(msg)
		a.queue = newQueue.(QueueModel)
		cmds = append(cmds, cmd)
	case TabRepos:
		newRepos, cmd := a.repos.Update(msg)
		a.repos = newRepos.(ReposModel)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	nav := a.renderTabs()

	var content string
	switch a.activeTab {
	case TabQueue:
		content = a.queue.View()
	case TabRepos:
		content = a.repos.View()
	}

	contentBox := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		MaxHeight(maxInt(1, a.height-4)).
		Render(content)

	status := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slateDim).
		Render("tab next  shift+tab prev  1-2 jump  r refresh  q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, contentBox, status)
}

func (a *App) renderHeader() string {
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("autodev"),
		"  ",
		dimStyle.Render("autonomous development orchestrator"),
		"  ",
		mutedBadgeStyle.Render(" "+tabNames[a.activeTab]+" "),
	)
	return lipgloss.NewStyle().
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(line).
		Width(a.width).
		Padding(0, 1).
		Render(row)
}

func (a *App) renderTabs() string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if Tab(i) == a.activeTab {
			parts = append(parts, lipgloss.NewStyle().Bold(true).Foreground(accent).Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
		if i < len(tabNames)-1 {
			parts = append(parts, dimStyle.Render("  ·  "))
		}
	}
	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slate).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, parts...))
}
