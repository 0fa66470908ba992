// Package ui renders the live terminal dashboard: current narratives with
// their tiers, the latest insights, and per-cycle stats. The engine runs
// headless without it.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glitchymagic/cardpulse/internal/card"
	"github.com/glitchymagic/cardpulse/internal/engine"
)

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorCritical  = lipgloss.Color("196") // Red
	colorStrong    = lipgloss.Color("214") // Orange
	colorSuccess   = lipgloss.Color("78")  // Green

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Padding(0, 1)

	insightStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Padding(0, 1)

	waitingStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Padding(1, 1)
)

// cycleMsg carries one analysis cycle's result into the UI.
type cycleMsg engine.CycleResult

// Dashboard is the Bubble Tea model for the live view.
type Dashboard struct {
	events  <-chan engine.CycleResult
	spinner spinner.Model
	table   table.Model
	last    *engine.CycleResult
	width   int
}

// NewDashboard creates a dashboard fed by the engine's event channel.
func NewDashboard(events <-chan engine.CycleResult) *Dashboard {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(colorHighlight)))

	cols := []table.Column{
		{Title: "Entity", Width: 24},
		{Title: "Platforms", Width: 18},
		{Title: "Strength", Width: 9},
		{Title: "Archetype", Width: 20},
		{Title: "Tier", Width: 9},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return &Dashboard{events: events, spinner: sp, table: t}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.waitForCycle())
}

// waitForCycle blocks on the engine's event channel.
func (d *Dashboard) waitForCycle() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-d.events
		if !ok {
			return tea.Quit()
		}
		return cycleMsg(result)
	}
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		return d, nil

	case cycleMsg:
		result := engine.CycleResult(msg)
		d.last = &result
		d.table.SetRows(narrativeRows(result.Narratives))
		return d, d.waitForCycle()

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d *Dashboard) View() string {
	s := titleStyle.Render("cardpulse") + "\n\n"

	if d.last == nil {
		s += waitingStyle.Render(d.spinner.View() + " waiting for first analysis cycle...")
		return s + "\n"
	}

	s += d.table.View() + "\n"

	for _, in := range d.last.Insights {
		s += insightStyle.Render("→ "+in.Summary) + "\n"
	}

	s += statusStyle.Render(fmt.Sprintf(
		"cycle %s · %d signals · %d narratives · %d eligible · q to quit",
		d.last.At.Format(time.Kitchen),
		d.last.Stats.LiveSignals,
		d.last.Stats.Narratives,
		d.last.Stats.Eligible,
	))
	return s + "\n"
}

func narrativeRows(narratives []card.Narrative) []table.Row {
	rows := make([]table.Row, 0, len(narratives))
	for _, n := range narratives {
		platforms := ""
		for i, p := range n.Platforms {
			if i > 0 {
				platforms += "+"
			}
			platforms += string(p)
		}
		archetype := "unclassified"
		if n.Classification != nil {
			archetype = n.Classification.Archetype
		}
		rows = append(rows, table.Row{
			n.EntityID,
			platforms,
			fmt.Sprintf("%.2f", n.TotalStrength),
			archetype,
			tierLabel(n.Tier),
		})
	}
	return rows
}

func tierLabel(t card.ActionTier) string {
	switch t {
	case card.TierCritical:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true).Render(string(t))
	case card.TierStrong:
		return lipgloss.NewStyle().Foreground(colorStrong).Render(string(t))
	default:
		return string(t)
	}
}
