// Package tui provides the live Bubble Tea dashboard for pennywise watch.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pennywise/internal/cli"
	"pennywise/internal/metrics"
	"pennywise/internal/model"
)

// SnapshotMsg is sent whenever the engine settles a refresh.
type SnapshotMsg model.Snapshot

// MilestoneMsg is sent when a celebration milestone fires.
type MilestoneMsg model.Milestone

// Watch is the root Bubble Tea model for the live dashboard.
type Watch struct {
	events <-chan tea.Msg

	snap      model.Snapshot
	loaded    bool
	milestone *model.Milestone
	shownAt   time.Time

	spinner spinner.Model
	width   int
	height  int
}

// NewWatch builds the dashboard fed by engine events.
func NewWatch(events <-chan tea.Msg) Watch {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	return Watch{
		events:  events,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (w Watch) Init() tea.Cmd {
	return tea.Batch(w.spinner.Tick, w.waitForEvent())
}

func (w Watch) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-w.events
	}
}

// Update implements tea.Model.
func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return w, tea.Quit
		case "enter":
			w.milestone = nil
		}
		return w, nil

	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case SnapshotMsg:
		w.snap = model.Snapshot(msg)
		w.loaded = true
		return w, w.waitForEvent()

	case MilestoneMsg:
		m := model.Milestone(msg)
		w.milestone = &m
		w.shownAt = time.Now()
		return w, w.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		w.spinner, cmd = w.spinner.Update(msg)
		return w, cmd
	}

	return w, nil
}

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorText)
	watchLabelStyle = lipgloss.NewStyle().Foreground(cli.ColorTextMuted)
	watchValueStyle = lipgloss.NewStyle().Foreground(cli.ColorText)
	watchGoodStyle  = lipgloss.NewStyle().Foreground(cli.ColorGreen)
	watchWarnStyle  = lipgloss.NewStyle().Foreground(cli.ColorOrange)
	watchPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cli.ColorBorder).
			Padding(0, 2)
)

// View implements tea.Model.
func (w Watch) View() string {
	if !w.loaded {
		return fmt.Sprintf("\n\n  %s Loading budget snapshot...\n", w.spinner.View())
	}

	now := time.Now()
	snap := w.snap

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(watchTitleStyle.Render("  pennywise"))
	b.WriteString(watchLabelStyle.Render(fmt.Sprintf("  refreshed %s", snap.FetchedAt.Local().Format("3:04:05 PM"))))
	b.WriteString("\n\n")

	b.WriteString(w.renderToday(snap, now))
	b.WriteString("\n")
	b.WriteString(w.renderCategories(snap))
	b.WriteString("\n")
	b.WriteString(w.renderRecent(snap))

	if w.milestone != nil {
		b.WriteString("\n")
		b.WriteString(w.renderMilestone(*w.milestone))
	}

	b.WriteString("\n")
	b.WriteString(watchLabelStyle.Render("  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (w Watch) renderToday(snap model.Snapshot, now time.Time) string {
	spent := metrics.TodaySpent(snap, now)
	available := metrics.AvailableToday(snap)

	var rows []string
	rows = append(rows, fmt.Sprintf("%s %s",
		watchLabelStyle.Render("Spent today  "),
		watchValueStyle.Render(cli.FormatMoney(spent))))
	rows = append(rows, fmt.Sprintf("%s %s",
		watchLabelStyle.Render("Available    "),
		watchValueStyle.Render(cli.FormatMoney(available))))
	rows = append(rows, fmt.Sprintf("%s %s",
		watchLabelStyle.Render("This week    "),
		watchValueStyle.Render(cli.FormatMoney(metrics.WeekSpent(snap, now)))))
	rows = append(rows, fmt.Sprintf("%s %s",
		watchLabelStyle.Render("Rollover     "),
		watchGoodStyle.Render(cli.FormatMoney(snap.RolloverBudget))))
	rows = append(rows, fmt.Sprintf("%s %s  %s %s",
		watchLabelStyle.Render("Streak       "),
		watchValueStyle.Render(fmt.Sprintf("%d days", snap.StreakDays)),
		watchLabelStyle.Render("Resisted"),
		watchValueStyle.Render(fmt.Sprintf("%d", snap.ImpulsesAvoided))))
	rows = append(rows, "")
	rows = append(rows, cli.RenderBudgetBar(spent, available, 32))

	return watchPanelStyle.Render(strings.Join(rows, "\n"))
}

func (w Watch) renderCategories(snap model.Snapshot) string {
	if len(snap.CategoryLimits) == 0 {
		return ""
	}

	cats := make([]string, 0, len(snap.CategoryLimits))
	for c := range snap.CategoryLimits {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var rows []string
	for _, c := range cats {
		cl := snap.CategoryLimits[c]
		remaining := metrics.CategoryRemaining(snap, c)
		style := watchGoodStyle
		if remaining == 0 {
			style = watchWarnStyle
		}
		rows = append(rows, fmt.Sprintf("%s %s left of %s",
			watchLabelStyle.Render(fmt.Sprintf("%-14s", c)),
			style.Render(cli.FormatMoney(remaining)),
			watchValueStyle.Render(cli.FormatMoney(cl.MonthlyLimit))))
	}

	return watchPanelStyle.Render(strings.Join(rows, "\n"))
}

func (w Watch) renderRecent(snap model.Snapshot) string {
	if len(snap.Transactions) == 0 {
		return watchPanelStyle.Render(watchLabelStyle.Render("No transactions yet"))
	}

	txs := append([]model.Transaction(nil), snap.Transactions...)
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
	if len(txs) > 5 {
		txs = txs[:5]
	}

	var rows []string
	for _, t := range txs {
		impulse := ""
		if t.IsImpulse {
			impulse = watchWarnStyle.Render(" impulse")
		}
		rows = append(rows, fmt.Sprintf("%s  %s %s%s",
			watchLabelStyle.Render(cli.FormatDate(t.Date)),
			watchValueStyle.Render(fmt.Sprintf("%8s", cli.FormatMoney(t.Amount))),
			watchLabelStyle.Render(t.Category),
			impulse))
	}

	return watchPanelStyle.Render(strings.Join(rows, "\n"))
}

func (w Watch) renderMilestone(m model.Milestone) string {
	banner := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(cli.ColorGreen).
		Padding(0, 2)

	body := fmt.Sprintf("%s\n%s\n\n%s",
		watchGoodStyle.Bold(true).Render(m.Title),
		watchValueStyle.Render(m.Message),
		watchLabelStyle.Render("Enter to dismiss"))
	return banner.Render(body)
}
