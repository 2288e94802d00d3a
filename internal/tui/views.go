package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/trackhub/trackhub/internal/cli"
	"github.com/trackhub/trackhub/internal/model"
)

// View renders the session.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case StateLoading:
		return m.centered(cli.SubtleStyle.Render("Loading review queue..."))
	case StatePick:
		return m.renderPick()
	case StateHelp:
		return m.renderHelp()
	case StateDone:
		return m.renderDone()
	default:
		return m.renderReview()
	}
}

// renderReview shows the entry card under the cursor.
func (m Model) renderReview() string {
	entry := m.current()
	if entry == nil {
		return m.renderDone()
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Bottom,
		cli.FormatTitle("Review carrier guesses"),
		cli.SubtitleStyle.Render(fmt.Sprintf("  %d of %d", m.cursor+1, len(m.queue))),
	)

	card := m.renderEntryCard(entry)

	sections := []string{header, card, ""}
	if m.saving {
		sections = append(sections, cli.SubtleStyle.Render("Saving..."))
	} else {
		sections = append(sections, renderHints(m.keymap.ShortHelp()))
	}
	sections = append(sections, m.renderProgress())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderEntryCard shows one entry's identifying details.
func (m Model) renderEntryCard(entry *model.Entry) string {
	lines := []string{
		fmt.Sprintf("%-10s %s", "Number", cli.BoldStyle.Render(entry.Display)),
		fmt.Sprintf("%-10s %s  (%s)", "Carrier",
			entry.Carrier.DisplayName(), cli.FormatConfidence(entry.Confidence)),
		fmt.Sprintf("%-10s %s %s", "Status",
			cli.StatusIcon(entry.Status), cli.FormatStatus(entry.Status)),
	}

	if entry.Label != "" {
		lines = append(lines, fmt.Sprintf("%-10s %s", "Label", entry.Label))
	}
	if entry.Origin != "" {
		lines = append(lines, fmt.Sprintf("%-10s %s", "Origin", entry.Origin))
	}
	lines = append(lines, fmt.Sprintf("%-10s %s", "Added",
		cli.SubtleStyle.Render(entry.CreatedAt.Format("Jan 2, 2006"))))

	return cli.RenderBox(entry.Display, strings.Join(lines, "\n"))
}

// renderPick shows the carrier picker for the current entry.
func (m Model) renderPick() string {
	entry := m.current()
	if entry == nil {
		return m.renderDone()
	}

	title := cli.FormatTitle("Choose carrier")
	subtitle := cli.SubtitleStyle.Render("for " + entry.Display)

	rows := make([]string, 0, len(m.carriers))
	for i, c := range m.carriers {
		row := fmt.Sprintf("[%d] %s", i+1, c.DisplayName())
		if i == m.pick {
			row = cli.PromptStyle.Render("→ " + row)
		} else {
			row = "  " + row
		}
		rows = append(rows, row)
	}

	hints := renderHints([]key.Binding{m.keymap.Select, m.keymap.Back, m.keymap.Quit})

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		subtitle,
		strings.Join(rows, "\n"),
		"",
		hints,
	)
}

// renderDone shows the end-of-session summary.
func (m Model) renderDone() string {
	if len(m.queue) == 0 && m.lastErr == nil {
		content := lipgloss.JoinVertical(
			lipgloss.Center,
			cli.FormatSuccess("Nothing needs review"),
			"",
			cli.SubtleStyle.Render("Every entry's carrier is already confirmed. "+cli.PackageIcon),
		)
		return m.centered(content)
	}

	s := m.summary()
	lines := []string{
		cli.FormatTitle("Review complete"),
		fmt.Sprintf("  %s %d accepted", cli.SuccessIcon, s.Accepted),
		fmt.Sprintf("  %s %d overridden", cli.SuccessIcon, s.Overridden),
	}
	if s.Remaining > 0 {
		lines = append(lines, cli.SubtleStyle.Render(fmt.Sprintf("  %d left for later", s.Remaining)))
	}
	lines = append(lines, "", cli.SubtleStyle.Render("Press q to exit"))

	return m.centered(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderHelp lists every key binding.
func (m Model) renderHelp() string {
	rows := []string{cli.FormatTitle("Keys")}
	for _, group := range m.keymap.FullHelp() {
		for _, b := range group {
			rows = append(rows, fmt.Sprintf("  %-12s %s",
				cli.InfoStyle.Render(b.Help().Key),
				b.Help().Desc))
		}
		rows = append(rows, "")
	}
	rows = append(rows, cli.SubtleStyle.Render("Press ? to close help"))

	return m.centered(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderProgress shows how much of the queue has been decided.
func (m Model) renderProgress() string {
	total := len(m.queue)
	if total == 0 {
		return ""
	}

	const width = 20
	done := m.accepted + m.overridden
	filled := width * done / total

	bar := cli.SuccessStyle.Render(strings.Repeat("█", filled)) +
		cli.SubtleStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %d/%d decided", bar, done, total)
}

// renderHints joins binding help texts into a one-line footer.
func renderHints(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, fmt.Sprintf("%s %s",
			cli.BoldStyle.Render(b.Help().Key),
			cli.SubtleStyle.Render(b.Help().Desc)))
	}
	return strings.Join(parts, "  ")
}

// centered places content in the middle of the terminal.
func (m Model) centered(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
