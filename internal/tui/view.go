package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tminus/internal/models"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	if m.editing {
		content = docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Set countdown target"),
			m.form.View(),
			m.viewError(),
		))
	} else {
		content = m.viewCountdown()
	}

	ui := lipgloss.JoinVertical(lipgloss.Left, content, m.help.View(m.keys))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, ui)
	}
	return ui
}

func (m Model) viewCountdown() string {
	text := m.text
	if m.state == models.StateCompleted {
		text = completeStyle.Render(text)
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("T-minus (%s)", m.state)),
		countdownStyle.Render(text),
	}
	if m.storeName != "" {
		lines = append(lines, targetStyle.Render(m.storeName))
	}
	if m.status != "" {
		lines = append(lines, warningStyle.Render(m.status))
	}
	if e := m.viewError(); e != "" {
		lines = append(lines, e)
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m Model) viewError() string {
	if m.errText == "" {
		return ""
	}
	return dangerStyle.Render(m.errText)
}
