package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/blackjack/internal/deck"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Width(22)

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	actionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	redCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

// row renders an aligned "label value" line.
func row(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

// signed colours a value by the sign of n.
func signed(n float64, text string) string {
	switch {
	case n > 0:
		return winStyle.Render(text)
	case n < 0:
		return lossStyle.Render(text)
	}
	return text
}

// cardText renders a card with hearts and diamonds in red.
func cardText(c deck.Card) string {
	if c.Suit.IsRed() {
		return redCardStyle.Render(c.String())
	}
	return c.String()
}

func cardsText(cards []deck.Card) string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = cardText(c)
	}
	return strings.Join(out, " ")
}

func section(title string, rows ...string) string {
	return headerStyle.Render(title) + "\n" + strings.Join(rows, "\n") + "\n"
}
