package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/shopsearch/internal/domain/state"
	"github.com/kailas-cloud/shopsearch/internal/usecase/grid"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	highStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	moderateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	candidateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// renderResults formats one grid page for the terminal.
func renderResults(st state.State, v grid.View, elapsed time.Duration) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(st.Query))
	b.WriteString("\n")

	switch {
	case st.Error != "":
		b.WriteString(errorStyle.Render(st.Error))
		b.WriteString("\n")
		return b.String()
	case v.Total == 0:
		b.WriteString(noDataStyle.Render(grid.EmptyMessage(st.Query)))
		b.WriteString("\n")
		return b.String()
	}

	for _, it := range v.Items {
		b.WriteString(renderCard(it))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("%s · page %d/%d · %s", v.Summary, v.Page, v.TotalPages, elapsed.Round(time.Millisecond))
	b.WriteString(metaStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func renderCard(it grid.Item) string {
	var lines []string
	lines = append(lines, nameStyle.Render(it.ProductDisplayName))

	label := fmt.Sprintf("%s · %.1f%%", it.Confidence, it.Percent)
	lines = append(lines, confidenceStyle(it.Similarity).Render(label))

	image := "No image"
	if it.ShowImage {
		image = it.ImageURL
	}
	lines = append(lines, metaStyle.Render(fmt.Sprintf("ID: %s · %s", it.ID, image)))

	if attrs := strings.Join(nonEmpty(it.MasterCategory, it.SubCategory, it.BaseColour), " / "); attrs != "" {
		lines = append(lines, metaStyle.Render(attrs))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func confidenceStyle(similarity float64) lipgloss.Style {
	switch {
	case similarity >= grid.HighMatchThreshold:
		return highStyle
	case similarity >= grid.ModerateMatchThreshold:
		return moderateStyle
	default:
		return candidateStyle
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
