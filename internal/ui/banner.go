package ui

import (
	_ "embed"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

//go:embed banner.txt
var bannerText string

// bannerGradient runs top to bottom, one color per line.
var bannerGradient = []string{"45", "44", "43", "42", "41"}

// Banner renders the help banner. It returns "" when stdout is not a
// terminal so help text can be piped cleanly.
func Banner() string {
	if !IsTTY() {
		return ""
	}
	return renderBanner(bannerText, bannerGradient) + "\n"
}

func renderBanner(text string, gradient []string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		style := lipgloss.NewStyle().Bold(true)
		if len(gradient) > 0 {
			style = style.Foreground(lipgloss.Color(gradient[i%len(gradient)]))
		}
		b.WriteString(style.Render(line))
		b.WriteByte('\n')
	}
	return b.String()
}
