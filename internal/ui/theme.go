// Package ui styles anysock's human-facing output. Styling is applied only
// when stdout is a terminal so piped output stays plain.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme represents a color scheme for the UI.
type Theme struct {
	Name    string
	Primary string // titles, keys, addresses
	Success string
	Error   string
	Muted   string
	Value   string
	Command string
	CmdBg   string
}

// Predefined themes
var (
	ThemeDefault = Theme{
		Name:    "default",
		Primary: "39",  // light blue
		Success: "42",  // green
		Error:   "196", // red
		Muted:   "243", // gray
		Value:   "252", // light gray
		Command: "229", // yellow
		CmdBg:   "236", // dark gray
	}

	ThemeDracula = Theme{
		Name:    "dracula",
		Primary: "141", // purple
		Success: "84",  // green
		Error:   "212", // pink
		Muted:   "239", // gray
		Value:   "253", // white
		Command: "117", // cyan
		CmdBg:   "236", // dark gray
	}

	// ThemeMono keeps emphasis but drops color.
	ThemeMono = Theme{Name: "mono"}

	currentTheme = ThemeDefault
)

// Styles, rebuilt by SetTheme.
var (
	titleStyle   lipgloss.Style
	subtleStyle  lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	keyStyle     lipgloss.Style
	valueStyle   lipgloss.Style
	commandStyle lipgloss.Style
	addrStyle    lipgloss.Style
)

func init() {
	SetTheme(ThemeDefault)
}

// SetTheme applies a theme by reinitializing all style variables.
func SetTheme(theme Theme) {
	currentTheme = theme

	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Primary))

	subtleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted))

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Success))

	errorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Error))

	keyStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Primary))

	valueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Value))

	commandStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Command)).
		Background(lipgloss.Color(theme.CmdBg)).
		Padding(0, 1)

	addrStyle = lipgloss.NewStyle().
		Underline(true).
		Foreground(lipgloss.Color(theme.Primary))
}

// GetTheme returns the currently active theme.
func GetTheme() Theme {
	return currentTheme
}

// ThemeByName returns a theme by name, or default if not found.
func ThemeByName(name string) Theme {
	switch name {
	case "dracula":
		return ThemeDracula
	case "mono":
		return ThemeMono
	default:
		return ThemeDefault
	}
}

// ListThemes returns all available theme names.
func ListThemes() []string {
	return []string{"default", "dracula", "mono"}
}

// IsTTY returns true if stdout is a terminal.
func IsTTY() bool {
	return IsTerminal(os.Stdout)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// styled applies a style only if output is a TTY.
func styled(style lipgloss.Style, s string) string {
	if !IsTTY() {
		return s
	}
	return style.Render(s)
}

// Title returns styled title text.
func Title(s string) string { return styled(titleStyle, s) }

// Subtle returns styled subtle/muted text.
func Subtle(s string) string { return styled(subtleStyle, s) }

// Success returns styled success text.
func Success(s string) string { return styled(successStyle, s) }

// Error returns styled error text.
func Error(s string) string { return styled(errorStyle, s) }

// Key returns styled key/label text.
func Key(s string) string { return styled(keyStyle, s) }

// Value returns styled value text.
func Value(s string) string { return styled(valueStyle, s) }

// Command returns styled command text with background.
func Command(s string) string { return styled(commandStyle, s) }

// Addr returns styled socket address text.
func Addr(s string) string { return styled(addrStyle, s) }
