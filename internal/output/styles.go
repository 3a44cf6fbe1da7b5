package output

import "github.com/charmbracelet/lipgloss"

// ── Color Palette ──

var (
	ColorText    = lipgloss.Color("#c8c8d4")
	ColorTextDim = lipgloss.Color("#6b6b7b")
	ColorAccent  = lipgloss.Color("#5eead4")
	ColorWarn    = lipgloss.Color("#f59e0b")
	ColorSuccess = lipgloss.Color("#22c55e")
	ColorError   = lipgloss.Color("#ef4444")
)

// ── Styles ──

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	StepStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	DetailStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	// Suspicious finding line
	FindingStyle = lipgloss.NewStyle().
			Foreground(ColorWarn).
			Bold(true)

	CleanStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	AlertStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)
)

const banner = `
 ____   ___  _   _  ___  __  __ _____ _   _
| __ ) / _ \| \ | |/ _ \|  \/  | ____| \ | |
|  _ \| | | |  \| | | | | |\/| |  _| |  \| |
| |_) | |_| | |\  | |_| | |  | | |___| |\  |
|____/ \___/|_| \_|\___/|_|  |_|_____|_| \_|`
