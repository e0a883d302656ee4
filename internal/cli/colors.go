package cli

import "github.com/charmbracelet/lipgloss"

// Pulse colour palette
// Shared theme colours for consistent branding across CLI and TUI
var (
	// Core colours (cool to hot)
	PulseCyan    = lipgloss.Color("#00BBF9") // Electric cyan
	PulseViolet  = lipgloss.Color("#9B5DE5") // Violet
	PulseMagenta = lipgloss.Color("#F15BB5") // Hot magenta
	PulseYellow  = lipgloss.Color("#FEE440") // Highlight yellow

	// Accent colours
	Slate = lipgloss.Color("#8D99AE") // Muted slate for subtle text
)
