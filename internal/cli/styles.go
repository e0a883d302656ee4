package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Color palette
var (
	primaryColor   = PulseViolet
	accentColor    = PulseMagenta
	successColor   = lipgloss.Color("#00AA00") // Green
	mutedColor     = lipgloss.Color("#888888") // Gray
	highlightColor = PulseYellow
	textColor      = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	// Section header style
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	// Highlight style for important values
	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	// Box style for framed content
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

// AppName is the display name used in banners and help.
const AppName = "Syntunes ♪"

// AppDescription is the one-line description shown under the banner.
const AppDescription = "Turn a track and its cover into a beat-synced, audio-reactive music video."

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Println(TitleStyle.Render(AppName))
	fmt.Println(SubtitleStyle.Render(AppDescription))
	fmt.Println()
}

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(AppName))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("%s %s\n", HighlightStyle.Render("Warning:"), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), message)
}

// PrintInfo prints an informational message
func PrintInfo(key, value string) {
	fmt.Printf("%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Println(HeaderStyle.Render(title))
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatSpeed formats encoding speed
func FormatSpeed(speed float64) string {
	return fmt.Sprintf("%.1fx realtime", speed)
}

// FormatBytes formats bytes into human-readable format
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// PrintBox prints content in a styled box
func PrintBox(content string) {
	fmt.Println(BoxStyle.Render(content))
}

// Summary is the plain-terminal completion report. Warnings are printed
// separately with PrintWarning.
type Summary struct {
	Video     string
	Thumbnail string
	Preview   string
	Codec     string
	Frames    int
	Duration  time.Duration // of the video
	Elapsed   time.Duration // wall time
	FileSize  int64
}

// PrintSummary prints the output files and timings in a box
func PrintSummary(s Summary) {
	PrintBox(FormatSummary(s))
}

// FormatSummary renders the rows shown by PrintSummary.
func FormatSummary(s Summary) string {
	var b strings.Builder

	row := func(key, value string) {
		b.WriteString(KeyStyle.Render(fmt.Sprintf("%-11s", key+":")))
		b.WriteString(ValueStyle.Render(value))
		b.WriteString("\n")
	}
	row("Video", s.Video)
	row("Thumbnail", s.Thumbnail)
	if s.Preview != "" {
		row("Preview", s.Preview)
	}
	if s.Codec != "" {
		row("Encoder", s.Codec)
	}
	row("Frames", fmt.Sprintf("%d (%.1fs)", s.Frames, s.Duration.Seconds()))
	var speed float64
	if s.Elapsed > 0 {
		speed = s.Duration.Seconds() / s.Elapsed.Seconds()
	}
	row("Time", fmt.Sprintf("%s, %s", FormatDuration(s.Elapsed), FormatSpeed(speed)))
	row("Size", FormatBytes(s.FileSize))

	return strings.TrimRight(b.String(), "\n")
}
