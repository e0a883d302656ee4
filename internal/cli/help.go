package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PulseYellow).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(PulseCyan).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PulseMagenta).
				MarginTop(1)

	helpGroupDescStyle = lipgloss.NewStyle().
				Foreground(Slate)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(PulseYellow).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(PulseViolet).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(Slate).
				Italic(true)
)

// FlagGroups orders the `group` tags used by the syntunes command. Pass them
// to kong with kong.ExplicitGroups so help lists flags by concern.
var FlagGroups = []kong.Group{
	{Key: "render", Title: "Render", Description: "Tempo and the text drawn over the video."},
	{Key: "assets", Title: "Assets", Description: "Configuration file and overlay/font overrides."},
	{Key: "encoding", Title: "Encoding", Description: "ffmpeg encoder, parallelism and the preview clip."},
	{Key: "logging", Title: "Logging"},
	{Key: "info", Title: "Information", Description: "Print something and exit."},
}

var examples = []string{
	"%s song.mp3 video.mp4 --bpm 124",
	"%s song.flac video.mp4 --cover art.png --artist \"Artist\" --title \"Title\"",
	"%s song.wav video.mp4 --hwaccel auto --no-preview-clip",
	"%s --print-config > syntunes.toml",
}

// StyledHelpPrinter returns a kong help printer using the Pulse palette.
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		fmt.Fprint(ctx.Stdout, RenderHelp(ctx.Model))
		return nil
	}
}

// RenderHelp formats the help screen for app.
func RenderHelp(app *kong.Application) string {
	var sb strings.Builder

	sb.WriteString(helpTitleStyle.Render(AppName))
	sb.WriteString("\n")
	sb.WriteString(helpDescStyle.Render(AppDescription))
	sb.WriteString("\n")

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	fmt.Fprintf(&sb, "\n  %s <audio> <output> [flags]\n", app.Name)

	if len(app.Node.Positional) > 0 {
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Arguments:"))
		sb.WriteString("\n")
		width := 0
		for _, arg := range app.Node.Positional {
			width = max(width, len(arg.Summary()))
		}
		for _, arg := range app.Node.Positional {
			fmt.Fprintf(&sb, "  %s  %s\n", helpArgStyle.Render(pad(arg.Summary(), width)), arg.Help)
		}
	}

	for _, section := range flagSections(app) {
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render(section.title + ":"))
		sb.WriteString("\n")
		if section.description != "" {
			sb.WriteString("  ")
			sb.WriteString(helpGroupDescStyle.Render(section.description))
			sb.WriteString("\n")
		}
		width := 0
		for _, f := range section.flags {
			width = max(width, len(f.flags))
		}
		for _, f := range section.flags {
			sb.WriteString("  ")
			sb.WriteString(helpFlagStyle.Render(pad(f.flags, width)))
			if f.help != "" {
				sb.WriteString("  ")
				sb.WriteString(f.help)
			}
			if f.defaultVal != "" {
				sb.WriteString(" ")
				sb.WriteString(helpDefaultStyle.Render("(default: " + f.defaultVal + ")"))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render("Examples:"))
	sb.WriteString("\n")
	for _, ex := range examples {
		sb.WriteString("  ")
		fmt.Fprintf(&sb, ex, app.Name)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

type flagLine struct {
	flags      string
	help       string
	defaultVal string
}

type flagSection struct {
	title       string
	description string
	flags       []flagLine
}

// flagSections splits the visible flags into an ungrouped "Flags" section
// followed by one section per group, in FlagGroups order. Groups unknown to
// FlagGroups are appended in first-seen order.
func flagSections(app *kong.Application) []flagSection {
	general := flagSection{title: "Flags"}
	byKey := map[string]*flagSection{}
	var order []string

	for _, g := range FlagGroups {
		byKey[g.Key] = &flagSection{title: g.Title, description: g.Description}
		order = append(order, g.Key)
	}

	for _, f := range app.Node.Flags {
		if f.Hidden {
			continue
		}
		line := describeFlag(f)
		if f.Group == nil {
			general.flags = append(general.flags, line)
			continue
		}
		s, ok := byKey[f.Group.Key]
		if !ok {
			s = &flagSection{title: f.Group.Title, description: f.Group.Description}
			byKey[f.Group.Key] = s
			order = append(order, f.Group.Key)
		}
		s.flags = append(s.flags, line)
	}

	var sections []flagSection
	if len(general.flags) > 0 {
		sections = append(sections, general)
	}
	for _, key := range order {
		if s := byKey[key]; len(s.flags) > 0 {
			sections = append(sections, *s)
		}
	}
	return sections
}

func describeFlag(f *kong.Flag) flagLine {
	name := "--" + f.Name
	if f.Short != 0 {
		name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
	}
	if !f.IsBool() && f.PlaceHolder != "" {
		name += "=" + strings.ToUpper(f.PlaceHolder)
	}

	// Zero defaults mean "use the config value" and are not worth printing.
	var def string
	if f.HasDefault && !f.IsBool() && f.Default != "0" {
		def = f.Default
	}
	return flagLine{flags: name, help: f.Help, defaultVal: def}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", max(width-len(s), 0))
}
