package ui

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/syntunes/internal/cli"
)

// Phase represents the current processing phase
type Phase int

const (
	PhaseAnalysis Phase = iota
	PhaseRendering
	PhaseFinishing
	PhaseComplete
)

// levelHistory is the number of amplitude samples kept for the level meter.
const levelHistory = 64

// AnalysisProgress represents progress updates from the envelope pass
type AnalysisProgress struct {
	Frame       int
	TotalFrames int
	Amplitude   float64
	Elapsed     time.Duration
}

// AnalysisComplete signals the end of analysis with whole-track statistics
type AnalysisComplete struct {
	PeakMagnitude float64
	RMSLevel      float64
	DynamicRange  float64
	Duration      time.Duration
	AnalysisTime  time.Duration
}

// RenderProgress represents progress updates from frame composition
type RenderProgress struct {
	Frame       int
	TotalFrames int
	Elapsed     time.Duration
	Amplitude   float64
	FileSize    int64
	FrameData   *image.RGBA
	VideoCodec  string
}

// RenderComplete signals that every output file is written
type RenderComplete struct {
	OutputFile    string
	ThumbnailFile string
	PreviewFile   string
	FileSize      int64
	TotalFrames   int
	RenderTime    time.Duration // frame composition
	EncodeTime    time.Duration // waiting on ffmpeg
	ThumbnailTime time.Duration
	PreviewTime   time.Duration
	TotalTime     time.Duration
	EncoderName   string
	Warnings      []string
}

// RenderFailed stops the UI after an error.
type RenderFailed struct {
	Err error
}

// AudioProfile holds the audio analysis results for display
type AudioProfile struct {
	Duration     time.Duration
	PeakLevel    float64 // in dB
	RMSLevel     float64 // in dB
	DynamicRange float64 // in dB
	AnalysisTime time.Duration
}

// progressQuitMsg is sent when it's time to quit after showing completion
type progressQuitMsg struct{}

// Model implements the unified Bubbletea model for the whole render
type Model struct {
	progressBar progress.Model
	summaryBar  progress.Model
	phase       Phase
	fps         int

	audioProfile *AudioProfile

	analysisProgress AnalysisProgress
	renderState      RenderProgress
	complete         *RenderComplete
	failed           error
	levels           []float64

	overallStartTime time.Time
	renderStartTime  time.Time

	width           int
	height          int
	noPreview       bool
	cachedPreview   string
	cachedFrameNum  int
	completionDelay time.Duration
	interrupted     bool
}

// NewModel creates the progress UI model for a render at fps.
func NewModel(noPreview bool, fps int) *Model {
	p := progress.New(
		progress.WithGradient(string(cli.PulseViolet), string(cli.PulseCyan)),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	summaryBar := progress.New(
		progress.WithGradient(string(cli.PulseViolet), string(cli.PulseCyan)),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return &Model{
		progressBar:      p,
		summaryBar:       summaryBar,
		phase:            PhaseAnalysis,
		fps:              max(fps, 1),
		overallStartTime: time.Now(),
		completionDelay:  2 * time.Second,
		noPreview:        noPreview,
		levels:           make([]float64, 0, levelHistory),
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Interrupted reports whether the user quit before the render finished.
func (m *Model) Interrupted() bool {
	return m.interrupted
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = min(msg.Width-30, 50)
		return m, nil

	case AnalysisProgress:
		m.analysisProgress = msg
		m.pushLevel(msg.Amplitude)
		return m, nil

	case AnalysisComplete:
		m.audioProfile = &AudioProfile{
			Duration:     msg.Duration,
			PeakLevel:    toDB(msg.PeakMagnitude),
			RMSLevel:     toDB(msg.RMSLevel),
			DynamicRange: msg.DynamicRange,
			AnalysisTime: msg.AnalysisTime,
		}
		m.phase = PhaseRendering
		m.renderStartTime = time.Now()
		m.levels = m.levels[:0]
		return m, nil

	case RenderProgress:
		m.renderState = msg
		m.pushLevel(msg.Amplitude)
		if msg.TotalFrames > 0 && msg.Frame >= msg.TotalFrames {
			m.phase = PhaseFinishing
		}
		return m, nil

	case RenderComplete:
		m.complete = &msg
		m.phase = PhaseComplete
		return m, tea.Tick(m.completionDelay, func(time.Time) tea.Msg {
			return progressQuitMsg{}
		})

	case RenderFailed:
		m.failed = msg.Err
		return m, tea.Quit

	case progressQuitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.complete != nil {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.interrupted = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *Model) pushLevel(a float64) {
	if len(m.levels) == levelHistory {
		copy(m.levels, m.levels[1:])
		m.levels = m.levels[:levelHistory-1]
	}
	m.levels = append(m.levels, a)
}

// View renders the UI
func (m *Model) View() string {
	if m.phase == PhaseComplete {
		return m.CompletionSummary()
	}
	return m.renderProgress()
}

// CompletionSummary returns the final completion summary for printing after the program exits.
// Returns empty string if the render is not complete.
func (m *Model) CompletionSummary() string {
	if m.complete == nil {
		return ""
	}
	return m.renderFinalProgress() + "\n" + m.renderComplete()
}

func (m *Model) title() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PulseYellow).
		Render(cli.AppName)
}

func (m *Model) phaseLabel() string {
	switch m.phase {
	case PhaseAnalysis:
		return "Analysing Audio"
	case PhaseRendering:
		return "Rendering & Encoding"
	case PhaseFinishing:
		return "Finalising Video, Thumbnail & Preview"
	default:
		return "Complete"
	}
}

// renderFinalProgress renders the progress UI in its final completed state
func (m *Model) renderFinalProgress() string {
	var s strings.Builder

	s.WriteString(m.title())
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Foreground(cli.PulseMagenta).Render("Rendering & Encoding"))
	s.WriteString("\n\n")

	s.WriteString("Progress: ")
	s.WriteString(m.progressBar.ViewAs(1.0))
	s.WriteString("  100%")
	s.WriteString("\n\n")

	videoDuration := m.frameDuration(m.complete.TotalFrames)
	var finalSpeed float64
	if m.complete.TotalTime > 0 {
		finalSpeed = float64(videoDuration) / float64(m.complete.TotalTime)
	}
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("Time: %s  │  Speed: %s  │  Complete", cli.FormatDuration(m.complete.TotalTime), cli.FormatSpeed(finalSpeed))))
	s.WriteString("\n\n")

	m.renderAudioProfile(&s)

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.PulseMagenta).
		Padding(1, 2).
		Render(s.String())
}

func (m *Model) renderProgress() string {
	var s strings.Builder

	s.WriteString(m.title())
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Foreground(cli.PulseMagenta).Render(m.phaseLabel()))
	s.WriteString("\n\n")

	if m.phase == PhaseAnalysis {
		m.renderAnalysisProgress(&s)
	} else {
		m.renderRenderingProgress(&s)
	}

	s.WriteString("\n")
	m.renderAudioProfile(&s)

	if len(m.levels) > 0 {
		s.WriteString("\n\n")
		m.renderLevelsAndStats(&s)
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.PulseViolet).
		Padding(1, 2).
		Render(s.String())
}

func (m *Model) renderAnalysisProgress(s *strings.Builder) {
	if m.analysisProgress.TotalFrames > 0 {
		percent := float64(m.analysisProgress.Frame) / float64(m.analysisProgress.TotalFrames)
		s.WriteString("Progress: ")
		s.WriteString(m.progressBar.ViewAs(percent))
		s.WriteString(fmt.Sprintf("  %d%%", int(percent*100)))
		s.WriteString("\n\n")
		s.WriteString(lipgloss.NewStyle().Faint(true).Render(
			fmt.Sprintf("Envelope frame %d of %d  │  Elapsed: %s",
				m.analysisProgress.Frame,
				m.analysisProgress.TotalFrames,
				cli.FormatDuration(m.analysisProgress.Elapsed))))
		s.WriteString("\n")
		return
	}
	s.WriteString(lipgloss.NewStyle().Faint(true).Render("Decoding audio..."))
	s.WriteString("\n")
}

func (m *Model) renderRenderingProgress(s *strings.Builder) {
	if m.renderState.TotalFrames == 0 {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Starting render..."))
		s.WriteString("\n")
		return
	}

	percent := float64(m.renderState.Frame) / float64(m.renderState.TotalFrames)
	s.WriteString("Progress: ")
	s.WriteString(m.progressBar.ViewAs(percent))
	s.WriteString(fmt.Sprintf("  %d%%", int(percent*100)))
	s.WriteString("\n\n")

	elapsed := m.renderState.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(m.renderStartTime)
	}

	var estimatedTotal, eta time.Duration
	var speed float64
	if percent > 0 {
		estimatedTotal = time.Duration(float64(elapsed) / percent)
		eta = estimatedTotal - elapsed
		if elapsed > 0 {
			speed = float64(m.frameDuration(m.renderState.Frame)) / float64(elapsed)
		}
	}

	s.WriteString(lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("Time: %s / %s  │  Speed: %s  │  ETA: %s",
			cli.FormatDuration(elapsed),
			cli.FormatDuration(estimatedTotal),
			cli.FormatSpeed(speed),
			cli.FormatDuration(eta))))
	s.WriteString("\n")

	phaseStyle := lipgloss.NewStyle().Faint(true).Italic(true)
	if m.phase == PhaseFinishing {
		s.WriteString(phaseStyle.Render("Waiting for ffmpeg, writing thumbnail and preview"))
	} else {
		s.WriteString(phaseStyle.Render(fmt.Sprintf("Frame %d of %d", m.renderState.Frame, m.renderState.TotalFrames)))
	}
}

func (m *Model) renderAudioProfile(s *strings.Builder) {
	labelStyle := lipgloss.NewStyle().Faint(true)
	headerStyle := lipgloss.NewStyle().Faint(true).Bold(true)

	s.WriteString(headerStyle.Render("Audio"))
	s.WriteString(" │ ")

	if m.audioProfile == nil {
		s.WriteString(lipgloss.NewStyle().Faint(true).Italic(true).Render("Analysing..."))
		return
	}

	p := m.audioProfile
	s.WriteString(fmt.Sprintf("%.1fs", p.Duration.Seconds()))
	for _, kv := range [][2]string{
		{"Peak:", fmt.Sprintf("%.1f dB", p.PeakLevel)},
		{"RMS:", fmt.Sprintf("%.1f dB", p.RMSLevel)},
		{"Range:", fmt.Sprintf("%.1f dB", p.DynamicRange)},
	} {
		s.WriteString("  ")
		s.WriteString(labelStyle.Render(kv[0]))
		s.WriteString(" ")
		s.WriteString(kv[1])
	}
}

func (m *Model) renderLevelsAndStats(s *strings.Builder) {
	s.WriteString(lipgloss.NewStyle().Foreground(cli.PulseMagenta).Render("Amplitude:"))
	s.WriteString("\n")

	meterWidth := levelHistory
	if m.width > 10 {
		meterWidth = min(m.width-10, levelHistory)
	}
	meter := renderLevels(m.levels, meterWidth)

	var rightCol strings.Builder
	if m.phase != PhaseAnalysis {
		labelStyle := lipgloss.NewStyle().Foreground(cli.Slate)
		valueStyle := lipgloss.NewStyle().Bold(true)

		rightCol.WriteString(labelStyle.Render("File:  "))
		rightCol.WriteString(valueStyle.Render(cli.FormatBytes(m.renderState.FileSize)))
		rightCol.WriteString("\n")
		if m.renderState.VideoCodec != "" {
			rightCol.WriteString(labelStyle.Render("Video: "))
			rightCol.WriteString(valueStyle.Render(m.renderState.VideoCodec))
		}
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, meter, "  ", rightCol.String()))

	if !m.noPreview && m.phase == PhaseRendering {
		if m.renderState.FrameData != nil && m.renderState.Frame != m.cachedFrameNum {
			preview := DownsampleFrame(m.renderState.FrameData, DefaultPreviewConfig())
			m.cachedPreview = RenderPreview(preview)
			m.cachedFrameNum = m.renderState.Frame
		}
		if m.cachedPreview != "" {
			s.WriteString("\n")
			s.WriteString(m.cachedPreview)
		}
	}
}

func (m *Model) renderComplete() string {
	var s strings.Builder

	s.WriteString(lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.PulseYellow).
		Render("✓ Render Complete!"))
	s.WriteString("\n\n")

	dimLabel := lipgloss.NewStyle().Faint(true)
	c := m.complete

	s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Output:    "), c.OutputFile))
	s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Thumbnail: "), c.ThumbnailFile))
	if c.PreviewFile != "" {
		s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Preview:   "), c.PreviewFile))
	}
	if c.EncoderName != "" {
		s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Encoder:   "), c.EncoderName))
	}

	videoDuration := m.frameDuration(c.TotalFrames)
	s.WriteString(fmt.Sprintf("%s%d frames at %d fps\n", dimLabel.Render("Video:     "), c.TotalFrames, m.fps))
	s.WriteString(fmt.Sprintf("%s%.1fs video in %.1fs\n", dimLabel.Render("Duration:  "), videoDuration.Seconds(), c.TotalTime.Seconds()))
	s.WriteString(fmt.Sprintf("%s%s\n\n", dimLabel.Render("Size:      "), cli.FormatBytes(c.FileSize)))

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cli.PulseMagenta)
	labelStyle := lipgloss.NewStyle().Faint(true)
	highlightValueStyle := lipgloss.NewStyle().Foreground(cli.PulseCyan)

	s.WriteString(headerStyle.Render("Time Breakdown"))
	s.WriteString("\n")

	total := c.TotalTime
	if total <= 0 {
		total = time.Millisecond
	}
	var analysis time.Duration
	if m.audioProfile != nil {
		analysis = m.audioProfile.AnalysisTime
	}
	rows := []struct {
		label string
		d     time.Duration
	}{
		{"Analysis:", analysis},
		{"Composition:", c.RenderTime},
		{"Encoding:", c.EncodeTime},
		{"Thumbnail:", c.ThumbnailTime},
		{"Preview:", c.PreviewTime},
	}
	accounted := time.Duration(0)
	for _, r := range rows {
		if r.d <= 0 {
			continue
		}
		accounted += r.d
		m.writeBreakdownRow(&s, r.label, r.d, total)
	}
	if other := c.TotalTime - accounted; other > 0 {
		m.writeBreakdownRow(&s, "Other:", other, total)
	}
	s.WriteString(fmt.Sprintf("  %s%s", labelStyle.Render(fmt.Sprintf("%-14s", "Total time:")), highlightValueStyle.Render(cli.FormatDuration(c.TotalTime))))

	if len(c.Warnings) > 0 {
		s.WriteString("\n\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.PulseYellow).Render("Warnings"))
		for _, w := range c.Warnings {
			s.WriteString("\n  • ")
			s.WriteString(w)
		}
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(cli.PulseMagenta).
		Padding(1, 1).
		Render(s.String()) + "\n"
}

func (m *Model) writeBreakdownRow(s *strings.Builder, label string, d, total time.Duration) {
	ratio := float64(d) / float64(total)
	s.WriteString(fmt.Sprintf("  %s%s (~%2d%%)  %s\n",
		lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("%-14s", label)),
		fmt.Sprintf("~%-6s", cli.FormatDuration(d)),
		int(ratio*100),
		m.summaryBar.ViewAs(min(ratio, 1))))
}

func (m *Model) frameDuration(frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(m.fps)
}

func toDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// renderLevels draws the recent amplitude history as a two-row block meter.
// Amplitudes are already in [0, 1].
func renderLevels(levels []float64, width int) string {
	if len(levels) == 0 || width <= 0 {
		return ""
	}
	if len(levels) > width {
		levels = levels[len(levels)-width:]
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	colors := []lipgloss.Color{cli.PulseCyan, cli.PulseViolet, cli.PulseMagenta, cli.PulseYellow}

	colorFor := func(v float64) lipgloss.Color {
		return colors[min(int(v*float64(len(colors))), len(colors)-1)]
	}
	blockFor := func(v float64) rune {
		return blocks[max(min(int(v*float64(len(blocks)-1)), len(blocks)-1), 0)]
	}

	var top, bottom strings.Builder
	for _, v := range levels {
		v = max(min(v, 1), 0)
		style := lipgloss.NewStyle().Foreground(colorFor(v))
		if v > 0.5 {
			top.WriteString(style.Render(string(blockFor((v - 0.5) * 2))))
			bottom.WriteString(style.Render(string(blocks[len(blocks)-1])))
		} else {
			top.WriteString(" ")
			bottom.WriteString(style.Render(string(blockFor(v * 2))))
		}
	}
	return top.String() + "\n" + bottom.String()
}
