package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/syntunes/internal/audio"
	"github.com/linuxmatters/syntunes/internal/cli"
	"github.com/linuxmatters/syntunes/internal/config"
	"github.com/linuxmatters/syntunes/internal/encoder"
	"github.com/linuxmatters/syntunes/internal/logging"
	"github.com/linuxmatters/syntunes/internal/pipeline"
	"github.com/linuxmatters/syntunes/internal/ui"
	"github.com/mattn/go-isatty"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

var CLI struct {
	Audio  string `arg:"" name:"audio" help:"Input audio file (WAV, MP3, FLAC or anything ffmpeg decodes)" optional:""`
	Output string `arg:"" name:"output" help:"Output MP4 file" optional:""`

	Cover        string  `help:"Cover image; defaults to the art embedded in the audio file" placeholder:"PATH" group:"render"`
	BPM          float64 `name:"bpm" help:"Track tempo in beats per minute (default from config, 130)" group:"render"`
	BeatsPerLoop int     `help:"Beats per overlay animation loop (default from config, 8)" group:"render"`
	Artist       string  `help:"Artist text; defaults to the file's tags" group:"render"`
	Title        string  `help:"Title text; defaults to the file's tags" group:"render"`

	Config  string `help:"TOML configuration file" placeholder:"PATH" group:"assets"`
	Overlay string `help:"Overlay GIF (overrides config)" placeholder:"PATH" group:"assets"`
	Font    string `help:"TrueType font for artist and title (overrides config)" placeholder:"PATH" group:"assets"`
	HWAccel string `name:"hwaccel" help:"Video encoder: auto, none, nvenc, qsv, vaapi, videotoolbox (overrides config)" group:"encoding"`
	Workers int    `help:"Parallel frame workers, 0 for one per CPU (overrides config)" group:"encoding"`

	NoPreview     bool `help:"Disable the terminal frame preview" group:"encoding"`
	NoPreviewClip bool `help:"Skip cutting the short preview clip" group:"encoding"`

	LogLevel  string `help:"Log level: debug, info, warn, error (overrides config)" group:"logging"`
	LogFormat string `help:"Log format: console or json (overrides config)" group:"logging"`
	LogFile   string `help:"Also write logs to this file" placeholder:"PATH" group:"logging"`

	PrintConfig  bool `help:"Print a sample configuration and exit" group:"info"`
	ListEncoders bool `help:"Show hardware encoder availability and exit" group:"info"`
	Version      bool `help:"Show version information" group:"info"`
}

var validHWAccel = []string{"auto", "none", "nvenc", "qsv", "vaapi", "videotoolbox"}

func main() {
	kong.Parse(&CLI,
		kong.Name("syntunes"),
		kong.Description(cli.AppDescription),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.ExplicitGroups(cli.FlagGroups),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	if CLI.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}
	if CLI.PrintConfig {
		fmt.Print(config.SampleConfig())
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if CLI.ListEncoders {
		fmt.Print(encoder.GetEncoderStatus(ctx, cfg.Encoder.FFmpegPath))
		os.Exit(0)
	}

	if CLI.Audio == "" || CLI.Output == "" {
		cli.PrintError("<audio> and <output> are required")
		os.Exit(1)
	}

	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// The progress UI owns the terminal, so logs only go to --log-file.
	var logOut io.Writer = os.Stderr
	if interactive {
		logOut = io.Discard
	}
	logger, closer, err := logging.NewFromConfig(cfg.Logging, logOut)
	if err != nil {
		cli.PrintError(fmt.Sprintf("logging: %v", err))
		os.Exit(1)
	}
	defer closer.Close()

	req := pipeline.Request{
		AudioPath:    CLI.Audio,
		CoverPath:    CLI.Cover,
		OutputPath:   CLI.Output,
		BPM:          CLI.BPM,
		BeatsPerLoop: CLI.BeatsPerLoop,
		Artist:       CLI.Artist,
		Title:        CLI.Title,
		SkipPreview:  CLI.NoPreviewClip,
	}

	var runErr error
	if interactive {
		runErr = runInteractive(ctx, *cfg, req, logger)
	} else {
		runErr = runPlain(ctx, *cfg, req, logger)
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		cli.PrintError("render cancelled")
		os.Exit(130)
	default:
		cli.PrintError(runErr.Error())
		os.Exit(1)
	}
}

// loadConfig reads --config and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if CLI.Overlay != "" {
		cfg.Assets.OverlayPath = CLI.Overlay
	}
	if CLI.Font != "" {
		cfg.Assets.FontPath = CLI.Font
	}
	if CLI.HWAccel != "" {
		accel := strings.ToLower(CLI.HWAccel)
		valid := false
		for _, v := range validHWAccel {
			valid = valid || v == accel
		}
		if !valid {
			return nil, fmt.Errorf("invalid --hwaccel %q (want one of %s)", CLI.HWAccel, strings.Join(validHWAccel, ", "))
		}
		cfg.Encoder.HWAccel = accel
	}
	if CLI.Workers < 0 {
		return nil, fmt.Errorf("invalid --workers %d", CLI.Workers)
	}
	if CLI.Workers > 0 {
		cfg.Encoder.Workers = CLI.Workers
	}
	if CLI.LogLevel != "" {
		cfg.Logging.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Logging.Format = CLI.LogFormat
	}
	if CLI.LogFile != "" {
		cfg.Logging.File = CLI.LogFile
	}
	return cfg, cfg.Validate()
}

// runInteractive renders in a goroutine while bubbletea owns the terminal.
func runInteractive(ctx context.Context, cfg config.Config, req pipeline.Request, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(CLI.NoPreview, cfg.Video.FPS)
	p := tea.NewProgram(model)

	var result *pipeline.Result
	var renderErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		result, renderErr = pipeline.Render(ctx, cfg, req, pipeline.Options{
			Logger:        logger,
			SnapshotEvery: 6,
			ProgressEvery: 3,
			Observer: pipeline.Observer{
				Analysis: func(frame, total int, amplitude float64, elapsed time.Duration) {
					p.Send(ui.AnalysisProgress{Frame: frame, TotalFrames: total, Amplitude: amplitude, Elapsed: elapsed})
				},
				AnalysisDone: func(profile *audio.AudioProfile, elapsed time.Duration) {
					p.Send(ui.AnalysisComplete{
						PeakMagnitude: profile.GlobalPeak,
						RMSLevel:      profile.GlobalRMS,
						DynamicRange:  profile.DynamicRange,
						Duration:      time.Duration(profile.Duration * float64(time.Second)),
						AnalysisTime:  elapsed,
					})
				},
				Frame: func(fp pipeline.FrameProgress) {
					p.Send(ui.RenderProgress{
						Frame:       fp.Frame,
						TotalFrames: fp.TotalFrames,
						Elapsed:     fp.Elapsed,
						Amplitude:   fp.Amplitude,
						FileSize:    fp.FileSize,
						FrameData:   fp.Snapshot,
						VideoCodec:  fp.VideoCodec,
					})
				},
			},
		})
		if renderErr != nil {
			p.Send(ui.RenderFailed{Err: renderErr})
			return
		}
		p.Send(ui.RenderComplete{
			OutputFile:    result.VideoPath,
			ThumbnailFile: result.ThumbnailPath,
			PreviewFile:   result.PreviewPath,
			FileSize:      result.FileSize,
			TotalFrames:   result.Frames,
			RenderTime:    result.Timings.Render,
			EncodeTime:    result.Timings.Encode,
			ThumbnailTime: result.Timings.Thumbnail,
			PreviewTime:   result.Timings.Preview,
			TotalTime:     result.Timings.Total,
			EncoderName:   result.VideoCodec,
			Warnings:      result.Warnings,
		})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("running UI: %w", err)
	}

	// The UI exits early on ctrl+c; stop the render and wait for cleanup.
	cancel()
	<-done
	if renderErr != nil {
		return renderErr
	}
	if model.Interrupted() && result == nil {
		return context.Canceled
	}
	return nil
}

// runPlain logs progress for non-terminal output and prints a summary.
func runPlain(ctx context.Context, cfg config.Config, req pipeline.Request, logger *slog.Logger) error {
	cli.PrintBanner()
	cli.PrintSection("Rendering")
	cli.PrintInfo("Audio", req.AudioPath)
	if req.CoverPath != "" {
		cli.PrintInfo("Cover", req.CoverPath)
	} else {
		cli.PrintInfo("Cover", "embedded in audio file")
	}
	cli.PrintInfo("Output", req.OutputPath)
	bpm, beats := req.BPM, req.BeatsPerLoop
	if bpm == 0 {
		bpm = cfg.Timing.BPM
	}
	if beats == 0 {
		beats = cfg.Timing.BeatsPerLoop
	}
	cli.PrintInfo("Tempo", fmt.Sprintf("%g BPM, %d beats per loop", bpm, beats))
	cli.PrintInfo("Workers", strconv.Itoa(cfg.WorkerCount()))

	every := max(cfg.Video.FPS*10, 1)
	result, err := pipeline.Render(ctx, cfg, req, pipeline.Options{
		Logger:        logger,
		ProgressEvery: every,
		Observer: pipeline.Observer{
			Frame: func(fp pipeline.FrameProgress) {
				logger.Info("rendering",
					"frame", fp.Frame,
					"total", fp.TotalFrames,
					"percent", fmt.Sprintf("%.0f", 100*float64(fp.Frame)/float64(fp.TotalFrames)),
					"elapsed", fp.Elapsed.Round(time.Second))
			},
		},
	})
	if err != nil {
		return err
	}

	cli.PrintSuccess("Render complete")
	cli.PrintSummary(cli.Summary{
		Video:     result.VideoPath,
		Thumbnail: result.ThumbnailPath,
		Preview:   result.PreviewPath,
		Codec:     result.VideoCodec,
		Frames:    result.Frames,
		Duration:  time.Duration(result.Duration * float64(time.Second)),
		Elapsed:   result.Timings.Total,
		FileSize:  result.FileSize,
	})
	for _, w := range result.Warnings {
		cli.PrintWarning(w)
	}
	return nil
}
