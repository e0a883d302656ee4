package encoder

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// HWAccelType represents a hardware acceleration type
type HWAccelType string

const (
	HWAccelNone         HWAccelType = "none"         // Software encoding (libx264)
	HWAccelAuto         HWAccelType = "auto"         // Auto-detect best available
	HWAccelNVENC        HWAccelType = "nvenc"        // NVIDIA NVENC
	HWAccelQSV          HWAccelType = "qsv"          // Intel Quick Sync Video
	HWAccelVAAPI        HWAccelType = "vaapi"        // VA-API (AMD, Intel, older hardware)
	HWAccelVideoToolbox HWAccelType = "videotoolbox" // Apple VideoToolbox (macOS)
)

// SoftwareCodec is used when no hardware encoder is requested or usable.
const SoftwareCodec = "libx264"

// vaapiDevice is the render node handed to ffmpeg for VA-API.
const vaapiDevice = "/dev/dri/renderD128"

// probeTimeout bounds each single-frame test encode.
const probeTimeout = 10 * time.Second

// HWEncoder represents a detected hardware encoder
type HWEncoder struct {
	Name        string      // Encoder name (e.g., "h264_nvenc")
	Type        HWAccelType // Hardware acceleration type
	Compiled    bool        // Listed by ffmpeg -encoders
	Available   bool        // Whether hardware is present and working
	Description string      // Human-readable description
}

// encoderSpec defines a hardware encoder configuration for priority lists
type encoderSpec struct {
	name      string
	accelType HWAccelType
	desc      string
}

// linuxEncoderPriority defines the encoder preference order for Linux
// Priority: nvenc > qsv > vaapi > software
var linuxEncoderPriority = []encoderSpec{
	{"h264_nvenc", HWAccelNVENC, "NVIDIA NVENC"},
	{"h264_qsv", HWAccelQSV, "Intel Quick Sync Video"},
	{"h264_vaapi", HWAccelVAAPI, "VA-API"},
}

// macOSEncoderPriority defines the encoder preference order for macOS
var macOSEncoderPriority = []encoderSpec{
	{"h264_videotoolbox", HWAccelVideoToolbox, "Apple VideoToolbox"},
}

// ListEncoders returns the names of the encoders compiled into ffmpeg.
func ListEncoders(ctx context.Context, ffmpegPath string) (map[string]bool, error) {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, ffmpegError(err, nil)
	}
	return parseEncoders(strings.NewReader(string(out))), nil
}

// parseEncoders reads `ffmpeg -encoders` output. Entries follow a dashed
// separator line and look like " V....D libx264   libx264 H.264 ...".
func parseEncoders(r io.Reader) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	inList := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inList {
			if strings.HasPrefix(line, "---") {
				inList = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

// testEncoderAvailable performs a full encoder capability test by encoding
// a single frame to the null muxer. This catches cases where the encoder is
// compiled in but the hardware is absent or unusable.
func testEncoderAvailable(ctx context.Context, ffmpegPath, encoderName string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-hide_banner", "-loglevel", "quiet"}
	args = append(args, hwInputArgs(encoderName)...)
	args = append(args,
		"-f", "lavfi", "-i", "color=c=black:s=256x256:r=30:d=0.04",
		"-frames:v", "1",
		"-c:v", encoderName,
	)
	args = append(args, videoCodecArgs(encoderName, "", 23)...)
	args = append(args, "-f", "null", "-")

	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	// VA-API has its own logging separate from FFmpeg
	cmd.Env = append(os.Environ(), "LIBVA_MESSAGING_LEVEL=0")
	return cmd.Run() == nil
}

func encoderPriority() []encoderSpec {
	switch runtime.GOOS {
	case "darwin":
		return macOSEncoderPriority
	default: // Linux and others
		return linuxEncoderPriority
	}
}

// DetectHWEncoders probes for available hardware encoders
// Returns a list of detected encoders in priority order
func DetectHWEncoders(ctx context.Context, ffmpegPath string) []HWEncoder {
	compiled, err := ListEncoders(ctx, ffmpegPath)
	if err != nil {
		compiled = map[string]bool{}
	}

	var encoders []HWEncoder
	for _, enc := range encoderPriority() {
		encoder := HWEncoder{
			Name:        enc.name,
			Type:        enc.accelType,
			Description: enc.desc,
			Compiled:    compiled[enc.name],
		}
		if encoder.Compiled {
			encoder.Available = testEncoderAvailable(ctx, ffmpegPath, enc.name)
		}
		encoders = append(encoders, encoder)
	}
	return encoders
}

// SelectBestEncoder returns the best available encoder based on priority
// If requestedType is HWAccelAuto, it selects the first available hardware encoder
// If requestedType is HWAccelNone, it returns nil (use software)
// Otherwise, it attempts to use the requested type if available
func SelectBestEncoder(ctx context.Context, ffmpegPath string, requestedType HWAccelType) *HWEncoder {
	if requestedType == HWAccelNone || requestedType == "" {
		return nil
	}
	return pickEncoder(DetectHWEncoders(ctx, ffmpegPath), requestedType)
}

func pickEncoder(encoders []HWEncoder, requestedType HWAccelType) *HWEncoder {
	if requestedType == HWAccelAuto {
		for i := range encoders {
			if encoders[i].Available {
				return &encoders[i]
			}
		}
		return nil
	}

	for i := range encoders {
		if encoders[i].Type == requestedType {
			if encoders[i].Available {
				return &encoders[i]
			}
			return nil
		}
	}
	return nil
}

// ResolveVideoCodec maps a configured hwaccel value to the ffmpeg video
// encoder to use, falling back to software.
func ResolveVideoCodec(ctx context.Context, ffmpegPath, hwaccel, software string) string {
	if software == "" {
		software = SoftwareCodec
	}
	if enc := SelectBestEncoder(ctx, ffmpegPath, HWAccelType(strings.ToLower(hwaccel))); enc != nil {
		return enc.Name
	}
	return software
}

// GetEncoderStatus returns a human-readable status of all hardware encoders
func GetEncoderStatus(ctx context.Context, ffmpegPath string) string {
	return formatEncoderStatus(DetectHWEncoders(ctx, ffmpegPath))
}

func formatEncoderStatus(encoders []HWEncoder) string {
	var sb strings.Builder
	sb.WriteString("Hardware Encoder Status:\n")

	for _, enc := range encoders {
		status := "not available"
		switch {
		case enc.Available:
			status = "available"
		case !enc.Compiled:
			status = "not compiled into ffmpeg"
		}
		sb.WriteString("  ")
		sb.WriteString(enc.Description)
		sb.WriteString(" (")
		sb.WriteString(enc.Name)
		sb.WriteString("): ")
		sb.WriteString(status)
		sb.WriteString("\n")
	}

	return sb.String()
}

// hwInputArgs returns global options a hardware encoder needs before the
// inputs are declared.
func hwInputArgs(codec string) []string {
	if codec == "h264_vaapi" {
		return []string{"-vaapi_device", vaapiDevice}
	}
	return nil
}

// videoCodecArgs returns rate control and pixel format options for codec.
func videoCodecArgs(codec, preset string, crf int) []string {
	q := strconv.Itoa(crf)
	switch codec {
	case "h264_nvenc":
		return []string{"-preset", "p4", "-rc", "vbr", "-cq", q, "-pix_fmt", "yuv420p"}
	case "h264_qsv":
		return []string{"-global_quality", q, "-pix_fmt", "nv12"}
	case "h264_vaapi":
		return []string{"-vf", "format=nv12,hwupload", "-qp", q}
	case "h264_videotoolbox":
		return []string{"-q:v", "65", "-pix_fmt", "yuv420p"}
	default:
		args := []string{}
		if preset != "" {
			args = append(args, "-preset", preset)
		}
		return append(args, "-crf", q, "-pix_fmt", "yuv420p")
	}
}
