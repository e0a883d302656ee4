package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"

	"github.com/linuxmatters/syntunes/internal/ffprobe"
)

const (
	UnknownArtist = "Unknown Artist"
	UnknownTitle  = "Unknown Title"
)

// Tags holds the artist and title read from a source container.
type Tags struct {
	Artist string
	Title  string
}

// MetadataReader reads artist and title from one container family.
type MetadataReader interface {
	ReadTags(ctx context.Context, path string) (Tags, error)
}

// TagReader reads ID3v2 frames from MP3 files and iTunes atoms from MP4/M4A.
type TagReader struct{}

func (TagReader) ReadTags(_ context.Context, path string) (Tags, error) {
	m, err := readTagMetadata(path)
	if err != nil {
		return Tags{}, err
	}
	return Tags{Artist: m.Artist(), Title: m.Title()}, nil
}

func readTagMetadata(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	return m, nil
}

// FLACReader reads Vorbis comments from a FLAC stream.
type FLACReader struct{}

func (FLACReader) ReadTags(_ context.Context, path string) (Tags, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return Tags{}, fmt.Errorf("parse FLAC metadata: %w", err)
	}
	defer stream.Close()

	var tags Tags
	for _, block := range stream.Blocks {
		comment, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, kv := range comment.Tags {
			switch {
			case strings.EqualFold(kv[0], "ARTIST") && tags.Artist == "":
				tags.Artist = strings.TrimSpace(kv[1])
			case strings.EqualFold(kv[0], "TITLE") && tags.Title == "":
				tags.Title = strings.TrimSpace(kv[1])
			}
		}
	}
	return tags, nil
}

// FFprobeReader reads container tags through ffprobe, covering Ogg and
// anything else ffmpeg understands.
type FFprobeReader struct {
	Binary string
}

func (r FFprobeReader) ReadTags(ctx context.Context, path string) (Tags, error) {
	result, err := ffprobe.Inspect(ctx, r.Binary, path)
	if err != nil {
		return Tags{}, err
	}
	return Tags{Artist: result.Tag("artist"), Title: result.Tag("title")}, nil
}

// ReaderFor picks the reader for a sniffed container.
func ReaderFor(c Container, ffprobeBinary string) MetadataReader {
	switch c {
	case ContainerMP3, ContainerMP4:
		return TagReader{}
	case ContainerFLAC:
		return FLACReader{}
	default:
		return FFprobeReader{Binary: ffprobeBinary}
	}
}

// ReadTags reads artist and title from path. Missing values fall back to
// ffprobe and then to "Unknown Artist"/"Unknown Title". Greek gamma is
// replaced with a latin y, which the display font lacks.
func ReadTags(ctx context.Context, path, ffprobeBinary string) (Tags, error) {
	container, err := Sniff(path)
	if err != nil {
		return Tags{Artist: UnknownArtist, Title: UnknownTitle}, err
	}

	reader := ReaderFor(container, ffprobeBinary)
	tags, readErr := reader.ReadTags(ctx, path)

	if tags.Artist == "" || tags.Title == "" {
		if _, isProbe := reader.(FFprobeReader); !isProbe {
			if probed, err := (FFprobeReader{Binary: ffprobeBinary}).ReadTags(ctx, path); err == nil {
				if tags.Artist == "" {
					tags.Artist = probed.Artist
				}
				if tags.Title == "" {
					tags.Title = probed.Title
				}
				readErr = nil
			}
		}
	}

	return normalizeTags(tags), readErr
}

func normalizeTags(t Tags) Tags {
	t.Artist = strings.ReplaceAll(strings.TrimSpace(t.Artist), "γ", "y")
	t.Title = strings.ReplaceAll(strings.TrimSpace(t.Title), "γ", "y")
	if t.Artist == "" {
		t.Artist = UnknownArtist
	}
	if t.Title == "" {
		t.Title = UnknownTitle
	}
	return t
}

// ErrNoCover is returned when the file carries no embedded picture.
var ErrNoCover = errors.New("no embedded cover art")

// ExtractCover writes the embedded picture (ID3 APIC, MP4 covr or FLAC
// PICTURE) into dir and returns its path.
func ExtractCover(path, dir string) (string, error) {
	container, err := Sniff(path)
	if err != nil {
		return "", err
	}

	var data []byte
	var mime string
	switch container {
	case ContainerMP3, ContainerMP4:
		m, err := readTagMetadata(path)
		if err != nil {
			return "", ErrNoCover
		}
		if pic := m.Picture(); pic != nil {
			data, mime = pic.Data, pic.MIMEType
		}
	case ContainerFLAC:
		data, mime, err = flacPicture(path)
		if err != nil {
			return "", err
		}
	}
	if len(data) == 0 {
		return "", ErrNoCover
	}

	out := filepath.Join(dir, "cover"+imageExt(mime))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write extracted cover: %w", err)
	}
	return out, nil
}

func flacPicture(path string) ([]byte, string, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("parse FLAC metadata: %w", err)
	}
	defer stream.Close()

	for _, block := range stream.Blocks {
		if pic, ok := block.Body.(*meta.Picture); ok && len(pic.Data) > 0 {
			return pic.Data, pic.MIME, nil
		}
	}
	return nil, "", ErrNoCover
}

func imageExt(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
