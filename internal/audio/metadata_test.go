package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"
)

// id3Frame builds a v2.3 frame.
func id3Frame(id string, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	binary.Write(&b, binary.BigEndian, uint32(len(payload)))
	b.Write([]byte{0, 0})
	b.Write(payload)
	return b.Bytes()
}

func utf16WithBOM(s string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xFE})
	for _, u := range utf16.Encode([]rune(s)) {
		binary.Write(&b, binary.LittleEndian, u)
	}
	b.Write([]byte{0, 0})
	return b.Bytes()
}

// id3File writes an ID3v2.3 tag followed by a few bytes of fake MPEG data.
func id3File(t *testing.T, frames ...[]byte) string {
	t.Helper()
	body := bytes.Join(frames, nil)
	size := len(body)

	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{3, 0, 0})
	b.Write([]byte{byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)})
	b.Write(body)
	b.Write([]byte{0xFF, 0xFB, 0x90, 0x64, 0, 0, 0, 0})

	path := tempPath(t, "tagged.mp3")
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write tagged file: %v", err)
	}
	return path
}

var fakePNG = []byte("\x89PNG\r\n\x1a\nnot-really-a-png")

func TestReadTagsID3(t *testing.T) {
	path := id3File(t,
		id3Frame("TPE1", append([]byte{0}, []byte("Caf\xe9")...)),
		id3Frame("TIT2", append([]byte{1}, utf16WithBOM("Sγnth Dreams")...)),
		id3Frame("APIC", append(append([]byte{0}, []byte("image/png\x00\x03cover\x00")...), fakePNG...)),
	)

	tags, err := ReadTags(context.Background(), path, "/nonexistent/ffprobe")
	if err != nil {
		t.Fatalf("ReadTags returned error: %v", err)
	}
	if tags.Artist != "Café" {
		t.Errorf("Artist = %q, want Café (ISO-8859-1 decoded)", tags.Artist)
	}
	if tags.Title != "Synth Dreams" {
		t.Errorf("Title = %q, want gamma replaced: Synth Dreams", tags.Title)
	}
}

func TestReadTagsMissingTitleFallsBackToDefault(t *testing.T) {
	path := id3File(t, id3Frame("TPE1", append([]byte{3}, []byte("Artist Only")...)))

	tags, err := ReadTags(context.Background(), path, "/nonexistent/ffprobe")
	if err != nil {
		t.Fatalf("ReadTags returned error: %v", err)
	}
	if tags.Artist != "Artist Only" || tags.Title != UnknownTitle {
		t.Errorf("tags = %+v, want Artist Only / %s", tags, UnknownTitle)
	}
}

func TestReadTagsUnknownContainerWithoutFFprobe(t *testing.T) {
	path := tempPath(t, "track.ogg")
	if err := os.WriteFile(path, []byte("OggS\x00\x02\x00\x00"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tags, err := ReadTags(context.Background(), path, filepath.Join(t.TempDir(), "missing-ffprobe"))
	if err == nil {
		t.Error("expected ffprobe error to be reported")
	}
	if tags.Artist != UnknownArtist || tags.Title != UnknownTitle {
		t.Errorf("tags = %+v, want defaults", tags)
	}
}

func TestReaderForDispatch(t *testing.T) {
	if _, ok := ReaderFor(ContainerMP3, "").(TagReader); !ok {
		t.Error("MP3 should use the tag reader")
	}
	if _, ok := ReaderFor(ContainerMP4, "").(TagReader); !ok {
		t.Error("MP4 should use the tag reader")
	}
	if _, ok := ReaderFor(ContainerFLAC, "").(FLACReader); !ok {
		t.Error("FLAC should use the Vorbis comment reader")
	}
	if r, ok := ReaderFor(ContainerWAV, "probe").(FFprobeReader); !ok || r.Binary != "probe" {
		t.Error("other containers should use ffprobe")
	}
}

func TestExtractCoverID3(t *testing.T) {
	path := id3File(t,
		id3Frame("APIC", append(append([]byte{1}, []byte("image/png\x00\x03")...), append(utf16WithBOM("front"), fakePNG...)...)),
	)
	dir := t.TempDir()

	out, err := ExtractCover(path, dir)
	if err != nil {
		t.Fatalf("ExtractCover returned error: %v", err)
	}
	if filepath.Ext(out) != ".png" || filepath.Dir(out) != dir {
		t.Errorf("cover path = %q, want .png inside %q", out, dir)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read cover: %v", err)
	}
	if !bytes.Equal(data, fakePNG) {
		t.Errorf("cover bytes = %q, want %q", data, fakePNG)
	}
}

func TestExtractCoverMissing(t *testing.T) {
	path := id3File(t, id3Frame("TIT2", append([]byte{0}, []byte("No Art")...)))
	if _, err := ExtractCover(path, t.TempDir()); !errors.Is(err, ErrNoCover) {
		t.Errorf("ExtractCover = %v, want ErrNoCover", err)
	}

	wavPath := tempPath(t, "plain.wav")
	writeWAV(t, wavPath, make([]float64, 100), 8000, 1)
	if _, err := ExtractCover(wavPath, t.TempDir()); !errors.Is(err, ErrNoCover) {
		t.Errorf("ExtractCover(wav) = %v, want ErrNoCover", err)
	}
}

func TestID3v22Frames(t *testing.T) {
	frame := func(id string, payload []byte) []byte {
		n := len(payload)
		return append([]byte{id[0], id[1], id[2], byte(n >> 16), byte(n >> 8), byte(n)}, payload...)
	}
	body := append(frame("TP1", append([]byte{0}, []byte("Old Artist")...)),
		frame("TT2", append([]byte{0}, []byte("Old Title\x00")...))...)

	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{2, 0, 0, 0, 0, 0, byte(len(body))})
	b.Write(body)
	path := tempPath(t, "v22.mp3")
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tags, err := TagReader{}.ReadTags(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadTags returned error: %v", err)
	}
	if tags.Artist != "Old Artist" || tags.Title != "Old Title" {
		t.Errorf("tags = %+v", tags)
	}
}

// atom builds an MP4 box.
func atom(name string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint32(8+len(body)))
	b.WriteString(name)
	b.Write(body)
	return b.Bytes()
}

// dataAtom wraps an ilst value with its class (1 text, 14 png).
func dataAtom(class byte, value []byte) []byte {
	return atom("data", []byte{0, 0, 0, class, 0, 0, 0, 0}, value)
}

// m4aFile writes an ftyp box and an iTunes metadata list.
func m4aFile(t *testing.T, items ...[]byte) string {
	t.Helper()
	data := append(atom("ftyp", []byte("M4A \x00\x00\x00\x00")),
		atom("moov", atom("udta", atom("meta", []byte{0, 0, 0, 0}, atom("ilst", items...))))...)

	path := tempPath(t, "tagged.m4a")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write m4a: %v", err)
	}
	return path
}

func TestReadTagsMP4(t *testing.T) {
	path := m4aFile(t,
		atom("\xa9ART", dataAtom(1, []byte("Tape Artist"))),
		atom("\xa9nam", dataAtom(1, []byte("Tape Title"))),
	)

	tags, err := ReadTags(context.Background(), path, "/nonexistent/ffprobe")
	if err != nil {
		t.Fatalf("ReadTags returned error: %v", err)
	}
	if tags.Artist != "Tape Artist" || tags.Title != "Tape Title" {
		t.Errorf("tags = %+v, want Tape Artist / Tape Title", tags)
	}
}

func TestExtractCoverMP4(t *testing.T) {
	path := m4aFile(t,
		atom("\xa9nam", dataAtom(1, []byte("Cover Test"))),
		atom("covr", dataAtom(14, fakePNG)),
	)
	dir := t.TempDir()

	out, err := ExtractCover(path, dir)
	if err != nil {
		t.Fatalf("ExtractCover returned error: %v", err)
	}
	if filepath.Ext(out) != ".png" {
		t.Errorf("cover path = %q, want .png", out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read cover: %v", err)
	}
	if !bytes.Equal(data, fakePNG) {
		t.Errorf("cover bytes = %q, want %q", data, fakePNG)
	}
}
