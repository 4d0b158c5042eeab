package subtitles

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrNoCaptions is returned when the input yields nothing to caption.
var ErrNoCaptions = errors.New("no caption track produced")

// Cue is one timed caption entry. Start and End are in seconds.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Track is an ordered, gapless sequence of cues.
type Track []Cue

// Duration returns the end offset of the last cue.
func (t Track) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].End
}

// Segment splits text into sentences. A sentence ends at '.', '!' or '?'
// followed by whitespace. Segments are trimmed and empty ones dropped.
func Segment(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var segments []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if i >= len(text) || !unicode.IsSpace(next) {
			continue
		}
		segments = appendSegment(segments, text[start:i])
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		start = i
	}
	return appendSegment(segments, text[start:])
}

func appendSegment(segments []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		segments = append(segments, s)
	}
	return segments
}

// Synthesize builds a track that spreads the sentences of text uniformly
// over duration seconds. Every sentence gets exactly duration/n seconds;
// reading speed and sentence length are not considered.
func Synthesize(text string, duration float64) (Track, error) {
	if !(duration > 0) {
		return nil, fmt.Errorf("synthesize subtitles: invalid duration %v", duration)
	}

	sentences := Segment(text)
	n := len(sentences)
	if n == 0 {
		return nil, ErrNoCaptions
	}

	// Boundaries are computed once and shared by neighbouring cues so that
	// cue i's end is bit-for-bit cue i+1's start.
	bounds := make([]float64, n+1)
	for k := 1; k < n; k++ {
		bounds[k] = float64(k) * duration / float64(n)
	}
	bounds[n] = duration

	track := make(Track, n)
	for i, sentence := range sentences {
		track[i] = Cue{
			Index: i + 1,
			Start: bounds[i],
			End:   bounds[i+1],
			Text:  sentence,
		}
	}
	return track, nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm rounded to the nearest
// millisecond.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int64(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp parses an HH:MM:SS,mmm timestamp into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	clock, millisText, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(millisText)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

// WriteTo serializes the track in SRT format.
func (t Track) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for _, cue := range t {
		n, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			cue.Index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// String returns the SRT serialization of the track.
func (t Track) String() string {
	var sb strings.Builder
	_, _ = t.WriteTo(&sb)
	return sb.String()
}

// WriteFile writes the track to path in SRT format.
func WriteFile(path string, track Track) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create srt: %w", err)
	}
	if _, err := track.WriteTo(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write srt: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close srt: %w", err)
	}
	return nil
}
