package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index              int               `json:"index"`
	CodecName          string            `json:"codec_name"`
	CodecLongName      string            `json:"codec_long_name"`
	CodecType          string            `json:"codec_type"`
	CodecTag           string            `json:"codec_tag_string"`
	Profile            string            `json:"profile"`
	Duration           Value             `json:"duration"`
	BitRate            Value             `json:"bit_rate"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	DisplayAspectRatio string            `json:"display_aspect_ratio"`
	PixelFormat        string            `json:"pix_fmt"`
	BitsPerRawSample   Value             `json:"bits_per_raw_sample"`
	ColorSpace         string            `json:"color_space"`
	RFrameRate         string            `json:"r_frame_rate"`
	AvgFrameRate       string            `json:"avg_frame_rate"`
	NBFrames           Value             `json:"nb_frames"`
	SampleRate         Value             `json:"sample_rate"`
	Channels           int               `json:"channels"`
	ChannelLayout      string            `json:"channel_layout"`
	Tags               map[string]string `json:"tags"`
	SideData           []SideData        `json:"side_data_list"`
}

// SideData carries per-stream side data; only the display matrix rotation is decoded.
type SideData struct {
	Type     string  `json:"side_data_type"`
	Rotation float64 `json:"rotation"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename       string            `json:"filename"`
	NBStreams      int               `json:"nb_streams"`
	FormatName     string            `json:"format_name"`
	FormatLongName string            `json:"format_long_name"`
	Duration       Value             `json:"duration"`
	Size           Value             `json:"size"`
	BitRate        Value             `json:"bit_rate"`
	Tags           map[string]string `json:"tags"`
}

// Value holds a numeric ffprobe field. ffprobe emits most numbers as JSON
// strings but some builds emit bare numbers; both decode into the same form.
type Value string

// UnmarshalJSON accepts a JSON string, number, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Value(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("ffprobe value %s: %w", trimmed, err)
	}
	*v = Value(n.String())
	return nil
}

// Float returns the parsed value, 0 when empty, or NaN when malformed.
func (v Value) Float() float64 {
	return parseFloat(string(v))
}

// Int returns the value truncated to an integer, or 0 when empty or malformed.
func (v Value) Int() int64 {
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
// A non-zero exit or undecodable output is an error.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("ffprobe inspect: %w", ctxErr)
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON document. Documents without a format section
// or streams array are rejected.
func Parse(data []byte) (Result, error) {
	var probe struct {
		Streams *[]Stream `json:"streams"`
		Format  *Format   `json:"format"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	if probe.Format == nil && probe.Streams == nil {
		return Result{}, errors.New("ffprobe parse: document has neither format nor streams")
	}
	var result Result
	if probe.Streams != nil {
		result.Streams = *probe.Streams
	}
	if probe.Format != nil {
		result.Format = *probe.Format
	}
	result.raw = append([]byte(nil), data...)
	return result, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// FirstStream returns the first stream of the given codec type.
func (r Result) FirstStream(codecType string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			return stream, true
		}
	}
	return Stream{}, false
}

// StreamCount returns the number of streams of the given codec type.
func (r Result) StreamCount(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return nonNegative(r.Format.Duration.Float())
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	return int64(nonNegative(r.Format.Size.Float()))
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	return int64(nonNegative(r.Format.BitRate.Float()))
}

// Rotation returns the stream rotation in degrees taken from the legacy
// "rotate" tag or, failing that, the display matrix side data.
func (s Stream) Rotation() int {
	if raw, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return deg
		}
	}
	for _, side := range s.SideData {
		if strings.EqualFold(side.Type, "Display Matrix") {
			return int(math.Round(side.Rotation))
		}
	}
	return 0
}

// FrameRate converts an ffprobe rational such as "30000/1001" into frames per
// second rounded to two decimals. A zero denominator or malformed input yields 0.
func FrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0
		}
		return round2(f)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 {
		return 0
	}
	f := n / d
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return round2(f)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
