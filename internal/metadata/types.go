package metadata

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Unknown is the placeholder for string fields the source did not report.
const Unknown = "unknown"

// Source identifies which probing strategy produced a Metadata record.
type Source string

const (
	SourceFFprobe Source = "ffprobe"
	SourceFFmpeg  Source = "ffmpeg"
	SourceNone    Source = "none"
)

// FileInfo holds container-level facts about the analyzed file.
type FileInfo struct {
	FileName        string  `json:"file_name"`
	DurationSeconds float64 `json:"duration_seconds"`
	DurationHuman   string  `json:"duration_human"`
	SizeBytes       int64   `json:"file_size_bytes"`
	SizeMB          float64 `json:"file_size_mb"`
	BitrateKbps     int     `json:"total_bitrate_kbps"`
	ContainerFormat string  `json:"container_format"`
	StreamCount     int     `json:"nb_streams"`
}

// VideoStream describes the first video stream.
type VideoStream struct {
	Codec              string  `json:"codec"`
	CodecShort         string  `json:"codec_short"`
	Profile            string  `json:"profile"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	Resolution         string  `json:"resolution"`
	DisplayAspectRatio string  `json:"display_aspect_ratio"`
	FPS                float64 `json:"fps"`
	AvgFPS             float64 `json:"avg_fps"`
	BitrateKbps        int     `json:"bitrate_kbps"`
	PixelFormat        string  `json:"pixel_format"`
	BitDepth           int     `json:"bit_depth"`
	ColorSpace         string  `json:"color_space"`
	TotalFrames        int64   `json:"total_frames"`
	Rotation           int     `json:"rotation"`
}

// AudioStream describes the first audio stream.
type AudioStream struct {
	Codec         string `json:"codec"`
	CodecShort    string `json:"codec_short"`
	Profile       string `json:"profile"`
	SampleRateHz  int    `json:"sample_rate_hz"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout"`
	BitrateKbps   int    `json:"bitrate_kbps"`
	Language      string `json:"language"`
}

// TagSet maps canonical tag keys to their values.
type TagSet map[string]string

// Canonical tag keys.
const (
	TagCreationTime    = "creation_time"
	TagEncoder         = "encoder"
	TagCameraDevice    = "camera_device"
	TagManufacturer    = "manufacturer"
	TagGPSLocation     = "gps_location"
	TagTitle           = "title"
	TagComment         = "comment"
	TagMajorBrand      = "major_brand"
	TagSoftwareVersion = "software_version"
)

// Get returns the value stored under key, or "" when absent.
func (t TagSet) Get(key string) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Metadata is the canonical description of a media file. Both probing
// strategies produce the same shape: absent values are zero, "unknown", or an
// empty tag map, and Video/Audio are nil when no such stream exists.
type Metadata struct {
	File             FileInfo     `json:"file_info"`
	Video            *VideoStream `json:"video,omitempty"`
	Audio            *AudioStream `json:"audio,omitempty"`
	Tags             TagSet       `json:"tags"`
	SubtitleStreams  int          `json:"subtitle_streams"`
	AnalyzedAt       time.Time    `json:"analyzed_at"`
	Source           Source       `json:"source"`
	OriginalFilename string       `json:"original_filename,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// Width returns the video width, or 0 without a video stream.
func (m Metadata) Width() int {
	if m.Video == nil {
		return 0
	}
	return m.Video.Width
}

// CodecShort returns the short video codec name, or "" without a video stream.
func (m Metadata) CodecShort() string {
	if m.Video == nil {
		return ""
	}
	return m.Video.CodecShort
}

// Empty returns a Metadata carrying only what the filesystem can tell about path.
func Empty(path string) Metadata {
	meta := Metadata{
		File: FileInfo{
			FileName:        filepath.Base(path),
			DurationHuman:   HumanDuration(0),
			ContainerFormat: Unknown,
		},
		Tags:   TagSet{},
		Source: SourceNone,
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		meta.File.SizeBytes = info.Size()
		meta.File.SizeMB = bytesToMB(info.Size())
	}
	return meta
}

func newVideoStream() *VideoStream {
	return &VideoStream{
		Codec:              Unknown,
		CodecShort:         Unknown,
		Profile:            Unknown,
		Resolution:         Unknown,
		DisplayAspectRatio: Unknown,
		PixelFormat:        Unknown,
		ColorSpace:         Unknown,
	}
}

func newAudioStream() *AudioStream {
	return &AudioStream{
		Codec:         Unknown,
		CodecShort:    Unknown,
		Profile:       Unknown,
		ChannelLayout: Unknown,
		Language:      Unknown,
	}
}

// HumanDuration renders seconds as "1h 2m 3.5s", omitting zero hour and minute
// parts. Non-positive durations render as "0s".
func HumanDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0s"
	}
	// Work in tenths so rounding happens once, on the decimal form.
	tenths, err := strconv.ParseInt(strings.Replace(strconv.FormatFloat(seconds, 'f', 1, 64), ".", "", 1), 10, 64)
	if err != nil {
		return "0s"
	}
	hours := tenths / 36000
	minutes := (tenths % 36000) / 600
	rest := tenths % 600

	var parts []string
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}
	secs := strconv.FormatInt(rest/10, 10)
	if frac := rest % 10; frac != 0 {
		secs += "." + strconv.FormatInt(frac, 10)
	}
	parts = append(parts, secs+"s")
	return strings.Join(parts, " ")
}

func resolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return Unknown
	}
	return strconv.Itoa(width) + "×" + strconv.Itoa(height)
}

func bytesToMB(size int64) float64 {
	return round2(float64(size) / (1024 * 1024))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return Unknown
	}
	return strings.TrimSpace(value)
}
