package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	durationPattern   = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	fpsPattern        = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*fps`)
	bitratePattern    = regexp.MustCompile(`bitrate:\s*(\d+)\s*kb/s`)
	streamPattern     = regexp.MustCompile(`Stream #\d+:\d+`)
	videoLinePattern  = regexp.MustCompile(`Stream.*Video:\s*([^,]+)(.*)`)
	audioLinePattern  = regexp.MustCompile(`Stream.*Audio:\s*([^,]+)(.*)`)
	dimensionPattern  = regexp.MustCompile(`\b(\d{2,5})x(\d{2,5})\b`)
	sampleRatePattern = regexp.MustCompile(`(\d+)\s*Hz`)
	streamKbpsPattern = regexp.MustCompile(`(\d+)\s*kb/s`)
	darPattern        = regexp.MustCompile(`DAR\s+(\d+:\d+)`)
	languagePattern   = regexp.MustCompile(`Stream #\d+:\d+(?:\[[^\]]*\])?\(([A-Za-z]{2,3})\)`)
)

// diagnosticTagKeys is the allowlist of "key : value" lines harvested from the
// ffmpeg metadata block.
var diagnosticTagKeys = []string{
	"creation_time", "encoder", "location", "major_brand", "minor_version",
	"compatible_brands", "make", "model", "date", "title", "comment", "artist", "album",
}

var diagnosticTagPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(diagnosticTagKeys))
	for _, key := range diagnosticTagKeys {
		patterns[key] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(key) + `\s*:\s*(.+)`)
	}
	return patterns
}()

var diagnosticTagRenames = map[string]string{
	"location": TagGPSLocation,
	"model":    TagCameraDevice,
}

var channelLayouts = map[string]int{
	"mono": 1, "stereo": 2, "2.1": 3, "3.0": 3, "quad": 4, "4.0": 4,
	"5.0": 5, "5.0(side)": 5, "5.1": 6, "5.1(side)": 6, "6.1": 7, "7.1": 8,
}

// FromDiagnostic extracts canonical metadata from ffmpeg's human-readable
// stream summary. Every rule is independent; a rule that does not match leaves
// its field at the default. When no rule matches at all the result is Empty(path)
// and ok is false.
func FromDiagnostic(text, path string) (Metadata, bool) {
	meta := Empty(path)
	if strings.TrimSpace(text) == "" {
		return meta, false
	}
	matched := false

	if m := durationPattern.FindStringSubmatch(text); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.ParseFloat(m[3], 64)
		meta.File.DurationSeconds = round2(float64(hours*3600+minutes*60) + seconds)
		meta.File.DurationHuman = HumanDuration(meta.File.DurationSeconds)
		matched = true
	}

	if m := bitratePattern.FindStringSubmatch(text); m != nil {
		meta.File.BitrateKbps, _ = strconv.Atoi(m[1])
		matched = true
	}

	lines := strings.Split(text, "\n")
	if _, m := firstLineMatch(lines, "Video:", videoLinePattern); m != nil {
		meta.Video = videoFromDiagnostic(m[1], m[2])
		if fps := fpsPattern.FindStringSubmatch(text); fps != nil {
			meta.Video.FPS, _ = strconv.ParseFloat(fps[1], 64)
		}
		matched = true
	}
	if line, m := firstLineMatch(lines, "Audio:", audioLinePattern); m != nil {
		meta.Audio = audioFromDiagnostic(line, m[1], m[2])
		matched = true
	}

	for _, key := range diagnosticTagKeys {
		m := diagnosticTagPatterns[key].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		if renamed, ok := diagnosticTagRenames[key]; ok {
			key = renamed
		}
		meta.Tags[key] = value
		matched = true
	}

	for _, line := range lines {
		if streamPattern.MatchString(line) && strings.Contains(line, "Subtitle:") {
			meta.SubtitleStreams++
		}
	}

	if count := len(streamPattern.FindAllString(text, -1)); count > 0 {
		meta.File.StreamCount = count
		matched = true
	}

	if !matched {
		return meta, false
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		meta.File.ContainerFormat = strings.ToUpper(ext)
	}
	meta.Source = SourceFFmpeg
	return meta, true
}

func firstLineMatch(lines []string, marker string, pattern *regexp.Regexp) (string, []string) {
	for _, line := range lines {
		if !strings.Contains(line, marker) {
			continue
		}
		if m := pattern.FindStringSubmatch(line); m != nil {
			return line, m
		}
	}
	return "", nil
}

func videoFromDiagnostic(token, rest string) *VideoStream {
	video := newVideoStream()
	video.Codec = strings.TrimSpace(token)
	video.CodecShort, video.Profile = splitCodecToken(token)
	if m := dimensionPattern.FindStringSubmatch(rest); m != nil {
		video.Width, _ = strconv.Atoi(m[1])
		video.Height, _ = strconv.Atoi(m[2])
		video.Resolution = resolution(video.Width, video.Height)
	}
	if m := darPattern.FindStringSubmatch(rest); m != nil {
		video.DisplayAspectRatio = m[1]
	}
	if m := streamKbpsPattern.FindStringSubmatch(rest); m != nil {
		video.BitrateKbps, _ = strconv.Atoi(m[1])
	}
	if segments := strings.Split(strings.TrimPrefix(rest, ","), ","); len(segments) > 0 {
		pix, _, _ := strings.Cut(strings.TrimSpace(segments[0]), "(")
		if pix = strings.TrimSpace(pix); pix != "" && !dimensionPattern.MatchString(pix) {
			video.PixelFormat = pix
		}
	}
	return video
}

func audioFromDiagnostic(line, token, rest string) *AudioStream {
	audio := newAudioStream()
	audio.Codec = strings.TrimSpace(token)
	audio.CodecShort, audio.Profile = splitCodecToken(token)
	if m := sampleRatePattern.FindStringSubmatch(rest); m != nil {
		audio.SampleRateHz, _ = strconv.Atoi(m[1])
	}
	if m := streamKbpsPattern.FindStringSubmatch(rest); m != nil {
		audio.BitrateKbps, _ = strconv.Atoi(m[1])
	}
	segments := strings.Split(rest, ",")
	for i, segment := range segments {
		if sampleRatePattern.MatchString(segment) && i+1 < len(segments) {
			layout := strings.TrimSpace(segments[i+1])
			if layout != "" {
				audio.ChannelLayout = layout
				audio.Channels = channelLayouts[strings.ToLower(layout)]
			}
			break
		}
	}
	if m := languagePattern.FindStringSubmatch(line); m != nil {
		audio.Language = strings.ToLower(m[1])
	}
	return audio
}

// splitCodecToken turns "h264 (High) (avc1 / 0x31637661)" into ("h264", "High").
func splitCodecToken(token string) (string, string) {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return Unknown, Unknown
	}
	short := strings.ToLower(fields[0])
	profile := Unknown
	if open := strings.Index(token, "("); open >= 0 {
		if end := strings.Index(token[open:], ")"); end > 0 {
			inner := strings.TrimSpace(token[open+1 : open+end])
			if inner != "" && !strings.Contains(inner, "/") {
				profile = inner
			}
		}
	}
	return short, profile
}
