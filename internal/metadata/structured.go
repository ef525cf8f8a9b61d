package metadata

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"truthx/internal/media/ffprobe"
)

// tagAliases lists, per canonical key, the raw tag names that may carry the
// value, in priority order. The first non-empty alias wins.
var tagAliases = []struct {
	key     string
	aliases []string
}{
	{TagCreationTime, []string{"creation_time", "date", "DATE"}},
	{TagEncoder, []string{"encoder", "Encoder", "writing_library", "handler_name"}},
	{TagCameraDevice, []string{"com.apple.quicktime.model", "model", "camera", "com.android.model"}},
	{TagManufacturer, []string{"com.apple.quicktime.make", "make", "manufacturer"}},
	{TagGPSLocation, []string{"com.apple.quicktime.location.ISO6709", "location"}},
	{TagTitle, []string{"title"}},
	{TagComment, []string{"comment"}},
	{TagMajorBrand, []string{"major_brand"}},
	{TagSoftwareVersion, []string{"com.apple.quicktime.software", "software"}},
}

// FromProbe canonicalizes an ffprobe result. The first video and first audio
// streams are described; subtitle streams are only counted.
func FromProbe(result ffprobe.Result, path string) Metadata {
	meta := Metadata{
		File: FileInfo{
			FileName:        filepath.Base(path),
			DurationSeconds: round2(result.DurationSeconds()),
			SizeBytes:       result.SizeBytes(),
			BitrateKbps:     kbps(result.BitRate()),
			ContainerFormat: containerName(result.Format),
			StreamCount:     result.Format.NBStreams,
		},
		SubtitleStreams: result.StreamCount("subtitle"),
		Source:          SourceFFprobe,
	}
	if meta.File.StreamCount == 0 {
		meta.File.StreamCount = len(result.Streams)
	}
	if meta.File.SizeBytes == 0 {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			meta.File.SizeBytes = info.Size()
		}
	}
	meta.File.SizeMB = bytesToMB(meta.File.SizeBytes)
	meta.File.DurationHuman = HumanDuration(meta.File.DurationSeconds)

	merged := make(map[string]string, len(result.Format.Tags))
	for k, v := range result.Format.Tags {
		merged[k] = v
	}

	if stream, ok := result.FirstStream("video"); ok {
		meta.Video = videoFromStream(stream)
		for k, v := range stream.Tags {
			merged[k] = v
		}
	}
	if stream, ok := result.FirstStream("audio"); ok {
		meta.Audio = audioFromStream(stream)
	}
	meta.Tags = canonicalTags(merged)
	return meta
}

func videoFromStream(stream ffprobe.Stream) *VideoStream {
	video := newVideoStream()
	video.CodecShort = orUnknown(stream.CodecName)
	video.Codec = orUnknown(firstNonEmpty(stream.CodecLongName, stream.CodecName))
	video.Profile = orUnknown(stream.Profile)
	video.Width = stream.Width
	video.Height = stream.Height
	video.Resolution = resolution(stream.Width, stream.Height)
	video.DisplayAspectRatio = orUnknown(stream.DisplayAspectRatio)
	video.FPS = ffprobe.FrameRate(stream.RFrameRate)
	video.AvgFPS = ffprobe.FrameRate(stream.AvgFrameRate)
	video.BitrateKbps = kbps(stream.BitRate.Int())
	video.PixelFormat = orUnknown(stream.PixelFormat)
	video.BitDepth = int(stream.BitsPerRawSample.Int())
	video.ColorSpace = orUnknown(stream.ColorSpace)
	video.TotalFrames = stream.NBFrames.Int()
	video.Rotation = stream.Rotation()
	return video
}

func audioFromStream(stream ffprobe.Stream) *AudioStream {
	audio := newAudioStream()
	audio.CodecShort = orUnknown(stream.CodecName)
	audio.Codec = orUnknown(firstNonEmpty(stream.CodecLongName, stream.CodecName))
	audio.Profile = orUnknown(stream.Profile)
	audio.SampleRateHz = int(stream.SampleRate.Int())
	audio.Channels = stream.Channels
	audio.ChannelLayout = orUnknown(stream.ChannelLayout)
	audio.BitrateKbps = kbps(stream.BitRate.Int())
	audio.Language = orUnknown(stream.Tags["language"])
	return audio
}

func canonicalTags(raw map[string]string) TagSet {
	tags := TagSet{}
	for _, entry := range tagAliases {
		for _, alias := range entry.aliases {
			if value := strings.TrimSpace(raw[alias]); value != "" {
				tags[entry.key] = value
				break
			}
		}
	}
	return tags
}

func containerName(format ffprobe.Format) string {
	return orUnknown(firstNonEmpty(format.FormatLongName, format.FormatName))
}

func kbps(bitsPerSecond int64) int {
	if bitsPerSecond <= 0 {
		return 0
	}
	return int(math.Round(float64(bitsPerSecond) / 1000))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
