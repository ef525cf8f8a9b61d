package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// maxDiagnosticBytes bounds the captured stderr; the stream summary is printed
// before any per-frame output so the head is all that matters.
const maxDiagnosticBytes = 1 << 20

// Diagnose runs ffmpeg in input-inspection mode and returns the human-readable
// stream summary it prints on stderr. ffmpeg exits non-zero when no output file
// is given, so the exit status is ignored; only a failure to start the binary
// or an expired context is an error.
func Diagnose(ctx context.Context, binary, path string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("ffmpeg diagnose: empty path")
	}

	stderr := &limitedBuffer{limit: maxDiagnosticBytes}
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", "-nostdin", "-i", path)
	cmd.Stderr = stderr
	cmd.Stdout = io.Discard
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stderr.String(), fmt.Errorf("ffmpeg diagnose: %w", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("ffmpeg diagnose: %w", err)
		}
	}
	return stderr.String(), nil
}

// SampleOptions controls frame sampling.
type SampleOptions struct {
	// Rate is the number of frames sampled per second of media.
	Rate float64
	// Size is the square edge, in pixels, frames are scaled to.
	Size int
	// MaxFrames caps the number of frames returned.
	MaxFrames int
	// Duration, when positive, lowers Rate so that MaxFrames frames span
	// the whole clip rather than its opening seconds.
	Duration float64
}

// effectiveRate returns the sampling rate after the duration cap.
func (o SampleOptions) effectiveRate() float64 {
	if o.Duration > 0 && !math.IsInf(o.Duration, 0) {
		return min(o.Rate, float64(o.MaxFrames)/o.Duration)
	}
	return o.Rate
}

// SampleFrames decodes evenly spaced frames from path and returns them as RGB
// images scaled to opts.Size square. Frames are streamed over stdout as raw
// rgb24 so no scratch files are written.
func SampleFrames(ctx context.Context, binary, path string, opts SampleOptions) ([]image.Image, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Size <= 0 {
		opts.Size = 224
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 120
	}

	filter := fmt.Sprintf("fps=%s,scale=%d:%d", strconv.FormatFloat(opts.effectiveRate(), 'f', -1, 64), opts.Size, opts.Size)
	args := []string{
		"-hide_banner", "-nostdin", "-v", "error",
		"-i", path,
		"-vf", filter,
		"-frames:v", strconv.Itoa(opts.MaxFrames),
		"-f", "rawvideo", "-pix_fmt", "rgb24", "-",
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg sample: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg sample: %w", err)
	}

	frames, readErr := readRGBFrames(stdout, opts.Size, opts.MaxFrames)
	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("ffmpeg sample: %w", ctxErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("ffmpeg sample: read frames: %w", readErr)
	}
	if waitErr != nil && len(frames) == 0 {
		return nil, fmt.Errorf("ffmpeg sample: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return frames, nil
}

// readRGBFrames splits a raw rgb24 stream into size×size images. A trailing
// partial frame is dropped.
func readRGBFrames(r io.Reader, size, limit int) ([]image.Image, error) {
	frameBytes := size * size * 3
	buf := make([]byte, frameBytes)
	var frames []image.Image
	for len(frames) < limit {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return frames, err
		}
		frames = append(frames, rgbToImage(buf, size))
	}
	_, _ = io.Copy(io.Discard, r)
	return frames, nil
}

func rgbToImage(rgb []byte, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i, j := 0, 0; i+2 < len(rgb); i, j = i+3, j+4 {
		img.Pix[j] = rgb[i]
		img.Pix[j+1] = rgb[i+1]
		img.Pix[j+2] = rgb[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
