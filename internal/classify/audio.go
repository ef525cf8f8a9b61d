package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"truthx/internal/logging"
)

// AudioDetector estimates whether a file's speech is synthetic.
type AudioDetector interface {
	DetectAudio(ctx context.Context, mediaPath string) (AudioResult, error)
}

// ErrAudioNotImplemented is reported by the stub detector.
var ErrAudioNotImplemented = errors.New("not implemented")

// StubAudioDetector produces no estimate.
type StubAudioDetector struct {
	Logger *slog.Logger
}

// DetectAudio implements AudioDetector.
func (d StubAudioDetector) DetectAudio(context.Context, string) (AudioResult, error) {
	if d.Logger != nil {
		d.Logger.Debug("synthetic voice detection is not implemented", logging.String(logging.FieldEventType, "audio_stub"))
	}
	return AudioResult{Error: ErrAudioNotImplemented.Error()}, nil
}

// SafeDetectAudio calls detector and converts errors and panics into a result
// without an estimate.
func SafeDetectAudio(ctx context.Context, detector AudioDetector, mediaPath string, logger *slog.Logger) (result AudioResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failedAudio(fmt.Errorf("audio detector panic: %v", r), logger)
		}
	}()
	if detector == nil {
		return failedAudio(errors.New("audio detector not configured"), logger)
	}
	res, err := detector.DetectAudio(ctx, mediaPath)
	if err != nil {
		return failedAudio(err, logger)
	}
	return res
}

func failedAudio(err error, logger *slog.Logger) AudioResult {
	logging.WarnWithContext(logger, "audio analysis skipped", "audio_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "report carries no synthetic-voice estimate"),
	)
	return AudioResult{Error: err.Error()}
}
