package drift

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// Source marks how a point was produced.
type Source string

const (
	SourceMeasured  Source = "measured"
	SourceEstimated Source = "estimated"
)

// Series bounds.
const (
	MinSegments    = 8
	MaxSegments    = 20
	SecondsPerStep = 5

	// DefaultBaseScore seeds estimated series when no assessment exists.
	DefaultBaseScore = 85

	minEstimated = 10
	maxValue     = 100
	amplitude    = 5
	jitterRange  = 3
)

// Point is one sample of the timeline.
type Point struct {
	Offset int
	Value  int
	Source Source
}

// MarshalJSON renders the point as {"t":"12s","v":80} with "type" set for
// estimated points only.
func (p Point) MarshalJSON() ([]byte, error) {
	wire := struct {
		T    string `json:"t"`
		V    int    `json:"v"`
		Type Source `json:"type,omitempty"`
	}{T: fmt.Sprintf("%ds", p.Offset), V: p.Value}
	if p.Source == SourceEstimated {
		wire.Type = SourceEstimated
	}
	return json.Marshal(wire)
}

// JitterFunc returns a uniformly distributed integer in [-n, n].
type JitterFunc func(n int) int

func defaultJitter(n int) int {
	return rand.IntN(2*n+1) - n
}

// Synthesizer produces drift series. It is safe for concurrent use.
type Synthesizer struct {
	jitter JitterFunc
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithJitter replaces the jitter source used by estimated series.
func WithJitter(fn JitterFunc) Option {
	return func(s *Synthesizer) {
		if fn != nil {
			s.jitter = fn
		}
	}
}

// NewSynthesizer returns a Synthesizer.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{jitter: defaultJitter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SegmentCount returns clamp(floor(duration/5), 8, 20).
func SegmentCount(duration float64) int {
	n := int(math.Floor(duration / SecondsPerStep))
	return min(max(n, MinSegments), MaxSegments)
}

// Synthesize returns the series for a clip of the given duration. Per-frame
// probabilities are preferred; baseScore is used only for the estimated path.
// The result is empty when duration is not positive.
func (s *Synthesizer) Synthesize(duration float64, perFrame []map[string]float64, baseScore int) []Point {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return []Point{}
	}
	if len(perFrame) > 0 {
		return measured(duration, perFrame)
	}
	return s.estimated(duration, baseScore)
}

func measured(duration float64, perFrame []map[string]float64) []Point {
	segments := SegmentCount(duration)
	// One point per whole second at most keeps offsets strictly ascending.
	segments = min(segments, max(1, int(math.Floor(duration))), len(perFrame))
	chunk := (len(perFrame) + segments - 1) / segments

	points := make([]Point, 0, segments)
	for start := 0; start < len(perFrame); start += chunk {
		end := min(start+chunk, len(perFrame))
		var sum float64
		for _, frame := range perFrame[start:end] {
			sum += authenticityProxy(frame)
		}
		mean := sum / float64(end-start)
		offset := int(math.Floor(float64(start) / float64(len(perFrame)) * duration))
		if n := len(points); n > 0 && offset <= points[n-1].Offset {
			continue
		}
		points = append(points, Point{
			Offset: offset,
			Value:  clamp(int(math.Round(mean*100)), 0, maxValue),
			Source: SourceMeasured,
		})
	}
	return points
}

// authenticityProxy prefers a "real" class probability and falls back to the
// strongest class.
func authenticityProxy(frame map[string]float64) float64 {
	if len(frame) == 0 {
		return 0.5
	}
	best := math.Inf(-1)
	for label, prob := range frame {
		if strings.EqualFold(label, "real") {
			return prob
		}
		best = math.Max(best, prob)
	}
	return best
}

func (s *Synthesizer) estimated(duration float64, baseScore int) []Point {
	segments := SegmentCount(duration)
	points := make([]Point, 0, segments)
	for i := range segments {
		offset := int(math.Floor(float64(i) * duration / float64(segments)))
		wave := amplitude * math.Sin(2*math.Pi*float64(i)/float64(segments))
		value := int(float64(baseScore) + wave + float64(s.jitter(jitterRange)))
		points = append(points, Point{
			Offset: offset,
			Value:  clamp(value, minEstimated, maxValue),
			Source: SourceEstimated,
		})
	}
	return points
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
