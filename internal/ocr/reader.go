package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"plategate/internal/domain/plate"
	"plategate/internal/utils"
)

const (
	DefaultMinConfidence = 0.40
	DefaultMinTextLength = 3
)

type Options struct {
	MinConfidence float64
	MinTextLength int
	// Timeout bounds a single Recognize call. Zero means no limit.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinConfidence: DefaultMinConfidence,
		MinTextLength: DefaultMinTextLength,
	}
}

// Reading is the outcome of one OCR pass.
type Reading struct {
	Raw        string
	Norm       string
	Detections []plate.Detection
}

type Reader struct {
	engine Engine
	opts   Options
	log    zerolog.Logger
}

func NewReader(engine Engine, opts Options, log zerolog.Logger) (*Reader, error) {
	if engine == nil {
		return nil, errors.New("ocr engine is required")
	}
	return &Reader{
		engine: engine,
		opts:   opts,
		log:    log,
	}, nil
}

func (r *Reader) EngineName() string {
	return r.engine.Name()
}

// Read preprocesses img, runs the engine and returns the filtered text. An
// image without usable text is not an error: it yields an empty Reading.
func (r *Reader) Read(ctx context.Context, img image.Image) (Reading, error) {
	prepared := Preprocess(img)

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	detections, err := r.engine.Recognize(ctx, prepared)
	if err != nil {
		return Reading{}, fmt.Errorf("%s recognize: %w", r.engine.Name(), err)
	}

	texts := FilterTexts(detections, r.opts.MinConfidence, r.opts.MinTextLength)
	raw := strings.Join(texts, " ")
	reading := Reading{
		Raw:        raw,
		Norm:       utils.NormalizePlate(raw),
		Detections: detections,
	}

	r.log.Debug().
		Str("engine", r.engine.Name()).
		Int("detections", len(detections)).
		Int("kept", len(texts)).
		Str("raw", reading.Raw).
		Str("norm", reading.Norm).
		Dur("took", time.Since(start)).
		Msg("ocr finished")

	return reading, nil
}

// FilterTexts keeps trimmed texts whose confidence is strictly above
// minConfidence and whose length in characters is at least minLength.
func FilterTexts(detections []plate.Detection, minConfidence float64, minLength int) []string {
	texts := make([]string, 0, len(detections))
	for _, d := range detections {
		text := strings.TrimSpace(d.Text)
		if text == "" || d.Confidence <= minConfidence {
			continue
		}
		if utf8.RuneCountInString(text) < minLength {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}
