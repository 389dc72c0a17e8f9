package ocr

import (
	"context"
	"image"

	"plategate/internal/domain/plate"
)

// Engine recognizes text regions in an already preprocessed image.
// Implementations must be safe for concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]plate.Detection, error)
}
