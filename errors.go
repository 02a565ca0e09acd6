package curveplot

import (
	"errors"
	"fmt"
)

// ErrCanvasNotFound is returned when no canvas is registered under the
// requested id.
var ErrCanvasNotFound = errors.New("canvas not found")

// ErrUnknownFunction is returned by LookupFunction for names not in the
// catalog.
var ErrUnknownFunction = errors.New("unknown function")

// ErrInvalidRange is returned when a label range cannot be generated.
var ErrInvalidRange = errors.New("invalid range")

// ErrUnsupportedFormat is returned for output formats the renderer cannot
// produce.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// RenderError is returned when the charting library fails to draw a chart.
type RenderError struct {
	CanvasID string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render chart on canvas %q: %v", e.CanvasID, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
