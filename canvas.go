package curveplot

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Canvas is a drawable surface with fixed pixel dimensions. Renderers write
// the encoded image (PNG or SVG) onto it.
type Canvas struct {
	ID     string
	Width  int
	Height int

	mutex       sync.RWMutex
	surface     []byte
	contentType string
}

func NewCanvas(id string) *Canvas {
	return &Canvas{ID: id}
}

// SetSize fixes the pixel dimensions of the canvas.
func (c *Canvas) SetSize(width, height int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.Width = width
	c.Height = height
}

// Size returns the current pixel dimensions.
func (c *Canvas) Size() (int, int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.Width, c.Height
}

// Paint replaces the surface with an encoded image.
func (c *Canvas) Paint(contentType string, image []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.contentType = contentType
	c.surface = image
}

// Snapshot returns a copy of the surface and its content type. The surface is
// empty until something is painted.
func (c *Canvas) Snapshot() (string, []byte) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.contentType, bytes.Clone(c.surface)
}

// Document holds canvases by id, standing in for the host page the chart is
// drawn into.
type Document struct {
	mutex    sync.RWMutex
	canvases map[string]*Canvas

	logger logrus.FieldLogger
}

func NewDocument() *Document {
	return &Document{
		canvases: make(map[string]*Canvas),
		logger:   logrus.WithField("tag", "Document"),
	}
}

// CreateCanvas registers a new canvas under id, replacing any existing one.
func (d *Document) CreateCanvas(id string) *Canvas {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c := NewCanvas(id)
	if _, exists := d.canvases[id]; exists {
		d.logger.WithField("canvasID", id).Warn("replacing existing canvas")
	}
	d.canvases[id] = c
	return c
}

// GetElementByID returns the canvas registered under id, or nil.
func (d *Document) GetElementByID(id string) *Canvas {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return d.canvases[id]
}

// LookupCanvas is GetElementByID returning ErrCanvasNotFound instead of nil.
func (d *Document) LookupCanvas(id string) (*Canvas, error) {
	c := d.GetElementByID(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrCanvasNotFound, id)
	}
	return c, nil
}
