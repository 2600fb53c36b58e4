package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/storage"
)

// Exporter writes rendered reports as artifacts
type Exporter struct {
	renderer *Renderer
	store    *storage.ArtifactStore
	now      func() time.Time
	newID    func() string
}

// ExporterOption customises an Exporter
type ExporterOption func(*Exporter)

// WithClock overrides the time used in artifact names
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// WithIDSource overrides the random suffix used in artifact names
func WithIDSource(fn func() string) ExporterOption {
	return func(e *Exporter) { e.newID = fn }
}

// NewExporter creates an exporter writing into dir
func NewExporter(renderer *Renderer, dir string, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		renderer: renderer,
		store:    storage.NewArtifactStore(dir),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the export directory
func (e *Exporter) Dir() string {
	return e.store.Dir()
}

// FileName builds the artifact name for an export taken at t
func FileName(t time.Time, id string, enc Encoding) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("inventory-report-%s-%s.%s", t.UTC().Format("20060102-150405"), short, enc.Extension())
}

// Export renders the report view of doc and writes it. Table output cannot
// be exported.
func (e *Exporter) Export(doc *Document, encoding string) (string, error) {
	enc, err := ParseEncoding(encoding)
	if err != nil {
		return "", err
	}
	if enc == EncodingTable {
		return "", apperrors.RenderEncodingUnsupported(encoding, []string{
			string(EncodingMarkdown), string(EncodingHTML), string(EncodingJSON),
		})
	}

	data, err := e.renderer.Render(ViewReport, doc, string(enc))
	if err != nil {
		return "", err
	}

	path, err := e.store.Create(FileName(e.now(), e.newID(), enc), data)
	if err != nil {
		return "", apperrors.ArtifactWriteFailed(path, err)
	}
	return path, nil
}
