package output

import (
	"os"
	"strings"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"golang.org/x/term"
)

// Encoding is an output serialization
type Encoding string

const (
	EncodingTable    Encoding = "table"
	EncodingJSON     Encoding = "json"
	EncodingMarkdown Encoding = "markdown"
	EncodingHTML     Encoding = "html"
)

// Encodings lists every supported encoding
var Encodings = []Encoding{EncodingTable, EncodingJSON, EncodingMarkdown, EncodingHTML}

// ParseEncoding resolves an encoding name or alias
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "text":
		return EncodingTable, nil
	case "json":
		return EncodingJSON, nil
	case "markdown", "md":
		return EncodingMarkdown, nil
	case "html", "htm":
		return EncodingHTML, nil
	}
	names := make([]string, len(Encodings))
	for i, e := range Encodings {
		names[i] = string(e)
	}
	return "", apperrors.RenderEncodingUnsupported(s, names)
}

// Extension returns the export file extension for e
func (e Encoding) Extension() string {
	switch e {
	case EncodingMarkdown:
		return "md"
	case EncodingHTML:
		return "html"
	case EncodingJSON:
		return "json"
	default:
		return "txt"
	}
}

// Options configures a Renderer
type Options struct {
	NoColor bool
	// Width caps table output; 0 means the terminal width or 120
	Width int
}

// Renderer turns Documents into bytes. It is safe for concurrent use.
type Renderer struct {
	noColor bool
	width   int
}

// NewRenderer creates a renderer
func NewRenderer(opts Options) *Renderer {
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}
	return &Renderer{noColor: opts.NoColor, width: width}
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 40 {
			return w
		}
	}
	return 120
}

// Render serializes the requested view of doc
func (r *Renderer) Render(view View, doc *Document, encoding string) ([]byte, error) {
	enc, err := ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = &Document{}
	}
	if v, ok := ParseView(string(view)); ok {
		view = v
	} else {
		view = ViewSummary
	}

	switch enc {
	case EncodingJSON:
		return renderJSON(view, doc)
	case EncodingMarkdown:
		return []byte(renderMarkdown(view, doc)), nil
	case EncodingHTML:
		return renderHTML(view, doc)
	default:
		return []byte(r.renderTable(view, doc)), nil
	}
}
