package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/vigil/pkg/safety"
)

// Export formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// JSONExporter writes events as a JSON array or as JSON lines.
type JSONExporter struct {
	// Pretty indents array output.
	Pretty bool

	// Lines writes one event per line instead of an array.
	Lines bool
}

// NewJSONExporter returns an exporter for format, which must be FormatJSON
// or FormatJSONL.
func NewJSONExporter(format string, pretty bool) (*JSONExporter, error) {
	switch format {
	case "", FormatJSON:
		return &JSONExporter{Pretty: pretty}, nil
	case FormatJSONL:
		return &JSONExporter{Lines: true}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Export writes events to w.
func (x *JSONExporter) Export(ctx context.Context, events []*safety.Event, w io.Writer) error {
	format := FormatJSON
	if x.Lines {
		format = FormatJSONL
	}
	fail := func(err error) error {
		return &ExportError{Format: format, Count: len(events), Cause: err}
	}

	if x.Lines {
		enc := json.NewEncoder(w)
		for _, e := range events {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
			if err := enc.Encode(e); err != nil {
				return fail(err)
			}
		}
		return nil
	}

	if events == nil {
		events = []*safety.Event{}
	}
	enc := json.NewEncoder(w)
	if x.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(events); err != nil {
		return fail(err)
	}
	return nil
}

// ExportAll writes every event in log, oldest first, and returns the count.
func ExportAll(ctx context.Context, log Log, x *JSONExporter, w io.Writer) (int, error) {
	all, err := log.Query(ctx, nil)
	if err != nil {
		return 0, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if err := x.Export(ctx, all, w); err != nil {
		return 0, err
	}
	return len(all), nil
}
