package render

import (
	"context"
	"fmt"
	"slices"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/style"
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// Formats lists every supported format.
var Formats = []string{FormatSVG, FormatDOT, FormatJSON}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatSVG:
		return "image/svg+xml"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "application/json"
	}
}

// ValidateFormat checks that format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return pgerrors.New(pgerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, dot, json)", format)
	}
	return nil
}

// Render produces the snapshot in the given format.
func Render(ctx context.Context, snap style.Snapshot, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return MarshalFlow(snap)
	case FormatDOT:
		return []byte(ToDOT(snap, DOTOptions{})), nil
	case FormatSVG:
		return RenderSVG(ctx, ToDOT(snap, DOTOptions{}))
	default:
		return nil, ValidateFormat(format)
	}
}

// RenderAll renders every requested format, stopping at the first error.
func RenderAll(ctx context.Context, snap style.Snapshot, formats []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(formats))
	for _, f := range formats {
		data, err := Render(ctx, snap, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out[f] = data
	}
	return out, nil
}
