package report

import (
	"errors"
	"fmt"
	"strings"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned for formats other than markdown or json.
var ErrUnknownFormat = errors.New("unknown report format")

// Render renders r in the named format and returns the body with its content type.
// An empty format means markdown.
func Render(r *Report, format string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown, "md":
		return RenderMarkdown(r), "text/markdown; charset=utf-8", nil
	case FormatJSON:
		body, err := RenderJSON(r)
		if err != nil {
			return "", "", err
		}
		return body, "application/json", nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
