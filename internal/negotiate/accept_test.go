package negotiate

import (
	"testing"

	"github.com/facet-api/facet/internal/encoding"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   encoding.Format
	}{
		{"empty header", "", encoding.FormatJSON},
		{"json", "application/json", encoding.FormatJSON},
		{"xml", "application/xml", encoding.FormatXML},
		{"text xml", "text/xml", encoding.FormatXML},
		{"wildcard", "*/*", encoding.FormatJSON},
		{"unknown media type", "text/html", encoding.FormatJSON},
		{"quality picks xml", "application/json;q=0.4, application/xml;q=0.9", encoding.FormatXML},
		{"quality picks json", "application/xml;q=0.5, application/json", encoding.FormatJSON},
		{"zero quality excluded", "application/xml;q=0, application/json;q=0.1", encoding.FormatJSON},
		{"malformed quality counts as zero", "application/xml;q=abc, application/json;q=0.1", encoding.FormatJSON},
		{"vendor media type", "application/vnd.facet+xml", encoding.FormatXML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.accept); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.accept, got, tt.want)
			}
		})
	}
}
