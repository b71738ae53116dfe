// Package negotiate implements content negotiation for the Accept and
// Accept-Encoding request headers. Negotiation never fails a request: when
// nothing acceptable is offered the package falls back to the defaults
// (JSON, identity) rather than erroring.
package negotiate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/facet-api/facet/internal/encoding"
)

// qualityItem is one parsed entry of a comma-separated negotiation header
type qualityItem struct {
	value string
	q     float64
	pos   int
}

// parseQualityList parses a header of the form "a;q=0.5, b, c;q=0.8" into
// items ordered by descending quality. Items with equal quality keep their
// header order. A malformed q parameter counts as q=0.
func parseQualityList(header string) []qualityItem {
	var items []qualityItem
	for pos, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ";")
		item := qualityItem{value: strings.ToLower(strings.TrimSpace(fields[0])), q: 1.0, pos: pos}
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if !strings.HasPrefix(param, "q=") {
				continue
			}
			q, err := strconv.ParseFloat(param[2:], 64)
			if err != nil {
				q = 0
			}
			item.q = q
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].q > items[j].q
	})
	return items
}

// Format selects the representation format from an Accept header. The
// highest-quality media type that names a supported format wins; an empty
// or indifferent header yields JSON.
func Format(accept string) encoding.Format {
	for _, item := range parseQualityList(accept) {
		if item.q <= 0 {
			continue
		}
		switch {
		case strings.Contains(item.value, "xml"):
			return encoding.FormatXML
		case strings.Contains(item.value, "json"), item.value == "*/*":
			return encoding.FormatJSON
		}
	}
	return encoding.FormatJSON
}
