package encoding_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-api/facet/internal/encoding"
	"github.com/facet-api/facet/internal/query"
)

func encodeXML(t *testing.T, sel query.Selector, expand string, opts encoding.Options) string {
	t.Helper()
	graph := resolveGraph(t, sel, expand)
	data, err := encoding.Encode(graph, encoding.FormatXML, opts)
	require.NoError(t, err)
	return string(data)
}

func TestXMLSingleInstance(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "user", ID: "u1"}, "", encoding.Options{})

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	// The instance element is named after the kind, with attribute fields
	// rendered on the element itself.
	assert.Contains(t, out, `<user id="u1">`)
	assert.Contains(t, out, "<firstName>Zoé</firstName>")
	assert.Contains(t, out, "<email>zoe@example.com</email>")
	assert.Contains(t, out, "</user>")
	// Unexpanded reverse collections are not part of the representation.
	assert.NotContains(t, out, "<posts")
}

func TestXMLExplicitNull(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "user", ID: "u1"}, "", encoding.Options{})

	assert.Contains(t, out, `<lastName null="true">`)
}

func TestXMLReferenceAsBareIdentifier(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "post", ID: "p1"}, "", encoding.Options{})

	assert.Contains(t, out, `<post id="p1">`)
	assert.Contains(t, out, "<text>hello</text>")
	assert.Contains(t, out, "<rating>4</rating>")
	assert.Contains(t, out, "<owner>u1</owner>")
}

func TestXMLExpansion(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "post", ID: "p1"}, "owner,comments.owner", encoding.Options{})

	// The expanded reference nests the full target element.
	assert.Contains(t, out, `<owner><user id="u1">`)
	// u1 already rendered in full, so the first comment's owner collapses
	// to a ref marker while u2 renders in full.
	assert.Contains(t, out, `<owner ref="u1">`)
	assert.Contains(t, out, `<owner><user id="u2">`)
	// The reverse collection wraps kind-named items.
	assert.Contains(t, out, `<comments><comment id="c1">`)
}

func TestXMLDedupMarkerForm(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "user", ID: "u1"}, "comments.post.comments", encoding.Options{})

	// c1 renders in full once; reaching it again through post.comments
	// collapses to the same ref-attribute marker single references use.
	assert.Contains(t, out, `<comment id="c1">`)
	assert.Contains(t, out, `<comment ref="c1">`)
	assert.Contains(t, out, `<comment id="c2">`)
}

func TestXMLCollection(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "comment", Page: 1, Limit: 1}, "", encoding.Options{})

	assert.Contains(t, out, `<comments total="2" page="1" limit="1">`)
	assert.Contains(t, out, `<comment id="c1">`)
	assert.NotContains(t, out, `<comment id="c2">`)
	assert.Contains(t, out, "</comments>")
}

func TestXMLLinks(t *testing.T) {
	out := encodeXML(t, query.Selector{Kind: "post", ID: "p1"}, "",
		encoding.Options{BaseURL: "/api/v1", Links: true})

	assert.Contains(t, out, "<links>")
	assert.Contains(t, out, `<link rel="self" href="/api/v1/posts/p1">`)
	assert.Contains(t, out, `<link rel="comments" href="/api/v1/posts/p1/comments">`)
}

func TestXMLDeterministic(t *testing.T) {
	sel := query.Selector{Kind: "post", ID: "p1"}
	first := encodeXML(t, sel, "owner,comments", encoding.Options{})
	second := encodeXML(t, sel, "owner,comments", encoding.Options{})
	assert.Equal(t, first, second)
}
