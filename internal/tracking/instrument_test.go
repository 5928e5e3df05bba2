package tracking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentRewritesLinksAndInjectsPixel(t *testing.T) {
	instrumentor := NewInstrumentor("http://track.test/")
	html := `<html><body>
<a href="https://shop.test/sale">Sale</a>
<a href="https://shop.test/new">New</a>
</body></html>`

	out, links := instrumentor.Instrument(html, "trk-1")

	require.Len(t, links, 2)
	assert.Equal(t, "https://shop.test/sale", links[0].Original)
	assert.Equal(t, "http://track.test/t/c/trk-1/0", links[0].Tracking)
	assert.Equal(t, "https://shop.test/new", links[1].Original)
	assert.Equal(t, "http://track.test/t/c/trk-1/1", links[1].Tracking)

	assert.NotContains(t, out, "https://shop.test/sale")
	assert.Contains(t, out, `href="http://track.test/t/c/trk-1/0"`)
	assert.Contains(t, out, `href="http://track.test/t/c/trk-1/1"`)

	// Pixel lands inside the body
	pixel := `<img src="http://track.test/t/o/trk-1"`
	assert.Contains(t, out, pixel)
	assert.Less(t, strings.Index(out, pixel), strings.Index(out, "</body>"))
}

func TestInstrumentCollapsesDuplicateHrefs(t *testing.T) {
	instrumentor := NewInstrumentor("http://track.test")
	html := `<a href="https://shop.test/sale">here</a> and <a href="https://shop.test/sale">again</a>`

	out, links := instrumentor.Instrument(html, "trk-1")

	require.Len(t, links, 1)
	assert.Equal(t, 2, strings.Count(out, "/t/c/trk-1/0"))
}

func TestInstrumentSkipsFragmentsAndMailto(t *testing.T) {
	instrumentor := NewInstrumentor("http://track.test")
	html := `<a href="#top">Top</a> <a href="mailto:team@acme.test">Write us</a> <a href="MAILTO:ops@acme.test">Ops</a> <a href="https://acme.test">Site</a>`

	out, links := instrumentor.Instrument(html, "trk-1")

	require.Len(t, links, 1)
	assert.Equal(t, "https://acme.test", links[0].Original)
	assert.Contains(t, out, `href="#top"`)
	assert.Contains(t, out, `href="mailto:team@acme.test"`)
}

func TestInstrumentWithoutBodyTagAppendsPixel(t *testing.T) {
	instrumentor := NewInstrumentor("http://track.test")

	out, links := instrumentor.Instrument("<p>No links here</p>", "trk-1")

	assert.Empty(t, links)
	assert.True(t, strings.HasSuffix(out, `alt="" />`))
	assert.Contains(t, out, "http://track.test/t/o/trk-1")
}

func TestInstrumentPrefixHrefsKeepTheirOwnIndex(t *testing.T) {
	instrumentor := NewInstrumentor("http://track.test")
	html := `<a href="https://x.test">Home</a> <a href="https://x.test/page">Page</a>`

	out, links := instrumentor.Instrument(html, "trk-1")

	require.Len(t, links, 2)
	assert.Equal(t, "https://x.test", links[0].Original)
	assert.Equal(t, "https://x.test/page", links[1].Original)

	// The longer href must land on its own index, not be mangled by the
	// shorter one's replacement pass.
	assert.Contains(t, out, `href="http://track.test/t/c/trk-1/0"`)
	assert.Contains(t, out, `href="http://track.test/t/c/trk-1/1"`)
	assert.NotContains(t, out, "x.test")
}

func TestInstrumentSingleQuotedHref(t *testing.T) {
	instrumentor := NewInstrumentor("http://track.test")

	out, links := instrumentor.Instrument(`<a href='https://shop.test/x'>x</a>`, "trk-1")

	require.Len(t, links, 1)
	assert.Contains(t, out, "/t/c/trk-1/0")
}
