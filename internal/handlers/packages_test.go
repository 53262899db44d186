package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestValidPackageName(t *testing.T) {
	require.True(t, validPackageName("serde", 64))
	require.False(t, validPackageName("", 64))
	require.False(t, validPackageName(strings.Repeat("a", 65), 64))
}

// TestAOSCPageScrape exercises the same goquery selectors handleAOSC uses,
// against a minimal stand-in for packages.aosc.io's markup, confirming the
// DOM-query approach (not a raw regex) extracts version and description.
func TestAOSCPageScrape(t *testing.T) {
	html := `<html><head>
<meta name="description" content="A small, fast package manager">
</head><body>
<div class="pkg-header"><span class="pkg-version">1.2.3-1</span></div>
</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	version := strings.TrimSpace(doc.Find("span.pkg-version").First().Text())
	require.Equal(t, "1.2.3-1", version)

	description, ok := doc.Find(`meta[name="description"]`).First().Attr("content")
	require.True(t, ok)
	require.Equal(t, "A small, fast package manager", description)
}

func TestAOSCPageScrape_MissingVersionIsEmpty(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>no package here</body></html>`))
	require.NoError(t, err)
	require.Equal(t, "", strings.TrimSpace(doc.Find("span.pkg-version").First().Text()))
}

func TestDecodeJSONBody(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(bytes.NewBufferString(`{"hits":{"hits":[]}}`))}
	var dst nixosSearchResponse
	require.NoError(t, decodeJSONBody(resp, &dst))
	require.Empty(t, dst.Hits.Hits)
}

func TestCargoNotFound(t *testing.T) {
	msg := cargoNotFound("does-not-exist")
	require.Contains(t, msg, "does-not-exist")
}

func TestHandleCargo_FetchJSONWiring(t *testing.T) {
	// handleCargo hits the real crates.io host directly (not injectable), so
	// this exercises the shared d.fetchJSON path it calls through instead,
	// the same way fetch_test.go does for the other registries.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"crate":{"name":"serde","newest_version":"1.0.0"}}`))
	}))
	defer srv.Close()

	d := &Deps{}
	var resp crateResponse
	require.NoError(t, d.fetchJSON(context.Background(), srv.URL, &resp))
	require.Equal(t, "serde", resp.Crate.Name)
}
