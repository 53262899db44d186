// Package mediawiki implements a thin client over the generic MediaWiki
// action API, shared by the ACGC (Moegirl Wiki) and Wikipedia handlers,
// which both search-then-fetch an article/page the same way.
//
// Grounded on original_source/src/services/acgc.rs's AcgcService and
// wikipedia.rs's WikipediaService: identical request shape and response
// structs against two different MediaWiki instances.
package mediawiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"whoisd/internal/whoiserr"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// Client queries one MediaWiki instance's api.php endpoint.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for the given api.php URL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type apiResponse struct {
	Query *struct {
		Pages  map[string]Page   `json:"pages"`
		Search []SearchResult    `json:"search"`
	} `json:"query"`
}

// SearchResult is one hit from a list=search query.
type SearchResult struct {
	Title string `json:"title"`
}

// Page is a page's extracted metadata (spec §4.6 "-WIKIPEDIA"/"-ACGC").
type Page struct {
	PageID     *uint64           `json:"pageid"`
	Title      string            `json:"title"`
	Extract    string            `json:"extract"`
	Revisions  []Revision        `json:"revisions"`
	FullURL    string            `json:"fullurl"`
	CanonicalURL string          `json:"canonicalurl"`
	Length     uint64            `json:"length"`
	Touched    string            `json:"touched"`
	Categories []Category        `json:"categories"`
	LangLinks  []LangLink        `json:"langlinks"`
}

// Revision carries raw wikitext content for the "*"-keyed rvprop=content
// field.
type Revision struct {
	Content string `json:"*"`
}

// Category is one [[Category:...]] membership.
type Category struct {
	Title string `json:"title"`
}

// LangLink is one interlanguage link.
type LangLink struct {
	Lang  string `json:"lang"`
	Title string `json:"title"`
}

func (c *Client) get(ctx context.Context, params url.Values) (apiResponse, error) {
	reqURL := c.BaseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apiResponse{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apiResponse{}, whoiserr.Upstream("mediawiki", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiResponse{}, whoiserr.Upstream("mediawiki", resp.Status, nil)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return apiResponse{}, whoiserr.Malformed("mediawiki", "decoding response", err)
	}
	return out, nil
}

// Search performs a list=search query in the main namespace, returning up
// to 5 hits.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"list":        {"search"},
		"srsearch":    {query},
		"srlimit":     {"5"},
		"srnamespace": {"0"},
		"utf8":        {"1"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return nil, nil
	}
	return resp.Query.Search, nil
}

// ArticleDetails fetches extract, categories, language links, and basic
// page metadata for the given page title.
func (c *Client) ArticleDetails(ctx context.Context, title string) (Page, bool, error) {
	params := url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"titles":          {title},
		"prop":            {"extracts|info|categories|langlinks"},
		"exintro":         {"1"},
		"explaintext":     {"1"},
		"exsectionformat": {"plain"},
		"exlimit":         {"1"},
		"inprop":          {"url|length|touched"},
		"cllimit":         {"10"},
		"lllimit":         {"10"},
		"utf8":            {"1"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return Page{}, false, err
	}
	return firstPage(resp)
}

// CharacterDetails fetches extract and raw wikitext revision content for
// the given page title (ACGC needs the raw template markup to extract
// character attributes; plain Wikipedia lookups don't).
func (c *Client) CharacterDetails(ctx context.Context, title string) (Page, bool, error) {
	params := url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"titles":          {title},
		"prop":            {"extracts|revisions"},
		"exintro":         {"1"},
		"explaintext":     {"1"},
		"exsectionformat": {"plain"},
		"rvprop":          {"content"},
		"rvlimit":         {"1"},
		"exlimit":         {"1"},
	}
	resp, err := c.get(ctx, params)
	if err != nil {
		return Page{}, false, err
	}
	return firstPage(resp)
}

func firstPage(resp apiResponse) (Page, bool, error) {
	if resp.Query == nil {
		return Page{}, false, nil
	}
	for _, page := range resp.Query.Pages {
		if page.PageID != nil {
			return page, true, nil
		}
	}
	return Page{}, false, nil
}

var (
	templateRe    = regexp.MustCompile(`\{\{[^}]*\}\}`)
	wikiLinkRe    = regexp.MustCompile(`\[\[([^|\]]*\|)?([^\]]*)\]\]`)
	incompleteRe  = regexp.MustCompile(`\[\[[^\]]*$`)
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
	refTagRe      = regexp.MustCompile(`(?s)<ref[^>]*>.*?</ref>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// CleanWikiText strips MediaWiki markup down to plain, human-readable
// text (grounded on both services' clean_wiki_text).
func CleanWikiText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	text = templateRe.ReplaceAllString(text, "")
	text = wikiLinkRe.ReplaceAllString(text, "$2")
	text = incompleteRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "'''", "")
	text = strings.ReplaceAll(text, "''", "")
	text = htmlTagRe.ReplaceAllString(text, "")
	text = refTagRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")

	return strings.TrimSpace(text)
}
