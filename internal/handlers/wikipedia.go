package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"whoisd/internal/query"
	"whoisd/internal/upstream/mediawiki"
)

func init() {
	register("WIKIPEDIA", handleWikipedia)
}

var wikipediaClient = mediawiki.New("https://en.wikipedia.org/w/api.php")

// handleWikipedia searches Wikipedia for a matching article and renders
// its intro extract, categories, and language links (spec §4.6
// "-WIKIPEDIA", grounded on wikipedia.rs).
func handleWikipedia(d *Deps, ctx context.Context, q query.Query) []byte {
	article := strings.TrimSpace(q.Normalized)
	if article == "" {
		return []byte("% Invalid Wikipedia query. Please provide an article name.\n% Example: Rust-WIKIPEDIA\n")
	}

	results, err := wikipediaClient.Search(ctx, article)
	if err != nil {
		return []byte(fmt.Sprintf("Wikipedia Query Failed for: %s\nError: %s\n", article, err))
	}
	if len(results) == 0 {
		return []byte(fmt.Sprintf("Wikipedia Article Not Found: %s\nNo matching articles found on Wikipedia.\n", article))
	}

	page, found, err := wikipediaClient.ArticleDetails(ctx, results[0].Title)
	if err != nil {
		return []byte(fmt.Sprintf("Wikipedia Query Failed for: %s\nError: %s\n", article, err))
	}
	if !found {
		return []byte(fmt.Sprintf("Wikipedia Article Not Found: %s\nNo matching articles found on Wikipedia.\n", article))
	}
	return []byte(renderWikipediaPage(page))
}

func renderWikipediaPage(page mediawiki.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Wikipedia Article Information: %s\n", page.Title)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	if page.PageID != nil {
		fmt.Fprintf(&sb, "page-id: %d\n", *page.PageID)
	}
	fmt.Fprintf(&sb, "title: %s\n", page.Title)
	sb.WriteString("source: Wikipedia (English)\n")

	if page.Length > 0 {
		fmt.Fprintf(&sb, "article-length: %d bytes\n", page.Length)
	}
	if page.Touched != "" {
		if t, err := time.Parse("2006-01-02T15:04:05Z", page.Touched); err == nil {
			fmt.Fprintf(&sb, "last-modified: %s\n", t.Format("2006-01-02 15:04:05 UTC"))
		} else {
			fmt.Fprintf(&sb, "last-modified: %s\n", page.Touched)
		}
	}

	if page.Extract != "" {
		cleaned := mediawiki.CleanWikiText(page.Extract)
		if cleaned != "" {
			if len(cleaned) > 800 {
				cleaned = cleaned[:800] + "..."
			}
			fmt.Fprintf(&sb, "summary: %s\n", cleaned)
		}
	}

	if len(page.Categories) > 0 {
		names := make([]string, 0, len(page.Categories))
		for _, c := range page.Categories {
			if c.Title == "" {
				continue
			}
			names = append(names, strings.ReplaceAll(c.Title, "Category:", ""))
			if len(names) == 8 {
				break
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&sb, "categories: %s\n", strings.Join(names, ", "))
		}
	}

	if len(page.LangLinks) > 0 {
		infos := make([]string, 0, len(page.LangLinks))
		for _, l := range page.LangLinks {
			if l.Lang == "" || l.Title == "" {
				continue
			}
			infos = append(infos, fmt.Sprintf("%s (%s)", l.Lang, l.Title))
			if len(infos) == 8 {
				break
			}
		}
		if len(infos) > 0 {
			fmt.Fprintf(&sb, "languages: %s\n", strings.Join(infos, ", "))
		}
	}

	switch {
	case page.CanonicalURL != "":
		fmt.Fprintf(&sb, "wikipedia-url: %s\n", page.CanonicalURL)
	case page.FullURL != "":
		fmt.Fprintf(&sb, "wikipedia-url: %s\n", page.FullURL)
	default:
		fmt.Fprintf(&sb, "wikipedia-url: https://en.wikipedia.org/wiki/%s\n", url.PathEscape(page.Title))
	}

	sb.WriteString("% Information retrieved from Wikipedia via MediaWiki API\n")
	sb.WriteString("% Query processed by WHOIS server\n")
	return sb.String()
}
