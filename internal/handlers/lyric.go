package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"

	"whoisd/internal/query"
	"whoisd/internal/upstream/mediawiki"
)

func init() {
	register("LYRIC", handleLyric)
}

// lyricClient targets the Vocaloid Lyrics Wiki, a MediaWiki instance
// cataloguing Vocaloid/UTAU/CeVIO song lyrics by performing character --
// the same family of source as the ACGC/Wikipedia handlers, chosen because
// LYRIC (keyed by a singer's name, e.g. "洛天依"/"Hatsune") has no grounding
// file anywhere in original_source: help.rs only documents the query shape
// ("<character>-LYRIC"), never an implementation.
var lyricClient = mediawiki.New("https://vocaloidlyrics.fandom.com/api.php")

var lyricTemplateParamRe = regexp.MustCompile(`(?s)\|\s*(?:Japanese|Chinese|Romaji|English)\s*(?:\d*)\s*=\s*(.*?)\n\s*\|`)

// handleLyric picks a random song performed by the named Vocaloid/UTAU
// character and renders a short lyric excerpt (spec §4.6 "-LYRIC").
func handleLyric(d *Deps, ctx context.Context, q query.Query) []byte {
	performer := strings.TrimSpace(q.Normalized)
	if performer == "" {
		return []byte("Invalid lyric query. Provide a Vocaloid/UTAU performer name.\nExample: Hatsune Miku-LYRIC\n")
	}

	results, err := lyricClient.Search(ctx, performer+" lyrics")
	if err != nil || len(results) == 0 {
		return []byte(fmt.Sprintf(
			"No lyrics found for performer: %s\n\nYou can search manually at: https://vocaloidlyrics.fandom.com/wiki/Special:Search?query=%s\n",
			performer, url.QueryEscape(performer)))
	}

	pick := results[rand.Intn(len(results))]
	page, ok, err := lyricClient.CharacterDetails(ctx, pick.Title)
	if err != nil || !ok || len(page.Revisions) == 0 {
		return []byte(fmt.Sprintf("Lyrics page found but content unavailable: %s\n", pick.Title))
	}

	snippet := extractLyricSnippet(page.Revisions[0].Content)
	if snippet == "" {
		return []byte(fmt.Sprintf(
			"Lyric Information\n%s\nsong: %s\nperformer: %s\n\n(No extractable lyric text in this page's markup)\nsource-url: https://vocaloidlyrics.fandom.com/wiki/%s\n",
			strings.Repeat("=", 60), pick.Title, performer, url.PathEscape(strings.ReplaceAll(pick.Title, " ", "_"))))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Lyric Information\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "song: %s\nperformer: %s\n\n%s\n\n", pick.Title, performer, snippet)
	fmt.Fprintf(&sb, "source-url: https://vocaloidlyrics.fandom.com/wiki/%s\n", url.PathEscape(strings.ReplaceAll(pick.Title, " ", "_")))
	return []byte(sb.String())
}

// extractLyricSnippet pulls a handful of consecutive lines from a
// {{Lyrics|...}} template's Japanese/Chinese/Romaji/English parameter and
// cleans the surrounding wikitext markup.
func extractLyricSnippet(wikitext string) string {
	m := lyricTemplateParamRe.FindStringSubmatch(wikitext)
	var block string
	if m != nil {
		block = m[1]
	} else {
		block = wikitext
	}

	lines := strings.Split(block, "\n")
	var cleaned []string
	for _, line := range lines {
		line = mediawiki.CleanWikiText(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}

	const maxLines = 4
	start := 0
	if len(cleaned) > maxLines {
		start = rand.Intn(len(cleaned) - maxLines)
	}
	end := start + maxLines
	if end > len(cleaned) {
		end = len(cleaned)
	}
	return strings.Join(cleaned[start:end], "\n")
}
