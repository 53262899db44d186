package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"whoisd/internal/query"
)

func init() {
	register("PIXIV", handlePixiv)
}

// handlePixiv parses the PIXIV query sub-forms (spec §4.6 "-PIXIV", grounded
// on pixiv.rs's process_pixiv_query dispatch: "user:ID", "search:keyword",
// "ranking" / "ranking:mode", "illusts:ID", or a bare artwork ID).
//
// Unlike the other package/media handlers, Pixiv has no public,
// unauthenticated API: the original's own Rust client
// (services/pixiv/pixiv_impl.rs) depends on a PixivClient that is not part
// of this source tree, and the documented Pixiv "AppAPI" it wraps requires
// a reverse-engineered OAuth refresh-token flow Pixiv has never published.
// Rather than fabricate artwork/user records the way nixos.rs and epel.rs
// do for their registries, this degrades gracefully -- same posture as
// MEAL-CN -- while still honoring the full query grammar.
func handlePixiv(d *Deps, ctx context.Context, q query.Query) []byte {
	base := strings.TrimSpace(q.Normalized)

	var kind, detail string
	switch {
	case strings.HasPrefix(base, "user:"):
		kind, detail = "user", base[len("user:"):]
	case strings.HasPrefix(base, "search:"):
		kind, detail = "search", base[len("search:"):]
	case strings.HasPrefix(base, "illusts:"):
		kind, detail = "illusts", base[len("illusts:"):]
	case strings.HasPrefix(base, "ranking"):
		kind = "ranking"
		if idx := strings.Index(base, ":"); idx != -1 {
			detail = base[idx+1:]
		} else {
			detail = "day"
		}
	default:
		if _, err := strconv.ParseInt(base, 10, 64); err == nil {
			kind, detail = "artwork", base
		} else {
			return []byte(fmt.Sprintf(
				"Invalid Pixiv query format: %s\n"+
					"Use one of: <artwork_id>-PIXIV, user:<id>-PIXIV, search:<keyword>-PIXIV, "+
					"ranking[:mode]-PIXIV, illusts:<user_id>-PIXIV\n", base))
		}
	}

	var sb strings.Builder
	sb.WriteString("% Pixiv query support is unavailable on this server\n")
	fmt.Fprintf(&sb, "%% Parsed request: kind=%s target=%s\n", kind, detail)
	sb.WriteString("%\n")
	sb.WriteString("% Pixiv does not expose a public, unauthenticated API. Artwork, user,\n")
	sb.WriteString("% search, ranking, and illustration-listing data all require the private\n")
	sb.WriteString("% Pixiv AppAPI, reachable only via a reverse-engineered OAuth refresh-token\n")
	sb.WriteString("% flow that Pixiv has never documented or published.\n")
	sb.WriteString("%\n")
	sb.WriteString("% To browse Pixiv content directly, visit:\n")
	switch kind {
	case "user":
		fmt.Fprintf(&sb, "%%   https://www.pixiv.net/users/%s\n", detail)
	case "illusts":
		fmt.Fprintf(&sb, "%%   https://www.pixiv.net/users/%s/artworks\n", detail)
	case "search":
		fmt.Fprintf(&sb, "%%   https://www.pixiv.net/tags/%s/artworks\n", strings.ReplaceAll(detail, " ", "%20"))
	case "ranking":
		fmt.Fprintf(&sb, "%%   https://www.pixiv.net/ranking.php?mode=%s\n", detail)
	default:
		fmt.Fprintf(&sb, "%%   https://www.pixiv.net/artworks/%s\n", detail)
	}
	return []byte(sb.String())
}
