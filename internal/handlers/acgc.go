package handlers

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"whoisd/internal/query"
	"whoisd/internal/upstream/mediawiki"
)

func init() {
	register("ACGC", handleACGC)
}

var moegirlClient = mediawiki.New("https://zh.moegirl.org.cn/api.php")

// acgcFieldPattern maps one wiki-template field name (Chinese character
// sheet conventions) to its rendered WHOIS attribute name (grounded on
// acgc.rs's extract_character_info template_patterns table).
type acgcFieldPattern struct {
	re    *regexp.Regexp
	field string
}

var acgcFieldPatterns = []acgcFieldPattern{
	{regexp.MustCompile(`作品\s*=\s*([^|\n}]+)`), "source-work"},
	{regexp.MustCompile(`系列\s*=\s*([^|\n}]+)`), "series"},
	{regexp.MustCompile(`声优\s*[：=:|]\s*([^|\n}]+)`), "voice-actor"},
	{regexp.MustCompile(`配音\s*[：=:|]\s*([^|\n}]+)`), "voice-actor"},
	{regexp.MustCompile(`CV\s*[：=:|]\s*([^|\n}]+)`), "voice-actor"},
	{regexp.MustCompile(`日配\s*[：=:|]\s*([^|\n}]+)`), "voice-actor-jp"},
	{regexp.MustCompile(`中配\s*[：=:|]\s*([^|\n}]+)`), "voice-actor-cn"},
	{regexp.MustCompile(`年龄\s*[：=:|]\s*([^|\n}]+)`), "age"},
	{regexp.MustCompile(`生日\s*[：=:|]\s*([^|\n}]+)`), "birthday"},
	{regexp.MustCompile(`身高\s*[：=:|]\s*([^|\n}]+)`), "height"},
	{regexp.MustCompile(`体重\s*[：=:|]\s*([^|\n}]+)`), "weight"},
	{regexp.MustCompile(`性别\s*[：=:|]\s*([^|\n}]+)`), "gender"},
	{regexp.MustCompile(`种族\s*[：=:|]\s*([^|\n}]+)`), "species"},
	{regexp.MustCompile(`血型\s*[：=:|]\s*([^|\n}]+)`), "blood-type"},
	{regexp.MustCompile(`发色\s*[：=:|]\s*([^|\n}]+)`), "hair-color"},
	{regexp.MustCompile(`瞳色\s*[：=:|]\s*([^|\n}]+)`), "eye-color"},
	{regexp.MustCompile(`眼色\s*[：=:|]\s*([^|\n}]+)`), "eye-color"},
	{regexp.MustCompile(`出身\s*[：=:|]\s*([^|\n}]+)`), "origin"},
	{regexp.MustCompile(`职业\s*[：=:|]\s*([^|\n}]+)`), "occupation"},
	{regexp.MustCompile(`身份\s*[：=:|]\s*([^|\n}]+)`), "identity"},
	{regexp.MustCompile(`性格\s*[：=:|]\s*([^|\n}]+)`), "personality"},
	{regexp.MustCompile(`萌点\s*[：=:|]\s*([^|\n}]+)`), "moe-points"},
	{regexp.MustCompile(`喜好\s*[：=:|]\s*([^|\n}]+)`), "hobby"},
	{regexp.MustCompile(`爱好\s*[：=:|]\s*([^|\n}]+)`), "hobby"},
	{regexp.MustCompile(`特技\s*[：=:|]\s*([^|\n}]+)`), "special-skill"},
	{regexp.MustCompile(`能力\s*[：=:|]\s*([^|\n}]+)`), "ability"},
	{regexp.MustCompile(`武器\s*[：=:|]\s*([^|\n}]+)`), "weapon"},
	{regexp.MustCompile(`称号\s*[：=:|]\s*([^|\n}]+)`), "title"},
	{regexp.MustCompile(`别名\s*[：=:|]\s*([^|\n}]+)`), "alias"},
	{regexp.MustCompile(`外号\s*[：=:|]\s*([^|\n}]+)`), "nickname"},
}

var acgcCategoryRe = regexp.MustCompile(`\[\[Category:([^\]]+)\]\]`)

// handleACGC searches Moegirl Wiki (萌娘百科) for an ACG character and
// renders attributes scraped from its infobox template (spec §4.6
// "-ACGC", grounded on acgc.rs's AcgcService).
func handleACGC(d *Deps, ctx context.Context, q query.Query) []byte {
	character := strings.TrimSpace(q.Normalized)
	if character == "" {
		return []byte("Invalid ACGC query. Please provide a character name.\nExample: 利姆鲁-ACGC\n")
	}

	results, err := moegirlClient.Search(ctx, character)
	if err != nil {
		return []byte(fmt.Sprintf("ACGC Query Failed for: %s\nError: %s\n", character, err))
	}
	if len(results) == 0 {
		return []byte(fmt.Sprintf("ACGC Character Not Found: %s\nNo matching characters found on Moegirl Wiki.\n", character))
	}

	page, found, err := moegirlClient.CharacterDetails(ctx, results[0].Title)
	if err != nil {
		return []byte(fmt.Sprintf("ACGC Query Failed for: %s\nError: %s\n", character, err))
	}
	if !found {
		return []byte(fmt.Sprintf("ACGC Character Not Found: %s\nNo matching characters found on Moegirl Wiki.\n", character))
	}
	return []byte(renderACGCPage(page))
}

func renderACGCPage(page mediawiki.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ACGC Character Information: %s\n", page.Title)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	if page.PageID != nil {
		fmt.Fprintf(&sb, "page-id: %d\n", *page.PageID)
	}
	fmt.Fprintf(&sb, "character-name: %s\n", page.Title)
	sb.WriteString("source: Moegirl Wiki (萌娘百科)\n")

	if page.Extract != "" {
		cleaned := mediawiki.CleanWikiText(page.Extract)
		if cleaned != "" {
			fmt.Fprintf(&sb, "description: %s\n", cleaned)
		}
	}

	if len(page.Revisions) > 0 {
		sb.WriteString(extractACGCInfo(page.Revisions[0].Content))
	}

	fmt.Fprintf(&sb, "moegirl-url: https://zh.moegirl.org.cn/%s\n", url.PathEscape(page.Title))
	return sb.String()
}

// extractACGCInfo scrapes attribute fields from raw wikitext template
// markup, deduplicating values per field (grounded on
// extract_character_info).
func extractACGCInfo(content string) string {
	values := map[string]map[string]struct{}{}
	order := []string{}

	for _, p := range acgcFieldPatterns {
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			cleaned := mediawiki.CleanWikiText(m[1])
			if !validACGCValue(cleaned) {
				continue
			}
			set, ok := values[p.field]
			if !ok {
				set = map[string]struct{}{}
				values[p.field] = set
				order = append(order, p.field)
			}
			set[cleaned] = struct{}{}
		}
	}

	var sb strings.Builder
	for _, field := range order {
		set := values[field]
		if len(set) == 0 {
			continue
		}
		items := make([]string, 0, len(set))
		for v := range set {
			items = append(items, v)
		}
		fmt.Fprintf(&sb, "%s: %s\n", field, strings.Join(items, ", "))
	}

	var categories []string
	for _, m := range acgcCategoryRe.FindAllStringSubmatch(content, -1) {
		cat := m[1]
		if strings.Contains(cat, "角色") || strings.Contains(cat, "人物") || strings.Contains(cat, "萌点") ||
			strings.Contains(cat, "属性") || strings.Contains(cat, "声优") || strings.Contains(cat, "CV") {
			categories = append(categories, cat)
		}
	}
	if len(categories) > 0 && len(categories) <= 10 {
		fmt.Fprintf(&sb, "categories: %s\n", strings.Join(categories, ", "))
	}
	return sb.String()
}

func validACGCValue(v string) bool {
	if v == "" || len(v) <= 1 || len(v) >= 300 {
		return false
	}
	if strings.HasPrefix(v, "Category:") || strings.Contains(v, "内容=") {
		return false
	}
	if v == "Race" || v == "Skill" || v == "Ultimate Skill" {
		return false
	}
	if strings.Contains(v, "{{") || strings.Contains(v, "}}") {
		return false
	}
	return true
}
