package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"whoisd/internal/query"
)

func init() {
	register("IMDB", handleIMDB)
	register("IMDBSEARCH", handleIMDBSearch)
}

type imdbResponse struct {
	Response     string       `json:"Response"`
	Title        string       `json:"Title"`
	Year         string       `json:"Year"`
	Rated        string       `json:"Rated"`
	Released     string       `json:"Released"`
	Runtime      string       `json:"Runtime"`
	Genre        string       `json:"Genre"`
	Director     string       `json:"Director"`
	Writer       string       `json:"Writer"`
	Actors       string       `json:"Actors"`
	Plot         string       `json:"Plot"`
	Language     string       `json:"Language"`
	Country      string       `json:"Country"`
	Awards       string       `json:"Awards"`
	Ratings      []imdbRating `json:"Ratings"`
	Metascore    string       `json:"Metascore"`
	IMDBRating   string       `json:"imdbRating"`
	IMDBVotes    string       `json:"imdbVotes"`
	IMDBID       string       `json:"imdbID"`
	Type         string       `json:"Type"`
	BoxOffice    string       `json:"BoxOffice"`
	Production   string       `json:"Production"`
	Website      string       `json:"Website"`
	Error        string       `json:"Error"`
	TotalSeasons string       `json:"totalSeasons"`
}

type imdbRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type imdbSearchResponse struct {
	Search       []imdbSearchResult `json:"Search"`
	Response     string             `json:"Response"`
	Error        string             `json:"Error"`
	TotalResults string             `json:"totalResults"`
}

type imdbSearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDBID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// handleIMDB looks up a movie/TV title (by IMDb ID or title text) via the
// OMDb API, falling back to a search for the first match when a title
// lookup misses (spec §4.6 "-IMDB", grounded on imdb.rs's
// ImdbService::query_imdb_info).
func handleIMDB(d *Deps, ctx context.Context, q query.Query) []byte {
	target := strings.TrimSpace(q.Normalized)
	if target == "" {
		return []byte("Invalid IMDb query format. Use: <title_or_imdb_id>-IMDB\nExample: Inception-IMDB or tt1375666-IMDB\n")
	}
	if d.OMDBAPIKey == "" {
		return []byte(fmt.Sprintf(
			"IMDb Query Failed for: %s\nOMDB API key not configured.\n"+
				"To enable IMDb queries, set the OMDBAPIKey server option.\n"+
				"You can get a free API key from: http://www.omdbapi.com/apikey.aspx\n", target))
	}

	var param string
	if strings.HasPrefix(target, "tt") && len(target) >= 9 {
		param = "i=" + url.QueryEscape(target)
	} else {
		param = "t=" + url.QueryEscape(target)
	}

	u := fmt.Sprintf("http://www.omdbapi.com/?%s&apikey=%s&plot=full", param, url.QueryEscape(d.OMDBAPIKey))
	var resp imdbResponse
	if err := d.fetchJSON(ctx, u, &resp); err != nil {
		return []byte(fmt.Sprintf("IMDb Query Failed for: %s\nError: %s\n", target, err))
	}

	if resp.Response == "True" {
		return []byte(formatIMDBInfo(&resp))
	}

	if !strings.HasPrefix(target, "tt") {
		if result, ok := d.imdbSearchFirst(ctx, d.OMDBAPIKey, target); ok {
			return []byte(result)
		}
		errText := resp.Error
		if errText == "" {
			errText = "Movie not found!"
		}
		return []byte(fmt.Sprintf(
			"IMDb Information Not Found for: %s\n%s\n"+
				"Note: For non-English titles, try using the English title or IMDb ID (e.g., tt1234567-IMDB)\n"+
				"Use '<title>-IMDBSEARCH' for broader search results.\n", target, errText))
	}
	errText := resp.Error
	if errText == "" {
		errText = "Movie not found!"
	}
	return []byte(fmt.Sprintf("IMDb Information Not Found for: %s\n%s\n", target, errText))
}

// imdbSearchFirst searches by title and fetches full details for the top
// result (grounded on search_and_get_first_result).
func (d *Deps) imdbSearchFirst(ctx context.Context, apiKey, title string) (string, bool) {
	u := fmt.Sprintf("http://www.omdbapi.com/?s=%s&apikey=%s", url.QueryEscape(title), url.QueryEscape(apiKey))
	var search imdbSearchResponse
	if err := d.fetchJSON(ctx, u, &search); err != nil || search.Response != "True" || len(search.Search) == 0 {
		return "", false
	}

	detailsURL := fmt.Sprintf("http://www.omdbapi.com/?i=%s&apikey=%s&plot=full",
		url.QueryEscape(search.Search[0].IMDBID), url.QueryEscape(apiKey))
	var details imdbResponse
	if err := d.fetchJSON(ctx, detailsURL, &details); err != nil || details.Response != "True" {
		return "", false
	}
	return formatIMDBInfo(&details), true
}

// handleIMDBSearch lists up to 10 title matches (spec §4.6 "-IMDBSEARCH",
// grounded on search_imdb).
func handleIMDBSearch(d *Deps, ctx context.Context, q query.Query) []byte {
	term := strings.TrimSpace(q.Normalized)
	if term == "" {
		return []byte("Invalid IMDb search query. Please provide a search term.\nExample: Batman-IMDBSEARCH\n")
	}
	if d.OMDBAPIKey == "" {
		return []byte(fmt.Sprintf(
			"IMDb Search Failed for: %s\nOMDB API key not configured.\n"+
				"To enable IMDb searches, set the OMDBAPIKey server option.\n"+
				"You can get a free API key from: http://www.omdbapi.com/apikey.aspx\n", term))
	}

	u := fmt.Sprintf("http://www.omdbapi.com/?s=%s&apikey=%s", url.QueryEscape(term), url.QueryEscape(d.OMDBAPIKey))
	var search imdbSearchResponse
	if err := d.fetchJSON(ctx, u, &search); err != nil {
		return []byte(fmt.Sprintf("IMDb Search Failed for: %s\nError: %s\n", term, err))
	}
	if search.Response != "True" {
		errText := search.Error
		if errText == "" {
			errText = "Unknown error"
		}
		return []byte(fmt.Sprintf("IMDb Search Failed for: %s\n%s\n", term, errText))
	}
	if len(search.Search) == 0 {
		return []byte(fmt.Sprintf("No IMDb search results found for: %s\n", term))
	}

	results := search.Search
	if len(results) > 10 {
		results = results[:10]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "IMDb Search Results for: %s\n", term)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Found %d titles:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. Title Information\n", i+1)
		sb.WriteString(strings.Repeat("-", 25) + "\n")
		fmt.Fprintf(&sb, "imdb-id: %s\ntitle: %s\nyear: %s\ntype: %s\nimdb-url: https://www.imdb.com/title/%s/\n\n",
			r.IMDBID, r.Title, r.Year, r.Type, r.IMDBID)
	}
	fmt.Fprintf(&sb, "%% Use '%s-IMDB' to get detailed information for a specific title\n", results[0].IMDBID)
	sb.WriteString("% Search limited to top 10 results\n")
	return []byte(sb.String())
}

func formatIMDBInfo(imdb *imdbResponse) string {
	var sb strings.Builder
	if imdb.Title != "" {
		fmt.Fprintf(&sb, "IMDb Information for: %s\n", imdb.Title)
	} else {
		sb.WriteString("IMDb Information\n")
	}
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	writeField := func(key, val string) {
		if val != "" {
			fmt.Fprintf(&sb, "%s: %s\n", key, val)
		}
	}
	writeField("imdb-id", imdb.IMDBID)
	writeField("title", imdb.Title)
	writeField("year", imdb.Year)
	writeField("type", imdb.Type)
	writeField("rated", imdb.Rated)
	writeField("runtime", imdb.Runtime)
	writeField("genre", imdb.Genre)
	writeField("director", imdb.Director)
	writeField("writer", imdb.Writer)
	writeField("actors", imdb.Actors)
	writeField("language", imdb.Language)
	writeField("country", imdb.Country)
	writeField("released", imdb.Released)

	if imdb.IMDBRating != "" {
		fmt.Fprintf(&sb, "imdb-rating: %s/10\n", imdb.IMDBRating)
	}
	writeField("imdb-votes", imdb.IMDBVotes)
	if imdb.Metascore != "" {
		fmt.Fprintf(&sb, "metascore: %s/100\n", imdb.Metascore)
	}
	for _, r := range imdb.Ratings {
		fmt.Fprintf(&sb, "rating-%s: %s\n", strings.ReplaceAll(strings.ToLower(r.Source), " ", "-"), r.Value)
	}
	writeField("box-office", imdb.BoxOffice)
	if imdb.Awards != "" && imdb.Awards != "N/A" {
		writeField("awards", imdb.Awards)
	}
	if imdb.Production != "" && imdb.Production != "N/A" {
		writeField("production", imdb.Production)
	}
	if imdb.Website != "" && imdb.Website != "N/A" {
		writeField("website", imdb.Website)
	}
	writeField("total-seasons", imdb.TotalSeasons)
	if imdb.Plot != "" && imdb.Plot != "N/A" {
		plot := strings.NewReplacer("\r\n", " ", "\n", " ").Replace(imdb.Plot)
		fmt.Fprintf(&sb, "plot: %s\n", plot)
	}
	if imdb.IMDBID != "" {
		fmt.Fprintf(&sb, "imdb-url: https://www.imdb.com/title/%s/\n", imdb.IMDBID)
	}
	return sb.String()
}
