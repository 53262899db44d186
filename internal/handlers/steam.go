package handlers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"whoisd/internal/query"
)

func init() {
	register("STEAM", handleSteam)
	register("STEAMSEARCH", handleSteamSearch)
}

type steamAppDetails struct {
	Success bool          `json:"success"`
	Data    *steamAppData `json:"data"`
}

type steamAppData struct {
	Name                string   `json:"name"`
	SteamAppID          uint32   `json:"steam_appid"`
	Type                string   `json:"type"`
	IsFree              bool     `json:"is_free"`
	ShortDescription    string   `json:"short_description"`
	SupportedLanguages  string   `json:"supported_languages"`
	Developers          []string `json:"developers"`
	Publishers          []string `json:"publishers"`
	Platforms           *struct {
		Windows bool `json:"windows"`
		Mac     bool `json:"mac"`
		Linux   bool `json:"linux"`
	} `json:"platforms"`
	Categories []struct {
		Description string `json:"description"`
	} `json:"categories"`
	Genres []struct {
		Description string `json:"description"`
	} `json:"genres"`
	ReleaseDate *struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	PriceOverview *struct {
		Currency          string `json:"currency"`
		DiscountPercent   uint32 `json:"discount_percent"`
		InitialFormatted  string `json:"initial_formatted"`
		FinalFormatted    string `json:"final_formatted"`
	} `json:"price_overview"`
	Website     string `json:"website"`
	Metacritic  *struct {
		Score uint32 `json:"score"`
		URL   string `json:"url"`
	} `json:"metacritic"`
	Recommendations *struct {
		Total uint32 `json:"total"`
	} `json:"recommendations"`
	Achievements *struct {
		Total uint32 `json:"total"`
	} `json:"achievements"`
}

type steamUserResponse struct {
	Response struct {
		Players []steamUserProfile `json:"players"`
	} `json:"response"`
}

type steamUserProfile struct {
	SteamID                  string `json:"steamid"`
	CommunityVisibilityState uint32 `json:"communityvisibilitystate"`
	ProfileState             uint32 `json:"profilestate"`
	PersonaName              string `json:"personaname"`
	ProfileURL               string `json:"profileurl"`
	Avatar                   string `json:"avatar"`
	AvatarMedium             string `json:"avatarmedium"`
	AvatarFull               string `json:"avatarfull"`
	PersonaState             uint32 `json:"personastate"`
	RealName                 string `json:"realname"`
	PrimaryClanID            string `json:"primaryclanid"`
	TimeCreated              *int64 `json:"timecreated"`
	LocCountryCode           string `json:"loccountrycode"`
	LocStateCode             string `json:"locstatecode"`
}

type steamAppListResponse struct {
	AppList struct {
		Apps []struct {
			AppID uint32 `json:"appid"`
			Name  string `json:"name"`
		} `json:"apps"`
	} `json:"applist"`
}

// handleSteam looks up a Steam app (by numeric ID) or user profile (spec
// §4.6 "-STEAM", grounded on steam.rs's SteamService::query_app_info and
// query_user_info).
func handleSteam(d *Deps, ctx context.Context, q query.Query) []byte {
	target := strings.TrimSpace(q.Normalized)
	if target == "" {
		return []byte("Invalid Steam query format. Use: <app_id>-STEAM or <steam_id>-STEAM\n")
	}

	if isLikelySteamAppID(target) {
		appID, _ := strconv.ParseUint(target, 10, 32)
		return []byte(d.querySteamAppInfo(ctx, uint32(appID)))
	}
	return []byte(d.querySteamUserInfo(ctx, d.SteamAPIKey, target))
}

// isLikelySteamAppID distinguishes short numeric app IDs from 17-digit
// SteamID64 user identifiers (grounded on is_likely_app_id).
func isLikelySteamAppID(s string) bool {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return false
	}
	return n < 10_000_000
}

func (d *Deps) querySteamAppInfo(ctx context.Context, appID uint32) string {
	u := fmt.Sprintf("https://store.steampowered.com/api/appdetails?appids=%d&l=english", appID)

	var raw map[string]steamAppDetails
	if err := d.fetchJSON(ctx, u, &raw); err != nil {
		return fmt.Sprintf("Steam App Query Failed for ID: %d\nError: %s\n", appID, err)
	}
	details, ok := raw[strconv.FormatUint(uint64(appID), 10)]
	if !ok {
		return fmt.Sprintf("Steam App Not Found for ID: %d\nNo data returned from Steam API.\n", appID)
	}
	if !details.Success || details.Data == nil {
		return fmt.Sprintf("Steam App Query Failed for ID: %d\nApplication data not available.\n", appID)
	}
	return formatSteamAppInfo(details.Data)
}

func (d *Deps) querySteamUserInfo(ctx context.Context, apiKey, steamID string) string {
	if apiKey == "" {
		return fmt.Sprintf(
			"Steam User Query Failed for ID: %s\nSteam API key not configured.\n"+
				"To enable user profile queries, set the SteamAPIKey server option.\n"+
				"You can get an API key from: https://steamcommunity.com/dev/apikey\n", steamID)
	}

	u := fmt.Sprintf("https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v0002/?key=%s&steamids=%s",
		url.QueryEscape(apiKey), url.QueryEscape(steamID))
	var resp steamUserResponse
	if err := d.fetchJSON(ctx, u, &resp); err != nil {
		return fmt.Sprintf("Steam User Query Failed for ID: %s\nError: %s\n", steamID, err)
	}
	if len(resp.Response.Players) == 0 {
		return fmt.Sprintf("Steam User Not Found for ID: %s\nProfile may not exist or may be private.\n", steamID)
	}
	return formatSteamUserInfo(&resp.Response.Players[0])
}

// handleSteamSearch performs a fuzzy name search over the Steam app list
// (spec §4.6 "-STEAMSEARCH", grounded on search_games_via_app_list — the
// store search API in the original is an unofficial endpoint omitted here
// in favor of the always-available official app-list endpoint).
func handleSteamSearch(d *Deps, ctx context.Context, q query.Query) []byte {
	term := strings.TrimSpace(q.Normalized)
	if term == "" {
		return []byte("Invalid Steam search query. Please provide a search term.\nExample: Counter-Strike-STEAMSEARCH\n")
	}

	var resp steamAppListResponse
	if err := d.fetchJSON(ctx, "https://api.steampowered.com/ISteamApps/GetAppList/v2/", &resp); err != nil {
		return []byte(fmt.Sprintf("Steam search failed: %s\n", err))
	}

	type match struct {
		appID uint32
		name  string
		score int
	}
	termLower := strings.ToLower(term)
	var matches []match
	for _, app := range resp.AppList.Apps {
		nameLower := strings.ToLower(app.Name)
		var score int
		switch {
		case nameLower == termLower:
			score = 100
		case strings.HasPrefix(nameLower, termLower):
			score = 50
		case strings.Contains(nameLower, termLower):
			score = 25
		}
		if score > 0 {
			matches = append(matches, match{app.AppID, app.Name, score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > 10 {
		matches = matches[:10]
	}
	if len(matches) == 0 {
		return []byte(fmt.Sprintf("No Steam games found matching: %s\n", term))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Steam Game Search Results for: %s\n", term)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Found %d games:\n\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. Game Information\n", i+1)
		sb.WriteString(strings.Repeat("-", 25) + "\n")
		fmt.Fprintf(&sb, "app-id: %d\nname: %s\nsteam-url: https://store.steampowered.com/app/%d/\n\n", m.appID, m.name, m.appID)
	}
	fmt.Fprintf(&sb, "%% Use '%d-STEAM' to get detailed information for a specific game\n", matches[0].appID)
	sb.WriteString("% Search limited to top 10 results\n")
	return []byte(sb.String())
}

func formatSteamAppInfo(app *steamAppData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Steam Application Information for ID: %d\n", app.SteamAppID)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "app-id: %d\nname: %s\ntype: %s\nis-free: %t\n", app.SteamAppID, app.Name, app.Type, app.IsFree)

	if len(app.Developers) > 0 {
		fmt.Fprintf(&sb, "developers: %s\n", strings.Join(app.Developers, ", "))
	}
	if len(app.Publishers) > 0 {
		fmt.Fprintf(&sb, "publishers: %s\n", strings.Join(app.Publishers, ", "))
	}
	if app.ReleaseDate != nil {
		fmt.Fprintf(&sb, "release-date: %s\ncoming-soon: %t\n", app.ReleaseDate.Date, app.ReleaseDate.ComingSoon)
	}
	if app.Platforms != nil {
		var plats []string
		if app.Platforms.Windows {
			plats = append(plats, "Windows")
		}
		if app.Platforms.Mac {
			plats = append(plats, "macOS")
		}
		if app.Platforms.Linux {
			plats = append(plats, "Linux")
		}
		fmt.Fprintf(&sb, "platforms: %s\n", strings.Join(plats, ", "))
	}
	if p := app.PriceOverview; p != nil {
		if p.DiscountPercent > 0 {
			fmt.Fprintf(&sb, "price: %s (%d%%↓)\noriginal-price: %s\n", p.FinalFormatted, p.DiscountPercent, p.InitialFormatted)
		} else {
			fmt.Fprintf(&sb, "price: %s\n", p.FinalFormatted)
		}
		fmt.Fprintf(&sb, "currency: %s\n", p.Currency)
	}
	if app.Metacritic != nil {
		fmt.Fprintf(&sb, "metacritic-score: %d\nmetacritic-url: %s\n", app.Metacritic.Score, app.Metacritic.URL)
	}
	if app.Recommendations != nil {
		fmt.Fprintf(&sb, "recommendations: %d\n", app.Recommendations.Total)
	}
	if app.Achievements != nil {
		fmt.Fprintf(&sb, "achievements: %d\n", app.Achievements.Total)
	}
	if app.Website != "" {
		fmt.Fprintf(&sb, "website: %s\n", app.Website)
	}
	if len(app.Genres) > 0 {
		names := make([]string, len(app.Genres))
		for i, g := range app.Genres {
			names[i] = g.Description
		}
		fmt.Fprintf(&sb, "genres: %s\n", strings.Join(names, ", "))
	}
	if len(app.Categories) > 0 {
		names := make([]string, len(app.Categories))
		for i, c := range app.Categories {
			names[i] = c.Description
		}
		fmt.Fprintf(&sb, "categories: %s\n", strings.Join(names, ", "))
	}
	if app.SupportedLanguages != "" {
		langs := strings.NewReplacer("<br>", ", ", "<strong>", "", "</strong>", "").Replace(app.SupportedLanguages)
		fmt.Fprintf(&sb, "supported-languages: %s\n", langs)
	}
	if app.ShortDescription != "" {
		desc := strings.NewReplacer("\r\n", " ", "\n", " ").Replace(app.ShortDescription)
		fmt.Fprintf(&sb, "description: %s\n", desc)
	}
	fmt.Fprintf(&sb, "steam-url: https://store.steampowered.com/app/%d/\n", app.SteamAppID)
	return sb.String()
}

func formatSteamUserInfo(p *steamUserProfile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Steam User Profile Information for ID: %s\n", p.SteamID)
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "steamid: %s\npersonaname: %s\n", p.SteamID, p.PersonaName)
	if p.RealName != "" {
		fmt.Fprintf(&sb, "realname: %s\n", p.RealName)
	}
	fmt.Fprintf(&sb, "profileurl: %s\n", p.ProfileURL)

	visibility := "Public"
	switch p.CommunityVisibilityState {
	case 1:
		visibility = "Private"
	case 3:
		visibility = "Friends Only"
	}
	fmt.Fprintf(&sb, "visibility: %s\n", visibility)

	profileState := "Unknown"
	switch p.ProfileState {
	case 0:
		profileState = "Not Configured"
	case 1:
		profileState = "Configured"
	}
	fmt.Fprintf(&sb, "profile-state: %s\n", profileState)

	personaStates := map[uint32]string{
		0: "Offline", 1: "Online", 2: "Busy", 3: "Away",
		4: "Snooze", 5: "Looking to trade", 6: "Looking to play",
	}
	status, ok := personaStates[p.PersonaState]
	if !ok {
		status = "Unknown"
	}
	fmt.Fprintf(&sb, "status: %s\n", status)

	if p.TimeCreated != nil {
		t := time.Unix(*p.TimeCreated, 0).UTC()
		fmt.Fprintf(&sb, "created: %s (%d)\n", t.Format("2006-01-02 15:04:05 UTC"), *p.TimeCreated)
	}
	if p.LocCountryCode != "" {
		fmt.Fprintf(&sb, "country: %s\n", p.LocCountryCode)
	}
	if p.LocStateCode != "" {
		fmt.Fprintf(&sb, "state: %s\n", p.LocStateCode)
	}
	if p.PrimaryClanID != "" {
		fmt.Fprintf(&sb, "primary-clan-id: %s\n", p.PrimaryClanID)
	}
	fmt.Fprintf(&sb, "avatar: %s\navatar-medium: %s\navatar-full: %s\n", p.Avatar, p.AvatarMedium, p.AvatarFull)
	return sb.String()
}
