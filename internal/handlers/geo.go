package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"whoisd/internal/enrich"
	"whoisd/internal/query"
	"whoisd/internal/ratelimit"
	"whoisd/internal/upstream/apiclient"
)

func init() {
	register("GEO", handleGeo)
	register("RIRGEO", handleRIRGeo)
	register("ULTIMATEGEO", handleUltimateGeo)
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Country     string  `json:"country"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// plainClient is the shared apiclient.Client (spec §4.3.2) behind every
// unauthenticated upstream fetch in this package: a single place to set
// timeout/user-agent policy instead of each handler building its own
// *http.Client.
var plainClient = apiclient.New(10 * time.Second)

// upstreamHost extracts the rate limiter's bucket key from a request URL,
// so e.g. every crates.io call shares one bucket regardless of path.
func upstreamHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// fetchJSON issues a cached, rate-limited GET against url and decodes the
// JSON response into dst. The Deps-level cache (keyed by URL) and limiter
// (keyed by host) are shared across every handler in this package so that a
// query repeated within the cache TTL, or a burst against one upstream,
// doesn't retrigger a fresh round-trip per handler (spec §5.3).
func (d *Deps) fetchJSON(ctx context.Context, url string, dst any) error {
	return d.fetchJSONVia(ctx, plainClient, url, dst)
}

// fetchJSONVia is fetchJSON generalized over the apiclient.Client doing the
// round-trip, so callers needing non-default auth (e.g. CurseForge's
// x-api-key header) still go through the same cache/limiter path.
func (d *Deps) fetchJSONVia(ctx context.Context, c *apiclient.Client, url string, dst any) error {
	if d.Cache != nil {
		if found, err := d.Cache.Get(url, dst); err == nil && found {
			return nil
		}
	}
	if d.Limiter != nil {
		host := upstreamHost(url)
		ok, retryAfter, err := d.Limiter.Acquire(ctx, host)
		if err == nil && !ok {
			return &ratelimit.RateLimitedError{Upstream: host, RetryAfter: retryAfter}
		}
	}

	if err := c.GetJSON(ctx, url, dst); err != nil {
		return err
	}
	if d.Cache != nil {
		_ = d.Cache.Set(url, dst, DefaultFetchCacheTTL)
	}
	return nil
}

// fetchText retrieves a URL's body as plain text, for handlers that scrape
// an HTML page rather than consume a JSON API (grounded on the regex-based
// HTML field extraction in acgc.go and wikipedia.go). Cached and
// rate-limited the same way fetchJSON is.
func (d *Deps) fetchText(ctx context.Context, rawURL string) (string, error) {
	type cached struct{ Body string }
	var c cached
	if d.Cache != nil {
		if found, err := d.Cache.Get(rawURL, &c); err == nil && found {
			return c.Body, nil
		}
	}
	if d.Limiter != nil {
		host := upstreamHost(rawURL)
		ok, retryAfter, err := d.Limiter.Acquire(ctx, host)
		if err == nil && !ok {
			return "", &ratelimit.RateLimitedError{Upstream: host, RetryAfter: retryAfter}
		}
	}

	textClient := apiclient.New(15 * time.Second)
	textClient.UserAgent = packageUserAgent
	body, err := textClient.GetText(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if d.Cache != nil {
		_ = d.Cache.Set(rawURL, cached{Body: body}, DefaultFetchCacheTTL)
	}
	return body, nil
}

// handleGeo renders a commercial IP-geolocation lookup via ip-api.com
// (spec §4.6 "-GEO", grounded on geo/formatters.rs's ip_api source).
func handleGeo(d *Deps, ctx context.Context, q query.Query) []byte {
	ip := q.Normalized
	var resp ipAPIResponse
	if err := d.fetchJSON(ctx, "http://ip-api.com/json/"+ip, &resp); err != nil {
		return []byte(fmt.Sprintf("%% Error: geolocation lookup failed for %s: %s\n", ip, err))
	}
	if resp.Status != "success" {
		return []byte(fmt.Sprintf("%% Error: no geolocation data for %s\n", ip))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% IP Geolocation for %s\n%%\n", ip)
	fmt.Fprintf(&sb, "country:    %s\n", resp.Country)
	fmt.Fprintf(&sb, "region:     %s\n", resp.RegionName)
	fmt.Fprintf(&sb, "city:       %s\n", resp.City)
	fmt.Fprintf(&sb, "isp:        %s\n", resp.ISP)
	fmt.Fprintf(&sb, "org:        %s\n", resp.Org)
	fmt.Fprintf(&sb, "as:         %s\n", resp.AS)
	return []byte(sb.String())
}

type ripestatGeolocResponse struct {
	Data struct {
		LocatedResources []struct {
			Resource string `json:"resource"`
			Location string `json:"location"`
		} `json:"located_resources"`
	} `json:"data"`
}

// handleRIRGeo renders RIPEstat's RIR geolocation data (spec §4.6 "-RIRGEO",
// grounded on format_rir_geo_response).
func handleRIRGeo(d *Deps, ctx context.Context, q query.Query) []byte {
	resource := q.Normalized
	var resp ripestatGeolocResponse
	if err := d.fetchJSON(ctx, "https://stat.ripe.net/data/geoloc/data.json?resource="+resource, &resp); err != nil {
		return []byte(fmt.Sprintf("%% Error: RIR geolocation lookup failed for %s: %s\n", resource, err))
	}

	var sb strings.Builder
	sb.WriteString("% RIPE NCC STAT RIR Geographic Query\n")
	fmt.Fprintf(&sb, "%% Query: %s\n\n", resource)
	if len(resp.Data.LocatedResources) == 0 {
		sb.WriteString("% No RIR geographic data available\n")
		return []byte(sb.String())
	}
	sb.WriteString("Resource                    | Country Code\n")
	sb.WriteString("----------------------------|-------------\n")
	for _, item := range resp.Data.LocatedResources {
		fmt.Fprintf(&sb, "%-27s | %s\n", item.Resource, item.Location)
	}
	fmt.Fprintf(&sb, "\n%% Total located resources: %d\n", len(resp.Data.LocatedResources))
	return []byte(sb.String())
}

type ipinfoResponse struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"`
	Org      string `json:"org"`
}

type bilibiliIPResponse struct {
	Data struct {
		Addr    string `json:"addr"`
		Country string `json:"country"`
		Province string `json:"province"`
		City    string `json:"city"`
		ISP     string `json:"isp"`
	} `json:"data"`
}

// handleUltimateGeo fans out to five independent geolocation sources in
// parallel via the enrichment coordinator and renders each independently,
// never letting one source's failure suppress the others (spec §4.4, §4.6
// "-ULTIMATEGEO"; sources grounded on geo/formatters.rs's
// format_ultimate_geo_response: RIPEstat, ipinfo.io, ip-api.com, and the two
// China-region sources bilibili/meituan use for CDN-aware geolocation).
func handleUltimateGeo(d *Deps, ctx context.Context, q query.Query) []byte {
	ip := q.Normalized

	sources := []struct {
		name string
		url  string
	}{
		{"RIPEstat", "https://stat.ripe.net/data/geoloc/data.json?resource=" + ip},
		{"ip-api.com", "http://ip-api.com/json/" + ip},
		{"ipinfo.io", "https://ipinfo.io/" + ip + "/json"},
		{"bilibili", "https://api.live.bilibili.com/ip_service/v1/ip_service/get_ip_addr?ip=" + ip},
		{"meituan", "https://apimobile.meituan.com/locate/v2/ip/loc?rgeo=true&ip=" + ip},
	}

	tasks := make([]enrich.Task, len(sources))
	for i, src := range sources {
		src := src
		tasks[i] = enrich.Task{
			ID:      src.name,
			Timeout: 8 * time.Second,
			Run: func(ctx context.Context) ([]byte, error) {
				var raw map[string]any
				if err := d.fetchJSON(ctx, src.url, &raw); err != nil {
					return nil, err
				}
				b, _ := json.Marshal(raw)
				return b, nil
			},
		}
	}

	results := enrich.RunAll(ctx, tasks, d.MaxParallel, 20*time.Second)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% Ultimate Geolocation Query for %s\n%%\n", ip)
	for _, r := range results {
		fmt.Fprintf(&sb, "\n[%s]\n", r.ID)
		if r.Err != nil {
			fmt.Fprintf(&sb, "%% Error: %s\n", r.Err)
			continue
		}
		sb.Write(r.Value)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}
