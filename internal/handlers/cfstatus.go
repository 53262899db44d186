package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"whoisd/internal/query"
)

func init() {
	register("CFSTATUS", handleCFStatus)
}

const cloudflareStatusAPI = "https://www.cloudflarestatus.com/api/v2"

type cfPageInfo struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	UpdatedAt string `json:"updated_at"`
}

type cfStatusResponse struct {
	Page   cfPageInfo `json:"page"`
	Status struct {
		Description string `json:"description"`
		Indicator   string `json:"indicator"`
	} `json:"status"`
}

type cfComponent struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	Description *string `json:"description"`
	Group       bool    `json:"group"`
	Position    int     `json:"position"`
	UpdatedAt   string  `json:"updated_at"`
}

type cfComponentsResponse struct {
	Page       cfPageInfo    `json:"page"`
	Components []cfComponent `json:"components"`
}

type cfIncidentUpdate struct {
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	Body      string `json:"body"`
}

type cfIncident struct {
	Name             string             `json:"name"`
	Status           string             `json:"status"`
	Impact           string             `json:"impact"`
	CreatedAt        string             `json:"created_at"`
	UpdatedAt        string             `json:"updated_at"`
	Shortlink        string             `json:"shortlink"`
	IncidentUpdates  []cfIncidentUpdate `json:"incident_updates"`
}

type cfIncidentsResponse struct {
	Page      cfPageInfo   `json:"page"`
	Incidents []cfIncident `json:"incidents"`
}

// handleCFStatus routes "-CFSTATUS", "components-CFSTATUS", and
// "incidents-CFSTATUS" to the matching Cloudflare Status API endpoint,
// defaulting to the overall status (spec §4.6 "-CFSTATUS").
func handleCFStatus(d *Deps, ctx context.Context, q query.Query) []byte {
	switch strings.ToUpper(strings.TrimSpace(q.Normalized)) {
	case "COMPONENTS":
		return cfComponents(d, ctx)
	case "INCIDENTS":
		return cfIncidents(d, ctx)
	default:
		return cfStatus(d, ctx)
	}
}

func cfStatus(d *Deps, ctx context.Context) []byte {
	var resp cfStatusResponse
	if err := d.fetchJSON(ctx, cloudflareStatusAPI+"/status.json", &resp); err != nil {
		return []byte(fmt.Sprintf("%% Error: Cloudflare Status API request failed: %s\n", err))
	}

	symbol := indicatorSymbol(resp.Status.Indicator)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% Cloudflare Status - %s\n", resp.Page.Name)
	fmt.Fprintf(&sb, "%% Last Updated: %s\n", resp.Page.UpdatedAt)
	fmt.Fprintf(&sb, "%% URL: %s\n", resp.Page.URL)
	sb.WriteString("%\n")
	fmt.Fprintf(&sb, "%% Status: %s %s\n", symbol, resp.Status.Description)
	fmt.Fprintf(&sb, "%% Indicator: %s\n", resp.Status.Indicator)
	sb.WriteString("%\n")
	sb.WriteString("% Query 'components-cfstatus' for component details\n")
	sb.WriteString("% Query 'incidents-cfstatus' for unresolved incidents\n")
	return []byte(sb.String())
}

func cfComponents(d *Deps, ctx context.Context) []byte {
	var resp cfComponentsResponse
	if err := d.fetchJSON(ctx, cloudflareStatusAPI+"/components.json", &resp); err != nil {
		return []byte(fmt.Sprintf("%% Error: Cloudflare Status API request failed: %s\n", err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% Cloudflare Components - %s\n", resp.Page.Name)
	fmt.Fprintf(&sb, "%% Last Updated: %s\n", resp.Page.UpdatedAt)
	sb.WriteString("%\n")

	if len(resp.Components) == 0 {
		sb.WriteString("% No components found\n")
		return []byte(sb.String())
	}

	components := append([]cfComponent(nil), resp.Components...)
	sort.Slice(components, func(i, j int) bool { return components[i].Position < components[j].Position })

	fmt.Fprintf(&sb, "%% Total Components: %d\n", len(components))
	sb.WriteString("%\n")

	for _, c := range components {
		symbol := componentSymbol(c.Status)
		fmt.Fprintf(&sb, "%% %s %s (%s)\n", symbol, c.Name, c.Status)
		if c.Description != nil && *c.Description != "" {
			fmt.Fprintf(&sb, "%%   Description: %s\n", *c.Description)
		}
		if c.Group {
			sb.WriteString("%   Type: Component Group\n")
		}
		fmt.Fprintf(&sb, "%%   ID: %s\n", c.ID)
		fmt.Fprintf(&sb, "%%   Updated: %s\n", c.UpdatedAt)
		sb.WriteString("%\n")
	}
	return []byte(sb.String())
}

func cfIncidents(d *Deps, ctx context.Context) []byte {
	var resp cfIncidentsResponse
	if err := d.fetchJSON(ctx, cloudflareStatusAPI+"/incidents/unresolved.json", &resp); err != nil {
		return []byte(fmt.Sprintf("%% Error: Cloudflare Status API request failed: %s\n", err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%% Cloudflare Incidents - %s\n", resp.Page.Name)
	fmt.Fprintf(&sb, "%% Last Updated: %s\n", resp.Page.UpdatedAt)
	sb.WriteString("%\n")

	if len(resp.Incidents) == 0 {
		sb.WriteString("% No unresolved incidents\n% All systems operational\n")
		return []byte(sb.String())
	}

	fmt.Fprintf(&sb, "%% Unresolved Incidents: %d\n", len(resp.Incidents))
	sb.WriteString("%\n")

	for _, inc := range resp.Incidents {
		fmt.Fprintf(&sb, "%% %s %s [%s]\n", impactSymbol(inc.Impact), inc.Name, strings.ToUpper(inc.Impact))
		fmt.Fprintf(&sb, "%%   Status: %s\n", inc.Status)
		fmt.Fprintf(&sb, "%%   Created: %s\n", inc.CreatedAt)
		fmt.Fprintf(&sb, "%%   Updated: %s\n", inc.UpdatedAt)
		fmt.Fprintf(&sb, "%%   Short Link: %s\n", inc.Shortlink)

		if len(inc.IncidentUpdates) > 0 {
			sb.WriteString("%\n%   Latest Updates:\n")
			updates := inc.IncidentUpdates
			if len(updates) > 3 {
				updates = updates[:3]
			}
			for _, u := range updates {
				fmt.Fprintf(&sb, "%%     [%s at %s]\n", u.Status, u.CreatedAt)
				for _, line := range wrapText(u.Body, 70) {
					fmt.Fprintf(&sb, "%%     %s\n", line)
				}
				sb.WriteString("%\n")
			}
		}
		sb.WriteString("%\n")
	}
	return []byte(sb.String())
}

func indicatorSymbol(indicator string) string {
	switch indicator {
	case "none":
		return "✓"
	case "minor", "major":
		return "⚠"
	case "critical":
		return "✗"
	default:
		return "?"
	}
}

func componentSymbol(status string) string {
	switch status {
	case "operational":
		return "✓"
	case "degraded_performance", "partial_outage":
		return "⚠"
	case "major_outage":
		return "✗"
	default:
		return "?"
	}
}

func impactSymbol(impact string) string {
	switch impact {
	case "none":
		return "○"
	case "minor", "major", "critical":
		return "●"
	default:
		return "?"
	}
}

// wrapText breaks text into lines of at most maxWidth characters, splitting
// on whitespace (grounded on cfstatus.rs's wrap_text).
func wrapText(text string, maxWidth int) []string {
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > maxWidth && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
