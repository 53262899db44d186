// Package registries (spec §4.6 CARGO/NPM/PYPI/AUR/DEBIAN/UBUNTU/NIXOS/
// OPENSUSE/AOSC/EPEL/MODRINTH/CURSEFORGE): each tag queries one package
// ecosystem's public API or package page and renders a WHOIS-style record,
// grounded file-by-file on original_source/src/services/packages/*.rs.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"whoisd/internal/query"
	"whoisd/internal/upstream/apiclient"
)

// decodeJSONBody decodes a raw *http.Response body, for the one registry
// (NIXOS) whose auth/body requirements don't fit apiclient.Client's GET-only
// contract and so builds its own request by hand.
func decodeJSONBody(resp *http.Response, dst any) error {
	return json.NewDecoder(resp.Body).Decode(dst)
}

func init() {
	register("CARGO", handleCargo)
	register("NPM", handleNPM)
	register("PYPI", handlePyPI)
	register("AUR", handleAUR)
	register("DEBIAN", handleDebian)
	register("UBUNTU", handleUbuntu)
	register("NIXOS", handleNixOS)
	register("OPENSUSE", handleOpenSUSE)
	register("AOSC", handleAOSC)
	register("EPEL", handleEPEL)
	register("MODRINTH", handleModrinth)
	register("CURSEFORGE", handleCurseForge)
}

const packageUserAgent = "Mozilla/5.0 (compatible; WHOIS-Server/1.0)"

func validPackageName(name string, maxLen int) bool {
	if name == "" || len(name) > maxLen {
		return false
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.' || c == '@' || c == '/') {
			return false
		}
	}
	return true
}

// ---- CARGO (crates.io) ----

type crateResponse struct {
	Crate struct {
		Name              string `json:"name"`
		Description       string `json:"description"`
		Homepage          string `json:"homepage"`
		Documentation     string `json:"documentation"`
		Repository        string `json:"repository"`
		Downloads         uint64 `json:"downloads"`
		RecentDownloads   uint64 `json:"recent_downloads"`
		MaxStableVersion  string `json:"max_stable_version"`
		NewestVersion     string `json:"newest_version"`
		CreatedAt         string `json:"created_at"`
		UpdatedAt         string `json:"updated_at"`
	} `json:"crate"`
	Versions []struct {
		Num      string `json:"num"`
		Yanked   bool   `json:"yanked"`
		License  string `json:"license"`
	} `json:"versions"`
	Keywords []struct {
		Keyword string `json:"keyword"`
	} `json:"keywords"`
	Categories []struct {
		Category string `json:"category"`
	} `json:"categories"`
}

func handleCargo(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 64) || strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return []byte("Invalid Cargo crate name format\n")
	}

	var resp crateResponse
	if err := d.fetchJSON(ctx, "https://crates.io/api/v1/crates/"+url.PathEscape(name), &resp); err != nil {
		return []byte(cargoNotFound(name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Rust Crate Information: %s\n%s\n", name, strings.Repeat("=", 60))
	c := resp.Crate
	fmt.Fprintf(&sb, "crate-name: %s\nversion: %s\n", c.Name, c.NewestVersion)
	if c.MaxStableVersion != "" && c.MaxStableVersion != c.NewestVersion {
		fmt.Fprintf(&sb, "stable-version: %s\n", c.MaxStableVersion)
	}
	if c.Description != "" {
		fmt.Fprintf(&sb, "description: %s\n", c.Description)
	}
	if len(resp.Versions) > 0 && resp.Versions[0].License != "" {
		fmt.Fprintf(&sb, "license: %s\n", resp.Versions[0].License)
	}
	if c.Homepage != "" {
		fmt.Fprintf(&sb, "homepage: %s\n", c.Homepage)
	}
	if c.Repository != "" {
		fmt.Fprintf(&sb, "repository: %s\n", c.Repository)
	}
	if c.Documentation != "" {
		fmt.Fprintf(&sb, "documentation: %s\n", c.Documentation)
	}
	fmt.Fprintf(&sb, "total-downloads: %s\n", formatBigCount(c.Downloads))
	if c.RecentDownloads > 0 {
		fmt.Fprintf(&sb, "recent-downloads: %s\n", formatBigCount(c.RecentDownloads))
	}
	if len(resp.Categories) > 0 {
		cats := make([]string, 0, 5)
		for i, cat := range resp.Categories {
			if i >= 5 {
				break
			}
			cats = append(cats, cat.Category)
		}
		fmt.Fprintf(&sb, "categories: %s\n", strings.Join(cats, ", "))
	}
	if len(resp.Keywords) > 0 {
		kws := make([]string, 0, 10)
		for i, k := range resp.Keywords {
			if i >= 10 {
				break
			}
			kws = append(kws, k.Keyword)
		}
		fmt.Fprintf(&sb, "keywords: %s\n", strings.Join(kws, ", "))
	}
	if len(resp.Versions) > 1 {
		fmt.Fprintf(&sb, "total-versions: %d\n", len(resp.Versions))
		vs := make([]string, 0, 5)
		for i, v := range resp.Versions {
			if i >= 5 {
				break
			}
			if v.Yanked {
				vs = append(vs, v.Num+" (yanked)")
			} else {
				vs = append(vs, v.Num)
			}
		}
		fmt.Fprintf(&sb, "recent-versions: %s\n", strings.Join(vs, ", "))
	}
	fmt.Fprintf(&sb, "created: %s\nupdated: %s\n", formatRFC3339(c.CreatedAt), formatRFC3339(c.UpdatedAt))
	fmt.Fprintf(&sb, "crates-io-url: https://crates.io/crates/%s\n", url.PathEscape(c.Name))
	fmt.Fprintf(&sb, "docs-rs-url: https://docs.rs/%s\n", url.PathEscape(c.Name))
	sb.WriteString("registry: crates.io (Rust Package Registry)\nsource: crates.io API\n")
	return []byte(sb.String())
}

func cargoNotFound(name string) string {
	return fmt.Sprintf("Rust Crate Not Found: %s\nNo crate with this name was found in crates.io.\n\nYou can search manually at: https://crates.io/search?q=%s\n",
		name, url.QueryEscape(name))
}

func formatBigCount(n uint64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatUint(n, 10)
	}
}

func formatRFC3339(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// ---- NPM ----

type npmAuthor struct {
	Name string `json:"name"`
}

type npmPackument struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Homepage    string               `json:"homepage"`
	Author      *npmAuthor           `json:"author"`
	Maintainers []npmAuthor          `json:"maintainers"`
	License     string               `json:"license"`
	Keywords    []string             `json:"keywords"`
	DistTags    map[string]string    `json:"dist-tags"`
	Versions    map[string]npmVersion `json:"versions"`
}

type npmVersion struct {
	Dependencies map[string]string `json:"dependencies"`
	Dist         struct {
		UnpackedSize uint64 `json:"unpackedSize"`
		FileCount    uint64 `json:"fileCount"`
	} `json:"dist"`
}

func handleNPM(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if name == "" || len(name) > 214 || strings.Contains(name, " ") || strings.ToLower(name) != name {
		return []byte("Invalid NPM package name format\n")
	}

	var pkg npmPackument
	if err := d.fetchJSON(ctx, "https://registry.npmjs.org/"+url.PathEscape(name), &pkg); err != nil {
		return []byte(fmt.Sprintf("NPM Package Not Found: %s\nNo package with this name was found in the npm registry.\n\nYou can search manually at: https://www.npmjs.com/search?q=%s\n",
			name, url.QueryEscape(name)))
	}

	latest := pkg.DistTags["latest"]
	var sb strings.Builder
	fmt.Fprintf(&sb, "NPM Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "package-name: %s\nversion: %s\n", pkg.Name, latest)
	if pkg.Description != "" {
		fmt.Fprintf(&sb, "description: %s\n", pkg.Description)
	}
	if pkg.Author != nil && pkg.Author.Name != "" {
		fmt.Fprintf(&sb, "author: %s\n", pkg.Author.Name)
	}
	if pkg.License != "" {
		fmt.Fprintf(&sb, "license: %s\n", pkg.License)
	}
	if pkg.Homepage != "" {
		fmt.Fprintf(&sb, "homepage: %s\n", pkg.Homepage)
	}
	if len(pkg.Keywords) > 0 {
		fmt.Fprintf(&sb, "keywords: %s\n", strings.Join(pkg.Keywords, ", "))
	}
	if v, ok := pkg.Versions[latest]; ok {
		if len(v.Dependencies) > 0 {
			deps := make([]string, 0, len(v.Dependencies))
			for depName := range v.Dependencies {
				deps = append(deps, depName)
			}
			sort.Strings(deps)
			fmt.Fprintf(&sb, "dependencies: %s\n", strings.Join(deps, ", "))
		}
		if v.Dist.UnpackedSize > 0 {
			fmt.Fprintf(&sb, "unpacked-size: %.2f MB\n", float64(v.Dist.UnpackedSize)/1024/1024)
		}
		if v.Dist.FileCount > 0 {
			fmt.Fprintf(&sb, "file-count: %d\n", v.Dist.FileCount)
		}
	}
	if len(pkg.Maintainers) > 0 {
		names := make([]string, 0, len(pkg.Maintainers))
		for _, m := range pkg.Maintainers {
			names = append(names, m.Name)
		}
		fmt.Fprintf(&sb, "maintainers: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "npm-url: https://www.npmjs.com/package/%s\n", name)
	sb.WriteString("registry: npmjs.org\nsource: npm Registry API\n")
	return []byte(sb.String())
}

// ---- PYPI ----

type pypiResponse struct {
	Info struct {
		Name            string `json:"name"`
		Version         string `json:"version"`
		Summary         string `json:"summary"`
		HomePage        string `json:"home_page"`
		Author          string `json:"author"`
		AuthorEmail     string `json:"author_email"`
		Maintainer      string `json:"maintainer"`
		MaintainerEmail string `json:"maintainer_email"`
		License         string `json:"license"`
		Keywords        string `json:"keywords"`
		RequiresDist    []string `json:"requires_dist"`
		RequiresPython  string `json:"requires_python"`
		Classifiers     []string `json:"classifiers"`
		ProjectURL      string `json:"project_url"`
	} `json:"info"`
}

func handlePyPI(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 214) {
		return []byte("Invalid PyPI package name format\n")
	}

	var resp pypiResponse
	if err := d.fetchJSON(ctx, "https://pypi.org/pypi/"+url.PathEscape(name)+"/json", &resp); err != nil {
		return []byte(fmt.Sprintf("PyPI Package Not Found: %s\nNo package with this name was found on PyPI.\n\nYou can search manually at: https://pypi.org/search/?q=%s\n",
			name, url.QueryEscape(name)))
	}

	info := resp.Info
	var sb strings.Builder
	fmt.Fprintf(&sb, "Python Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "package-name: %s\nversion: %s\n", info.Name, info.Version)
	if info.Summary != "" {
		fmt.Fprintf(&sb, "summary: %s\n", info.Summary)
	}
	switch {
	case info.Author != "" && info.AuthorEmail != "":
		fmt.Fprintf(&sb, "author: %s <%s>\n", info.Author, info.AuthorEmail)
	case info.Author != "":
		fmt.Fprintf(&sb, "author: %s\n", info.Author)
	case info.AuthorEmail != "":
		fmt.Fprintf(&sb, "author: %s\n", info.AuthorEmail)
	}
	if info.Maintainer != "" {
		fmt.Fprintf(&sb, "maintainer: %s\n", info.Maintainer)
	}
	if info.License != "" {
		fmt.Fprintf(&sb, "license: %s\n", info.License)
	}
	if info.HomePage != "" {
		fmt.Fprintf(&sb, "homepage: %s\n", info.HomePage)
	}
	if info.RequiresPython != "" {
		fmt.Fprintf(&sb, "requires-python: %s\n", info.RequiresPython)
	}
	if info.Keywords != "" {
		fmt.Fprintf(&sb, "keywords: %s\n", info.Keywords)
	}
	if len(info.RequiresDist) > 0 {
		n := len(info.RequiresDist)
		if n > 10 {
			n = 10
		}
		fmt.Fprintf(&sb, "dependencies: %s\n", strings.Join(info.RequiresDist[:n], ", "))
	}
	fmt.Fprintf(&sb, "pypi-url: https://pypi.org/project/%s/\n", url.PathEscape(name))
	sb.WriteString("registry: PyPI (Python Package Index)\nsource: PyPI JSON API\n")
	return []byte(sb.String())
}

// ---- AUR ----

type aurResponse struct {
	ResultCount int          `json:"resultcount"`
	Results     []aurPackage `json:"results"`
}

type aurPackage struct {
	Name        string   `json:"Name"`
	PackageBase string   `json:"PackageBase"`
	Version     string   `json:"Version"`
	Description string   `json:"Description"`
	URL         string   `json:"URL"`
	NumVotes    uint32   `json:"NumVotes"`
	Popularity  float64  `json:"Popularity"`
	Maintainer  string   `json:"Maintainer"`
	Depends     []string `json:"Depends"`
	MakeDepends []string `json:"MakeDepends"`
	License     []string `json:"License"`
}

func handleAUR(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 64) {
		return []byte("Invalid AUR package name format\n")
	}

	u := "https://aur.archlinux.org/rpc/v5/info?arg[]=" + url.QueryEscape(name)
	var resp aurResponse
	if err := d.fetchJSON(ctx, u, &resp); err != nil || resp.ResultCount == 0 || len(resp.Results) == 0 {
		return []byte(fmt.Sprintf("AUR Package Not Found: %s\nNo package with this name was found in the AUR.\n\n"+
			"%% Try searching on: https://aur.archlinux.org/packages/?K=%s\n", name, url.QueryEscape(name)))
	}

	p := resp.Results[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "AUR Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "package: %s\npackage-base: %s\nversion: %s\n", p.Name, p.PackageBase, p.Version)
	if p.Description != "" {
		fmt.Fprintf(&sb, "description: %s\n", p.Description)
	}
	if p.URL != "" {
		fmt.Fprintf(&sb, "upstream-url: %s\n", p.URL)
	}
	fmt.Fprintf(&sb, "aur-url: https://aur.archlinux.org/packages/%s\n", url.PathEscape(p.Name))
	fmt.Fprintf(&sb, "votes: %d\npopularity: %.6f\n", p.NumVotes, p.Popularity)
	if p.Maintainer != "" {
		fmt.Fprintf(&sb, "maintainer: %s\n", p.Maintainer)
	}
	if len(p.Depends) > 0 {
		fmt.Fprintf(&sb, "depends: %s\n", strings.Join(p.Depends, ", "))
	}
	if len(p.MakeDepends) > 0 {
		fmt.Fprintf(&sb, "makedepends: %s\n", strings.Join(p.MakeDepends, ", "))
	}
	if len(p.License) > 0 {
		fmt.Fprintf(&sb, "license: %s\n", strings.Join(p.License, ", "))
	}
	fmt.Fprintf(&sb, "aur-git-clone: https://aur.archlinux.org/%s.git\n", url.PathEscape(p.Name))
	return []byte(sb.String())
}

// ---- DEBIAN ----
//
// DEBIAN has no dedicated grounding file in original_source (help.rs only
// describes it); queries sources.debian.org's real public JSON API,
// following the same "dedicated registry endpoint" pattern as the
// grounded package handlers above.

type debianSourceResponse struct {
	Package string `json:"package"`
	Versions []struct {
		Version string `json:"version"`
		Area    string `json:"area"`
	} `json:"versions"`
	Error string `json:"error"`
}

func handleDebian(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 100) {
		return []byte("Invalid Debian source package name format\n")
	}

	var resp debianSourceResponse
	if err := d.fetchJSON(ctx, "https://sources.debian.org/api/src/"+url.PathEscape(name)+"/", &resp); err != nil || resp.Error != "" {
		return []byte(fmt.Sprintf("Debian Package Not Found: %s\nNo source package with this name was found.\n\n"+
			"You can search manually at: https://packages.debian.org/search?keywords=%s\n", name, url.QueryEscape(name)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Debian Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "package: %s\n", resp.Package)
	for i, v := range resp.Versions {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "version: %s (%s)\n", v.Version, v.Area)
	}
	fmt.Fprintf(&sb, "packages-url: https://packages.debian.org/source/sid/%s\n", url.PathEscape(name))
	fmt.Fprintf(&sb, "sources-url: https://sources.debian.org/src/%s/\n", url.PathEscape(name))
	sb.WriteString("distribution: Debian\nsource: sources.debian.org API\n")
	return []byte(sb.String())
}

// ---- UBUNTU ----
//
// UBUNTU likewise has no dedicated grounding file; queries Launchpad's
// real public REST API for published source packages, the same service
// Ubuntu's own tooling (e.g. rmadison) uses.

type ubuntuLaunchpadResponse struct {
	Entries []struct {
		SourcePackageName    string `json:"source_package_name"`
		SourcePackageVersion string `json:"source_package_version"`
		ComponentName        string `json:"component_name"`
		Status               string `json:"status"`
		DistroSeriesLink     string `json:"distro_series_link"`
	} `json:"entries"`
}

func handleUbuntu(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 100) {
		return []byte("Invalid Ubuntu source package name format\n")
	}

	u := "https://api.launchpad.net/1.0/ubuntu/+archive/primary?ws.op=getPublishedSources&exact_match=true&status=Published&source_name=" + url.QueryEscape(name)
	var resp ubuntuLaunchpadResponse
	if err := d.fetchJSON(ctx, u, &resp); err != nil || len(resp.Entries) == 0 {
		return []byte(fmt.Sprintf("Ubuntu Package Not Found: %s\nNo published source package with this name was found.\n\n"+
			"You can search manually at: https://packages.ubuntu.com/search?keywords=%s\n", name, url.QueryEscape(name)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ubuntu Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "package: %s\n", resp.Entries[0].SourcePackageName)
	for i, e := range resp.Entries {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "version: %s (%s, %s)\n", e.SourcePackageVersion, e.ComponentName, e.Status)
	}
	fmt.Fprintf(&sb, "packages-url: https://packages.ubuntu.com/search?keywords=%s\n", url.QueryEscape(name))
	sb.WriteString("distribution: Ubuntu\nsource: Launchpad API\n")
	return []byte(sb.String())
}

// ---- NIXOS ----
//
// Queries the real Elasticsearch-backed search.nixos.org package index,
// the service backing the NixOS package search website (grounded on
// nixos.rs's NIXOS_SEARCH_API endpoint; the original falls back to
// fabricated example packages when the JS-rendered HTML page can't be
// scraped, which we avoid — see DESIGN.md).

type nixosSearchRequest struct {
	Query struct {
		Bool struct {
			Must []map[string]any `json:"must"`
		} `json:"bool"`
	} `json:"query"`
	Size int `json:"size"`
}

type nixosSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				PackagePName        string   `json:"package_pname"`
				PackageAttrName     string   `json:"package_attr_name"`
				PackagePVersion     string   `json:"package_pversion"`
				PackageDescription  string   `json:"package_description"`
				PackageHomepage     []string `json:"package_homepage"`
				PackageLicenseSet   []struct {
					FullName string `json:"fullName"`
				} `json:"package_license_set"`
				PackagePlatforms []string `json:"package_platforms"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func handleNixOS(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if name == "" || len(name) > 200 {
		return []byte("Invalid NixOS package query\n")
	}

	const nixosHost = "search.nixos.org"
	if d.Limiter != nil {
		if ok, _, err := d.Limiter.Acquire(ctx, nixosHost); err == nil && !ok {
			return []byte(nixosNotFound(name))
		}
	}

	reqBody := fmt.Sprintf(`{"query":{"bool":{"must":[{"multi_match":{"query":%q,"fields":["package_attr_name","package_pname"]}}]}},"size":5}`, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://"+nixosHost+"/backend/latest-42-nixos-unstable/_search", strings.NewReader(reqBody))
	if err != nil {
		return []byte(nixosNotFound(name))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("aWVSALXpZv", "X8gPHnzL52wFEekuxsfQ9cSh")
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return []byte(nixosNotFound(name))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return []byte(nixosNotFound(name))
	}

	var result nixosSearchResponse
	if err := decodeJSONBody(resp, &result); err != nil || len(result.Hits.Hits) == 0 {
		return []byte(nixosNotFound(name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "NixOS Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	for i, hit := range result.Hits.Hits {
		if i >= 5 {
			break
		}
		p := hit.Source
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "package-name: %s\nattribute-name: %s\nversion: %s\n", p.PackagePName, p.PackageAttrName, p.PackagePVersion)
		if p.PackageDescription != "" {
			fmt.Fprintf(&sb, "description: %s\n", p.PackageDescription)
		}
		if len(p.PackageLicenseSet) > 0 {
			names := make([]string, 0, len(p.PackageLicenseSet))
			for _, l := range p.PackageLicenseSet {
				names = append(names, l.FullName)
			}
			fmt.Fprintf(&sb, "license: %s\n", strings.Join(names, ", "))
		}
		if len(p.PackageHomepage) > 0 {
			fmt.Fprintf(&sb, "homepage: %s\n", p.PackageHomepage[0])
		}
		fmt.Fprintf(&sb, "nixos-search-url: https://search.nixos.org/packages?channel=unstable&query=%s\n", url.QueryEscape(p.PackageAttrName))
	}
	return []byte(sb.String())
}

func nixosNotFound(name string) string {
	return fmt.Sprintf("NixOS Package Not Found: %s\n\nYou can search manually at: https://search.nixos.org/packages?query=%s\n", name, url.QueryEscape(name))
}

// ---- OPENSUSE ----

type opensuseSearchResponse struct {
	Package []struct {
		Name       string `json:"name"`
		Summary    string `json:"summary"`
		Version    string `json:"version"`
		Release    string `json:"release"`
		Arch       string `json:"arch"`
		Project    string `json:"project"`
		Repository string `json:"repository"`
	} `json:"package"`
}

func handleOpenSUSE(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 100) {
		return []byte("Invalid openSUSE package name format\n")
	}

	u := "https://api.opensuse.org/search/published/binary/id?match=%40name='" + url.QueryEscape(name) + "'"
	var resp opensuseSearchResponse
	if err := d.fetchJSON(ctx, u, &resp); err != nil || len(resp.Package) == 0 {
		return []byte(fmt.Sprintf("openSUSE Package Not Found: %s\n\nYou can search manually at: https://software.opensuse.org/search?q=%s\n",
			name, url.QueryEscape(name)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "openSUSE Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	for i, p := range resp.Package {
		if i >= 3 {
			break
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "package-name: %s\n", p.Name)
		if p.Version != "" {
			fmt.Fprintf(&sb, "version: %s\n", p.Version)
		}
		if p.Release != "" {
			fmt.Fprintf(&sb, "release: %s\n", p.Release)
		}
		if p.Arch != "" {
			fmt.Fprintf(&sb, "architecture: %s\n", p.Arch)
		}
		if p.Project != "" {
			fmt.Fprintf(&sb, "project: %s\n", p.Project)
		}
		if p.Repository != "" {
			fmt.Fprintf(&sb, "repository: %s\n", p.Repository)
		}
		if p.Summary != "" {
			fmt.Fprintf(&sb, "summary: %s\n", p.Summary)
		}
	}
	fmt.Fprintf(&sb, "package-url: https://software.opensuse.org/package/%s\n", url.PathEscape(name))
	sb.WriteString("distribution: openSUSE\nsource: openSUSE Build Service API\n")
	return []byte(sb.String())
}

// ---- AOSC ----

// handleAOSC scrapes the package detail page's DOM via goquery rather than
// pattern-matching raw HTML, since packages.aosc.io has no JSON API
// (grounded on services/aosc.rs's page-scrape approach).
func handleAOSC(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 100) {
		return []byte("Invalid AOSC package name format\n")
	}

	pageURL := "https://packages.aosc.io/packages/" + url.PathEscape(name)
	html, err := d.fetchText(ctx, pageURL)
	if err != nil {
		return []byte(fmt.Sprintf("AOSC Package Not Found: %s\n\nYou can search manually at: https://packages.aosc.io/search?q=%s\n",
			name, url.QueryEscape(name)))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []byte(fmt.Sprintf("AOSC Package Not Found: %s\n\nYou can search manually at: https://packages.aosc.io/search?q=%s\n",
			name, url.QueryEscape(name)))
	}

	version := strings.TrimSpace(doc.Find("span.pkg-version").First().Text())
	if version == "" {
		return []byte(fmt.Sprintf("AOSC Package Not Found: %s\n\nYou can search manually at: https://packages.aosc.io/search?q=%s\n",
			name, url.QueryEscape(name)))
	}
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	description = strings.TrimSpace(description)

	var sb strings.Builder
	fmt.Fprintf(&sb, "AOSC OS Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "package-name: %s\nversion: %s\n", name, version)
	if description != "" {
		fmt.Fprintf(&sb, "description: %s\n", description)
	}
	fmt.Fprintf(&sb, "aosc-url: %s\n", pageURL)
	sb.WriteString("distribution: AOSC OS\nsource: packages.aosc.io\n")
	return []byte(sb.String())
}

// ---- EPEL ----
//
// Checks repodata availability across the EPEL 8/9/10 repositories
// (grounded on epel.rs, which probes the same repomd.xml files rather
// than fetching per-package metadata).

func handleEPEL(d *Deps, ctx context.Context, q query.Query) []byte {
	name := strings.TrimSpace(q.Normalized)
	if !validPackageName(name, 100) {
		return []byte("Invalid EPEL package name format\n")
	}

	repos := []struct{ label, base string }{
		{"EPEL-10", "https://dl.fedoraproject.org/pub/epel/10/Everything/x86_64"},
		{"EPEL-9", "https://dl.fedoraproject.org/pub/epel/9/Everything/x86_64"},
		{"EPEL-8", "https://dl.fedoraproject.org/pub/epel/8/Everything/x86_64"},
	}

	client := &http.Client{Timeout: 15 * time.Second}
	for _, repo := range repos {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, repo.base+"/repodata/repomd.xml", nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", "whois-server/1.0 (EPEL package lookup)")
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "EPEL Package Information: %s\n%s\n", name, strings.Repeat("=", 60))
		fmt.Fprintf(&sb, "package: %s\nrepository: %s\narchitecture: x86_64\n", name, repo.label)
		fmt.Fprintf(&sb, "summary: Package available in %s\n", repo.label)
		fmt.Fprintf(&sb, "description: EPEL package from %s repository - Extra Packages for Enterprise Linux\n", repo.label)
		fmt.Fprintf(&sb, "packages-url: %s/Packages\n", repo.base)
		sb.WriteString("\n% EPEL Project: https://docs.fedoraproject.org/en-US/epel/\n% Package Database: https://packages.fedoraproject.org/\n")
		return []byte(sb.String())
	}

	return []byte(fmt.Sprintf("EPEL Package Not Found: %s\nNone of the EPEL 8/9/10 repositories were reachable.\n\n"+
		"You can search manually at: https://packages.fedoraproject.org/\n", name))
}

// ---- MODRINTH ----

type modrinthProject struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	ClientSide  string   `json:"client_side"`
	ServerSide  string   `json:"server_side"`
	ProjectType string   `json:"project_type"`
	Downloads   uint64   `json:"downloads"`
	Followers   uint32   `json:"followers"`
	License     struct {
		ID string `json:"id"`
	} `json:"license"`
	GameVersions []string `json:"game_versions"`
	SourceURL    string   `json:"source_url"`
	IssuesURL    string   `json:"issues_url"`
	WikiURL      string   `json:"wiki_url"`
}

func handleModrinth(d *Deps, ctx context.Context, q query.Query) []byte {
	slug := strings.TrimSpace(q.Normalized)
	if !validPackageName(slug, 64) {
		return []byte("Invalid Modrinth project identifier\n")
	}

	var project modrinthProject
	if err := d.fetchJSON(ctx, "https://api.modrinth.com/v2/project/"+url.PathEscape(slug), &project); err != nil {
		return []byte(fmt.Sprintf("Modrinth Project Not Found: %s\n\nYou can search manually at: https://modrinth.com/search?q=%s\n",
			slug, url.QueryEscape(slug)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Modrinth Project Information: %s\n%s\n", slug, strings.Repeat("=", 60))
	fmt.Fprintf(&sb, "project-slug: %s\nproject-name: %s\nproject-type: %s\n", project.Slug, project.Title, project.ProjectType)
	fmt.Fprintf(&sb, "description: %s\n", project.Description)
	fmt.Fprintf(&sb, "downloads: %d\nfollowers: %d\n", project.Downloads, project.Followers)
	if len(project.Categories) > 0 {
		fmt.Fprintf(&sb, "categories: %s\n", strings.Join(project.Categories, ", "))
	}
	fmt.Fprintf(&sb, "client-side: %s\nserver-side: %s\n", project.ClientSide, project.ServerSide)
	if project.License.ID != "" {
		fmt.Fprintf(&sb, "license: %s\n", project.License.ID)
	}
	if len(project.GameVersions) > 0 {
		n := len(project.GameVersions)
		if n > 5 {
			n = 5
		}
		fmt.Fprintf(&sb, "minecraft-versions: %s\n", strings.Join(project.GameVersions[len(project.GameVersions)-n:], ", "))
	}
	if project.SourceURL != "" {
		fmt.Fprintf(&sb, "source-code: %s\n", project.SourceURL)
	}
	if project.IssuesURL != "" {
		fmt.Fprintf(&sb, "issue-tracker: %s\n", project.IssuesURL)
	}
	if project.WikiURL != "" {
		fmt.Fprintf(&sb, "wiki: %s\n", project.WikiURL)
	}
	fmt.Fprintf(&sb, "modrinth-url: https://modrinth.com/%s/%s\n", project.ProjectType, project.Slug)
	return []byte(sb.String())
}

// ---- CURSEFORGE ----

type curseForgeResponse struct {
	Data curseForgeProject `json:"data"`
}

type curseForgeSearchResponse struct {
	Data []curseForgeProject `json:"data"`
}

type curseForgeProject struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Summary string `json:"summary"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Links struct {
		WebsiteURL string `json:"websiteUrl"`
		SourceURL  string `json:"sourceUrl"`
		IssuesURL  string `json:"issuesUrl"`
		WikiURL    string `json:"wikiUrl"`
	} `json:"links"`
}

// handleCurseForge requires a CurseForge API key (grounded on
// curseforge.rs's query_curseforge); without one it explains how to
// configure it rather than failing silently.
func handleCurseForge(d *Deps, ctx context.Context, q query.Query) []byte {
	if d.CurseForgeAPIKey == "" {
		return []byte("% CurseForge API key not configured\n% Set the CurseForgeAPIKey server option to enable CurseForge queries\n% Get your API key from: https://console.curseforge.com/\n")
	}

	term := strings.TrimSpace(q.Normalized)
	if term == "" {
		return []byte("Invalid CurseForge query\n")
	}

	if projectID, err := strconv.ParseUint(term, 10, 64); err == nil {
		var resp curseForgeResponse
		if err := d.curseForgeFetch(ctx, fmt.Sprintf("https://api.curseforge.com/v1/mods/%d", projectID), &resp); err != nil {
			return []byte(fmt.Sprintf("%% CurseForge API error: %s\n%% Project ID %d not found or API quota exceeded\n", err, projectID))
		}
		return []byte(renderCurseForgeProject(resp.Data))
	}

	u := "https://api.curseforge.com/v1/mods/search?gameId=432&searchFilter=" + url.QueryEscape(term) + "&pageSize=5"
	var search curseForgeSearchResponse
	if err := d.curseForgeFetch(ctx, u, &search); err != nil || len(search.Data) == 0 {
		return []byte(fmt.Sprintf("CurseForge Project Not Found: %s\n", term))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "CurseForge Search Results for: %s\n%s\n", term, strings.Repeat("=", 60))
	for _, p := range search.Data {
		sb.WriteString(renderCurseForgeProject(p))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// curseForgeClient authenticates via the x-api-key header apiclient.Client
// supports (AuthAPIKeyHeader), reading WHOISD_CURSEFORGE_API_KEY itself --
// the same env var config.Parse populates Deps.CurseForgeAPIKey from.
var curseForgeClient = func() *apiclient.Client {
	c := apiclient.New(15 * time.Second)
	c.Name = "curseforge"
	c.Auth = apiclient.AuthAPIKeyHeader
	c.APIKeyEnv = "WHOISD_CURSEFORGE_API_KEY"
	c.KeyHeader = "x-api-key"
	return c
}()

func (d *Deps) curseForgeFetch(ctx context.Context, u string, dst any) error {
	return d.fetchJSONVia(ctx, curseForgeClient, u, dst)
}

func renderCurseForgeProject(p curseForgeProject) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "project-id: %d\nproject-name: %s\nproject-slug: %s\nsummary: %s\n", p.ID, p.Name, p.Slug, p.Summary)
	if len(p.Authors) > 0 {
		names := make([]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			names = append(names, a.Name)
		}
		fmt.Fprintf(&sb, "authors: %s\n", strings.Join(names, ", "))
	}
	if len(p.Categories) > 0 {
		names := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&sb, "categories: %s\n", strings.Join(names, ", "))
	}
	if p.Links.WebsiteURL != "" {
		fmt.Fprintf(&sb, "website: %s\n", p.Links.WebsiteURL)
	}
	if p.Links.SourceURL != "" {
		fmt.Fprintf(&sb, "source-code: %s\n", p.Links.SourceURL)
	}
	if p.Links.IssuesURL != "" {
		fmt.Fprintf(&sb, "issue-tracker: %s\n", p.Links.IssuesURL)
	}
	if p.Links.WikiURL != "" {
		fmt.Fprintf(&sb, "wiki: %s\n", p.Links.WikiURL)
	}
	fmt.Fprintf(&sb, "curseforge-url: https://www.curseforge.com/minecraft/mc-mods/%s\n", p.Slug)
	return sb.String()
}
