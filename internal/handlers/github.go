package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"whoisd/internal/query"
)

func init() {
	register("GITHUB", handleGitHub)
}

const githubAPIURL = "https://api.github.com"

type githubLicense struct {
	Name   string `json:"name"`
	SpdxID string `json:"spdx_id"`
}

type githubOwner struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

type githubUser struct {
	Login           string `json:"login"`
	ID              uint64 `json:"id"`
	Type            string `json:"type"`
	SiteAdmin       bool   `json:"site_admin"`
	Name            string `json:"name"`
	Company         string `json:"company"`
	Blog            string `json:"blog"`
	Location        string `json:"location"`
	Email           string `json:"email"`
	Hireable        *bool  `json:"hireable"`
	Bio             string `json:"bio"`
	TwitterUsername string `json:"twitter_username"`
	PublicRepos     int    `json:"public_repos"`
	PublicGists     int    `json:"public_gists"`
	Followers       int    `json:"followers"`
	Following       int    `json:"following"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	HTMLURL         string `json:"html_url"`
	AvatarURL       string `json:"avatar_url"`
}

type githubRepository struct {
	ID              uint64         `json:"id"`
	Name            string         `json:"name"`
	FullName        string         `json:"full_name"`
	HTMLURL         string         `json:"html_url"`
	CloneURL        string         `json:"clone_url"`
	SSHURL          string         `json:"ssh_url"`
	Description     string         `json:"description"`
	Homepage        string         `json:"homepage"`
	Language        string         `json:"language"`
	Private         bool           `json:"private"`
	Fork            bool           `json:"fork"`
	Archived        bool           `json:"archived"`
	Disabled        bool           `json:"disabled"`
	StargazersCount int            `json:"stargazers_count"`
	WatchersCount   int            `json:"watchers_count"`
	ForksCount      int            `json:"forks_count"`
	OpenIssuesCount int            `json:"open_issues_count"`
	Size            int            `json:"size"`
	DefaultBranch   string         `json:"default_branch"`
	Topics          []string       `json:"topics"`
	HasIssues       bool           `json:"has_issues"`
	HasProjects     bool           `json:"has_projects"`
	HasWiki         bool           `json:"has_wiki"`
	HasPages        bool           `json:"has_pages"`
	HasDownloads    bool           `json:"has_downloads"`
	License         *githubLicense `json:"license"`
	Owner           githubOwner    `json:"owner"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	PushedAt        string         `json:"pushed_at"`
}

// isValidGitHubName mirrors GitHub's username/repo-name constraints
// (grounded on github.rs's is_valid_github_name).
func isValidGitHubName(name string) bool {
	if name == "" || len(name) > 39 {
		return false
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") || strings.Contains(name, "--") {
		return false
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

// githubFetch delegates to the shared cached/rate-limited fetchJSON path;
// a 404 and any other upstream failure both render the same "not found"
// text below, so collapsing them into one error return changes nothing
// observable.
func (d *Deps) githubFetch(ctx context.Context, path string, dst any) error {
	return d.fetchJSON(ctx, githubAPIURL+path, dst)
}

// handleGitHub renders GitHub user or "owner/repo" repository information
// (spec §4.6 "-GITHUB", grounded on github.rs's process_github_query).
func handleGitHub(d *Deps, ctx context.Context, q query.Query) []byte {
	query := q.Normalized
	if query == "" {
		return []byte("% GitHub Query Error: query cannot be empty\n")
	}

	if strings.Contains(query, "/") {
		parts := strings.SplitN(query, "/", 2)
		if len(parts) != 2 || strings.Contains(parts[1], "/") {
			return []byte("% GitHub Query Error: invalid repository format. Use: owner/repository\n")
		}
		owner, repo := parts[0], parts[1]
		if !isValidGitHubName(owner) || !isValidGitHubName(repo) {
			return []byte("% GitHub Query Error: invalid GitHub username or repository name format\n")
		}

		var repository githubRepository
		if err := d.githubFetch(ctx, "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(repo), &repository); err != nil {
			return []byte(githubNotFound(query, "repository"))
		}
		return []byte(renderGitHubRepository(repository, query))
	}

	if !isValidGitHubName(query) {
		return []byte("% GitHub Query Error: invalid GitHub username format\n")
	}

	var user githubUser
	if err := d.githubFetch(ctx, "/users/"+url.PathEscape(query), &user); err != nil {
		return []byte(githubNotFound(query, "user"))
	}
	return []byte(renderGitHubUser(user, query))
}

func renderGitHubUser(user githubUser, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GitHub User Information: %s\n", query)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "username: %s\n", user.Login)
	fmt.Fprintf(&sb, "user-id: %d\n", user.ID)
	fmt.Fprintf(&sb, "user-type: %s\n", user.Type)
	if user.Name != "" {
		fmt.Fprintf(&sb, "display-name: %s\n", user.Name)
	}
	if user.Bio != "" {
		fmt.Fprintf(&sb, "bio: %s\n", user.Bio)
	}
	if user.Company != "" {
		fmt.Fprintf(&sb, "company: %s\n", user.Company)
	}
	if user.Location != "" {
		fmt.Fprintf(&sb, "location: %s\n", user.Location)
	}
	if user.Email != "" {
		fmt.Fprintf(&sb, "email: %s\n", user.Email)
	}
	if user.Blog != "" {
		fmt.Fprintf(&sb, "website: %s\n", user.Blog)
	}
	if user.TwitterUsername != "" {
		fmt.Fprintf(&sb, "twitter: @%s\n", user.TwitterUsername)
	}
	fmt.Fprintf(&sb, "public-repos: %d\n", user.PublicRepos)
	fmt.Fprintf(&sb, "public-gists: %d\n", user.PublicGists)
	fmt.Fprintf(&sb, "followers: %d\n", user.Followers)
	fmt.Fprintf(&sb, "following: %d\n", user.Following)
	if user.SiteAdmin {
		sb.WriteString("site-admin: true\n")
	}
	if user.Hireable != nil {
		fmt.Fprintf(&sb, "hireable: %t\n", *user.Hireable)
	}
	fmt.Fprintf(&sb, "created-at: %s\n", user.CreatedAt)
	fmt.Fprintf(&sb, "updated-at: %s\n", user.UpdatedAt)
	fmt.Fprintf(&sb, "github-url: %s\n", user.HTMLURL)
	fmt.Fprintf(&sb, "avatar-url: %s\n", user.AvatarURL)
	fmt.Fprintf(&sb, "api-url: %s/users/%s\n", githubAPIURL, user.Login)
	sb.WriteString("source: GitHub API\n\n")
	sb.WriteString("% Information retrieved from GitHub\n% Query processed by WHOIS server\n")
	return sb.String()
}

func renderGitHubRepository(repo githubRepository, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GitHub Repository Information: %s\n", query)
	sb.WriteString(strings.Repeat("=", 60) + "\n")

	fmt.Fprintf(&sb, "repository-name: %s\n", repo.Name)
	fmt.Fprintf(&sb, "full-name: %s\n", repo.FullName)
	fmt.Fprintf(&sb, "repository-id: %d\n", repo.ID)
	if repo.Description != "" {
		fmt.Fprintf(&sb, "description: %s\n", repo.Description)
	}
	fmt.Fprintf(&sb, "owner: %s\n", repo.Owner.Login)
	fmt.Fprintf(&sb, "owner-type: %s\n", repo.Owner.Type)
	if repo.Language != "" {
		fmt.Fprintf(&sb, "language: %s\n", repo.Language)
	}
	if repo.Homepage != "" {
		fmt.Fprintf(&sb, "homepage: %s\n", repo.Homepage)
	}
	if repo.License != nil {
		fmt.Fprintf(&sb, "license: %s\n", repo.License.Name)
		if repo.License.SpdxID != "" {
			fmt.Fprintf(&sb, "license-spdx: %s\n", repo.License.SpdxID)
		}
	}
	fmt.Fprintf(&sb, "default-branch: %s\n", repo.DefaultBranch)
	fmt.Fprintf(&sb, "stars: %d\n", repo.StargazersCount)
	fmt.Fprintf(&sb, "watchers: %d\n", repo.WatchersCount)
	fmt.Fprintf(&sb, "forks: %d\n", repo.ForksCount)
	fmt.Fprintf(&sb, "open-issues: %d\n", repo.OpenIssuesCount)
	fmt.Fprintf(&sb, "size: %.2f MB\n", float64(repo.Size)/1024.0)

	if repo.Private {
		sb.WriteString("visibility: private\n")
	} else {
		sb.WriteString("visibility: public\n")
	}
	if repo.Fork {
		sb.WriteString("fork: true\n")
	}
	if repo.Archived {
		sb.WriteString("archived: true\n")
	}
	if repo.Disabled {
		sb.WriteString("disabled: true\n")
	}

	var features []string
	if repo.HasIssues {
		features = append(features, "issues")
	}
	if repo.HasProjects {
		features = append(features, "projects")
	}
	if repo.HasWiki {
		features = append(features, "wiki")
	}
	if repo.HasPages {
		features = append(features, "pages")
	}
	if repo.HasDownloads {
		features = append(features, "downloads")
	}
	if len(features) > 0 {
		fmt.Fprintf(&sb, "features: %s\n", strings.Join(features, ", "))
	}
	if len(repo.Topics) > 0 {
		fmt.Fprintf(&sb, "topics: %s\n", strings.Join(repo.Topics, ", "))
	}

	fmt.Fprintf(&sb, "created-at: %s\n", repo.CreatedAt)
	fmt.Fprintf(&sb, "updated-at: %s\n", repo.UpdatedAt)
	if repo.PushedAt != "" {
		fmt.Fprintf(&sb, "pushed-at: %s\n", repo.PushedAt)
	}
	fmt.Fprintf(&sb, "github-url: %s\n", repo.HTMLURL)
	fmt.Fprintf(&sb, "clone-url: %s\n", repo.CloneURL)
	fmt.Fprintf(&sb, "ssh-url: %s\n", repo.SSHURL)
	fmt.Fprintf(&sb, "api-url: %s/repos/%s\n", githubAPIURL, repo.FullName)
	sb.WriteString("source: GitHub API\n\n")
	sb.WriteString("% Information retrieved from GitHub\n% Query processed by WHOIS server\n")
	return sb.String()
}

func githubNotFound(query, resourceType string) string {
	upper := strings.ToUpper(resourceType)
	return fmt.Sprintf(
		"GitHub %s Not Found: %s\nNo %s with this name was found on GitHub.\n\nYou can search manually at: https://github.com/search?q=%s\n\n%% %s not found on GitHub\n%% Query processed by WHOIS server\n",
		upper, query, resourceType, url.QueryEscape(query), upper,
	)
}
