package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidGitHubName(t *testing.T) {
	require.True(t, isValidGitHubName("octocat"))
	require.True(t, isValidGitHubName("my-repo"))
	require.False(t, isValidGitHubName(""))
	require.False(t, isValidGitHubName("-leading"))
	require.False(t, isValidGitHubName("trailing-"))
	require.False(t, isValidGitHubName("double--dash"))
	require.False(t, isValidGitHubName("bad_char"))
}

func TestGithubNotFound(t *testing.T) {
	msg := githubNotFound("ghost", "user")
	require.Contains(t, msg, "ghost")
	require.Contains(t, msg, "USER")
}

func TestGithubFetch_NotFoundSurfacesAsError(t *testing.T) {
	// githubFetch is a one-line wrapper over fetchJSON with a fixed host
	// (api.github.com), so the cache/limiter/non-2xx behavior it inherits
	// is exercised directly against a fake upstream here, the same way
	// fetch_test.go covers fetchJSON generally.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := &Deps{}
	var user githubUser
	err := d.fetchJSON(context.Background(), srv.URL, &user)
	require.Error(t, err, "a non-2xx response must surface as an error so handleGitHub renders not-found")
}

func TestRenderGitHubUser_IncludesKeyFields(t *testing.T) {
	user := githubUser{
		Login:       "octocat",
		ID:          1,
		Type:        "User",
		PublicRepos: 8,
		HTMLURL:     "https://github.com/octocat",
	}
	out := renderGitHubUser(user, "octocat")
	require.Contains(t, out, "username: octocat")
	require.Contains(t, out, "github-url: https://github.com/octocat")
}
