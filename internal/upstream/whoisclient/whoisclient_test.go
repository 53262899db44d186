package whoisclient

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/openrdap/rdap/bootstrap"
	"github.com/stretchr/testify/require"
)

func TestFindValue(t *testing.T) {
	body := "Domain Name: EXAMPLE.COM\nRegistrar:   Example Registrar, Inc.\nrefer: whois.example-registry.net\n"

	require.Equal(t, "EXAMPLE.COM", FindValue(body, []string{"Domain Name"}))
	require.Equal(t, "Example Registrar, Inc.", FindValue(body, []string{"registrar"}))
	require.Equal(t, "whois.example-registry.net", FindValue(body, []string{"refer"}))
	require.Empty(t, FindValue(body, []string{"nonexistent"}))
}

func TestFindValueSkipsCommentLines(t *testing.T) {
	body := "% this is a comment: not a field\ndomain: example.com\n"
	require.Equal(t, "example.com", FindValue(body, []string{"domain"}))
}

type fakeBootstrap struct {
	answer *bootstrap.Answer
	err    error
}

func (f *fakeBootstrap) Lookup(_ *bootstrap.Question) (*bootstrap.Answer, error) {
	return f.answer, f.err
}

func withBootstrapClient(t *testing.T, b bootstrapLookuper) {
	t.Helper()
	prev := bootstrapClient
	bootstrapClient = b
	t.Cleanup(func() { bootstrapClient = prev })
}

func TestHostForDomainKnownTLD(t *testing.T) {
	// Known TLDs are served from the static table and never reach the
	// bootstrap client at all.
	withBootstrapClient(t, &fakeBootstrap{err: errors.New("must not be called")})
	require.Equal(t, "whois.verisign-grs.com", HostForDomain(context.Background(), "example.com"))
	require.Equal(t, "whois.pir.org", HostForDomain(context.Background(), "example.org"))
}

func TestHostForDomainUnknownTLDUsesBootstrapAnswer(t *testing.T) {
	withBootstrapClient(t, &fakeBootstrap{answer: &bootstrap.Answer{
		URLs: []*url.URL{{Scheme: "http", Host: "rdap.example-registry.zz"}, {Scheme: "https", Host: "rdap.example-registry.zz"}},
	}})
	require.Equal(t, "rdap.example-registry.zz", HostForDomain(context.Background(), "example.zz"))
}

func TestHostForDomainUnknownTLDFallsBackToIANAOnBootstrapError(t *testing.T) {
	withBootstrapClient(t, &fakeBootstrap{err: errors.New("bootstrap unreachable")})
	require.Equal(t, DefaultHost, HostForDomain(context.Background(), "example.zz"))
}

func TestHostForDomainUnknownTLDFallsBackToIANAOnEmptyAnswer(t *testing.T) {
	withBootstrapClient(t, &fakeBootstrap{answer: &bootstrap.Answer{}})
	require.Equal(t, DefaultHost, HostForDomain(context.Background(), "example.zz"))
}

func TestHostForRIR(t *testing.T) {
	require.Equal(t, "whois.ripe.net", HostForRIR("RIPE"))
	require.Equal(t, "whois.arin.net", HostForRIR("arin"))
	require.Empty(t, HostForRIR("nonexistent"))
}

func TestIRRHostsCoversAllSuffixTags(t *testing.T) {
	for _, tag := range []string{"IRR", "LG", "RADB", "ALTDB", "AFRINIC", "APNIC", "ARIN", "BELL", "JPIRR", "LACNIC", "LEVEL3", "NTTCOM", "RIPE", "TC"} {
		require.NotEmptyf(t, IRRHosts[tag], "missing host for tag %s", tag)
	}
}
