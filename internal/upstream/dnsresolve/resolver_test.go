package dnsresolve

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildNSRecord(t *testing.T, msg []byte, nsName string) (Record, []byte) {
	t.Helper()
	nameBytes, err := encodeName(nsName)
	require.NoError(t, err)

	rdataOffset := len(msg)
	data := append([]byte{}, nameBytes...)

	rec := Record{Type: TypeNS, Class: classINET, msg: nil, dataOffset: rdataOffset}
	full := append(append([]byte{}, msg...), data...)
	rec.msg = full
	rec.Data = data
	return rec, full
}

func TestExtractNameserversWithGlue(t *testing.T) {
	var msg []byte
	nsRec, msg := buildNSRecord(t, msg, "ns1.example.com")

	glueData := net.ParseIP("203.0.113.5").To4()
	glueRec := Record{Name: "ns1.example.com.", Type: TypeA, Data: glueData}

	resp := Response{
		Authority:  []Record{nsRec},
		Additional: []Record{glueRec},
	}

	next, err := extractNameservers(context.Background(), resp)
	require.NoError(t, err)
	require.Equal(t, []string{"203.0.113.5:53"}, next)
}

func TestExtractNameserversNoAuthorityIsEmpty(t *testing.T) {
	next, err := extractNameservers(context.Background(), Response{})
	require.NoError(t, err)
	require.Empty(t, next)
}

func TestPtrNameIPv6(t *testing.T) {
	name := ptrName(net.ParseIP("2001:db8::1"))
	require.True(t, len(name) > 0)
	require.Contains(t, name, "ip6.arpa")
}

func TestDecodeTXT(t *testing.T) {
	data := append([]byte{5}, []byte("hello")...)
	require.Equal(t, "hello", decodeTXT(data))
}
