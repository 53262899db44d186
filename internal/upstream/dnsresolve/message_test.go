package dnsresolve

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParseIP(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		panic("bad test IP: " + s)
	}
	return ip
}

func TestEncodeName(t *testing.T) {
	b, err := encodeName("example.com")
	require.NoError(t, err)
	require.Equal(t, []byte{7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}, b)
}

func TestEncodeNameRejectsOverlongLabel(t *testing.T) {
	longLabel := make([]byte, 64)
	for i := range longLabel {
		longLabel[i] = 'a'
	}
	_, err := encodeName(string(longLabel) + ".com")
	require.Error(t, err)
}

func TestEncodeQueryRoundTripsThroughHeader(t *testing.T) {
	msg, err := encodeQuery(0x1234, "example.com", TypeA)
	require.NoError(t, err)
	h, err := decodeHeader(msg)
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), h.id)
	require.Equal(t, uint16(1), h.qdcount)
}

func TestReadNameSimple(t *testing.T) {
	msg, err := encodeName("example.com")
	require.NoError(t, err)
	name, offset, err := readName(msg, 0)
	require.NoError(t, err)
	require.Equal(t, "example.com", name)
	require.Equal(t, len(msg), offset)
}

func TestReadNameWithCompressionPointer(t *testing.T) {
	// Build a message: "example.com" at offset 0, then a pointer to it.
	base, err := encodeName("example.com")
	require.NoError(t, err)
	msg := append(base, 0xc0, 0x00) // pointer to offset 0

	name, offset, err := readName(msg, len(base))
	require.NoError(t, err)
	require.Equal(t, "example.com", name)
	require.Equal(t, len(base)+2, offset)
}

func TestReadNameRejectsLoop(t *testing.T) {
	// A pointer pointing at itself should be detected as a loop, not hang.
	msg := []byte{0xc0, 0x00}
	_, _, err := readName(msg, 0)
	require.Error(t, err)
}

func TestParseResponseRoundTrip(t *testing.T) {
	query, err := encodeQuery(1, "example.com", TypeA)
	require.NoError(t, err)

	h, err := decodeHeader(query)
	require.NoError(t, err)
	h.ancount = 1
	msg := h.encode()
	msg = append(msg, query[12:]...) // question section

	name, err := encodeName("example.com")
	require.NoError(t, err)

	// Build answer record manually: name, type, class, ttl, rdlength, rdata.
	answer := append([]byte{}, name...)
	answer = appendUint16(answer, TypeA)
	answer = appendUint16(answer, classINET)
	answer = appendUint32(answer, 300)
	answer = appendUint16(answer, 4)
	answer = append(answer, 93, 184, 216, 34) // 93.184.216.34

	msg = append(msg, answer...)

	resp, err := parseResponse(msg)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
	require.Equal(t, TypeA, resp.Answers[0].Type)
	require.Equal(t, []byte{93, 184, 216, 34}, resp.Answers[0].Data)
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func TestPtrNameIPv4(t *testing.T) {
	require.Equal(t, "1.1.1.1.in-addr.arpa", ptrName(mustParseIP("1.1.1.1")))
}
