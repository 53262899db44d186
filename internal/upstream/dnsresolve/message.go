// Package dnsresolve implements a minimal iterative DNS resolver
// (C3.4.3.4): starting from a hardcoded root-server list, it sends
// queries over UDP, follows NS referrals extracted from the authority
// and additional sections, and falls back to public resolvers when a
// referral provides no glue.
//
// There is no DNS-resolution library anywhere in the example corpus, and
// the original Rust implementation (original_source/src/services/dns.rs)
// hand-rolls the exact same wire format for the same reason: this server
// needs raw, unfiltered referral-chasing control that a standard
// recursive-resolver library normally hides. Grounded directly on that
// file's encode/parse/resolve_recursive structure, re-expressed in Go.
package dnsresolve

import (
	"encoding/binary"
	"fmt"
)

// Record types supported by the resolver (spec §4.3.4).
const (
	TypeA     uint16 = 1
	TypeNS    uint16 = 2
	TypeSOA   uint16 = 6
	TypePTR   uint16 = 12
	TypeMX    uint16 = 15
	TypeTXT   uint16 = 16
	TypeAAAA  uint16 = 28
	classINET uint16 = 1
)

// maxLabelLength is the wire-format label length limit; a length byte
// with the top two bits set (>=0xc0) is a compression pointer, so 63 is
// the largest value that can validly mean "label length".
const maxLabelLength = 63

// header is the 12-byte DNS message header.
type header struct {
	id      uint16
	flags   uint16
	qdcount uint16
	ancount uint16
	nscount uint16
	arcount uint16
}

func (h header) encode() []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint16(b[0:2], h.id)
	binary.BigEndian.PutUint16(b[2:4], h.flags)
	binary.BigEndian.PutUint16(b[4:6], h.qdcount)
	binary.BigEndian.PutUint16(b[6:8], h.ancount)
	binary.BigEndian.PutUint16(b[8:10], h.nscount)
	binary.BigEndian.PutUint16(b[10:12], h.arcount)
	return b
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < 12 {
		return header{}, fmt.Errorf("dns: message too short for header")
	}
	return header{
		id:      binary.BigEndian.Uint16(b[0:2]),
		flags:   binary.BigEndian.Uint16(b[2:4]),
		qdcount: binary.BigEndian.Uint16(b[4:6]),
		ancount: binary.BigEndian.Uint16(b[6:8]),
		nscount: binary.BigEndian.Uint16(b[8:10]),
		arcount: binary.BigEndian.Uint16(b[10:12]),
	}, nil
}

// Record is a single resource record from an answer, authority, or
// additional section.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  []byte
	// msg and dataOffset let NameInData re-decode a compressed domain name
	// that appears inside RDATA (e.g. an NS record's target), since such
	// pointers are relative to the whole message, not to Data alone.
	msg        []byte
	dataOffset int
}

// NameInData decodes a domain name stored at the start of this record's
// RDATA (used for NS/CNAME/PTR/SOA-style records).
func (r Record) NameInData() (string, error) {
	name, _, err := readName(r.msg, r.dataOffset)
	return name, err
}

// Response holds every section of a parsed DNS message relevant to
// iterative resolution.
type Response struct {
	Answers    []Record
	Authority  []Record
	Additional []Record
}

// encodeName renders domain into DNS wire format: length-prefixed labels
// terminated by a zero-length root label. Labels over maxLabelLength are
// rejected (spec §4.3.4: "label-length ≥ 64 refused").
func encodeName(domain string) ([]byte, error) {
	var out []byte
	start := 0
	for i := 0; i <= len(domain); i++ {
		if i == len(domain) || domain[i] == '.' {
			label := domain[start:i]
			start = i + 1
			if label == "" {
				continue
			}
			if len(label) > maxLabelLength {
				return nil, fmt.Errorf("dns: label %q exceeds %d bytes", label, maxLabelLength)
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
		}
	}
	out = append(out, 0)
	return out, nil
}

// encodeQuery builds a complete query message for domain/qtype with a
// random transaction id.
func encodeQuery(id uint16, domain string, qtype uint16) ([]byte, error) {
	name, err := encodeName(domain)
	if err != nil {
		return nil, err
	}
	h := header{id: id, flags: 0x0100, qdcount: 1}
	msg := h.encode()
	msg = append(msg, name...)
	qtypeBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(qtypeBytes, qtype)
	msg = append(msg, qtypeBytes...)
	qclassBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(qclassBytes, classINET)
	msg = append(msg, qclassBytes...)
	return msg, nil
}

// readName decodes a (possibly compressed) domain name starting at
// offset, returning the decoded name and the offset immediately after it
// in the original message (not following any compression pointer).
func readName(msg []byte, offset int) (string, int, error) {
	var labels []string
	originalOffset := -1
	pos := offset
	jumps := 0

	for {
		if pos >= len(msg) {
			return "", 0, fmt.Errorf("dns: name extends past end of message")
		}
		length := int(msg[pos])

		if length == 0 {
			pos++
			break
		}

		if length&0xc0 == 0xc0 {
			if pos+1 >= len(msg) {
				return "", 0, fmt.Errorf("dns: truncated compression pointer")
			}
			if originalOffset == -1 {
				originalOffset = pos + 2
			}
			pointer := int(length&0x3f)<<8 | int(msg[pos+1])
			jumps++
			if jumps > 64 {
				return "", 0, fmt.Errorf("dns: compression pointer loop")
			}
			pos = pointer
			continue
		}

		if length > maxLabelLength {
			return "", 0, fmt.Errorf("dns: label length %d exceeds %d", length, maxLabelLength)
		}
		if pos+1+length > len(msg) {
			return "", 0, fmt.Errorf("dns: label extends past end of message")
		}
		labels = append(labels, string(msg[pos+1:pos+1+length]))
		pos += 1 + length
	}

	if originalOffset != -1 {
		pos = originalOffset
	}

	name := ""
	for i, l := range labels {
		if i > 0 {
			name += "."
		}
		name += l
	}
	return name, pos, nil
}

func parseResponse(msg []byte) (Response, error) {
	h, err := decodeHeader(msg)
	if err != nil {
		return Response{}, err
	}

	offset := 12
	for i := 0; i < int(h.qdcount); i++ {
		_, next, err := readName(msg, offset)
		if err != nil {
			return Response{}, err
		}
		offset = next + 4 // QTYPE + QCLASS
	}

	parseSection := func(count int) ([]Record, error) {
		records := make([]Record, 0, count)
		for i := 0; i < count; i++ {
			rec, next, err := parseRecord(msg, offset)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			offset = next
		}
		return records, nil
	}

	answers, err := parseSection(int(h.ancount))
	if err != nil {
		return Response{}, err
	}
	authority, err := parseSection(int(h.nscount))
	if err != nil {
		return Response{}, err
	}
	additional, err := parseSection(int(h.arcount))
	if err != nil {
		return Response{}, err
	}

	return Response{Answers: answers, Authority: authority, Additional: additional}, nil
}

func parseRecord(msg []byte, offset int) (Record, int, error) {
	name, offset, err := readName(msg, offset)
	if err != nil {
		return Record{}, 0, err
	}
	if offset+10 > len(msg) {
		return Record{}, 0, fmt.Errorf("dns: record header extends past end of message")
	}
	rtype := binary.BigEndian.Uint16(msg[offset : offset+2])
	class := binary.BigEndian.Uint16(msg[offset+2 : offset+4])
	ttl := binary.BigEndian.Uint32(msg[offset+4 : offset+8])
	rdlength := int(binary.BigEndian.Uint16(msg[offset+8 : offset+10]))
	offset += 10
	if offset+rdlength > len(msg) {
		return Record{}, 0, fmt.Errorf("dns: record data extends past end of message")
	}
	data := make([]byte, rdlength)
	copy(data, msg[offset:offset+rdlength])
	dataOffset := offset
	offset += rdlength

	return Record{Name: name, Type: rtype, Class: class, TTL: ttl, Data: data, msg: msg, dataOffset: dataOffset}, offset, nil
}
