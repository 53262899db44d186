package dnsresolve

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

var queryTypeNames = []struct {
	qtype uint16
	name  string
}{
	{TypeA, "A"},
	{TypeAAAA, "AAAA"},
	{TypeMX, "MX"},
	{TypeTXT, "TXT"},
	{TypeNS, "NS"},
	{TypeSOA, "SOA"},
}

// QueryAll resolves every supported record type for domain and renders an
// RPSL-style summary, mirroring the original resolver's query_dns.
func (r *Resolver) QueryAll(ctx context.Context, domain string) string {
	var sb strings.Builder
	found := false

	for _, qt := range queryTypeNames {
		records, err := r.Resolve(ctx, domain, qt.qtype)
		if err != nil || len(records) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(&sb, "\n%s Records for %s:\n", qt.name, domain)
		for _, rec := range records {
			sb.WriteString(formatRecord(rec, qt.name))
		}
	}

	if !found {
		return fmt.Sprintf("No DNS records found for domain: %s\n", domain)
	}
	return fmt.Sprintf("Recursive DNS Resolution Results for: %s\n%s", domain, sb.String())
}

// ReverseLookup resolves a PTR record for ip, mirroring query_rdns.
func (r *Resolver) ReverseLookup(ctx context.Context, ip net.IP) string {
	name := ptrName(ip)
	records, err := r.Resolve(ctx, name, TypePTR)
	if err != nil || len(records) == 0 {
		return fmt.Sprintf("No reverse DNS record found for IP: %s\n", ip)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recursive Reverse DNS Results for %s:\n\nPTR Records:\n", ip)
	for _, rec := range records {
		sb.WriteString(formatRecord(rec, "PTR"))
	}
	return sb.String()
}

func ptrName(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.%d.in-addr.arpa", v4[3], v4[2], v4[1], v4[0])
	}
	v6 := ip.To16()
	nibbles := make([]string, 0, 32)
	for i := len(v6) - 1; i >= 0; i-- {
		b := v6[i]
		nibbles = append(nibbles, fmt.Sprintf("%x", b&0x0f))
		nibbles = append(nibbles, fmt.Sprintf("%x", (b&0xf0)>>4))
	}
	return strings.Join(nibbles, ".") + ".ip6.arpa"
}

func formatRecord(rec Record, typeName string) string {
	switch typeName {
	case "A", "AAAA":
		return fmt.Sprintf("  %s\n", net.IP(rec.Data).String())
	case "NS", "PTR":
		if name, err := rec.NameInData(); err == nil {
			return fmt.Sprintf("  %s\n", name)
		}
		return "  (unparseable)\n"
	case "MX":
		if len(rec.Data) < 3 {
			return "  (unparseable)\n"
		}
		pref := binary.BigEndian.Uint16(rec.Data[:2])
		exchange, err := rec.nameInRemainder(2)
		if err != nil {
			return "  (unparseable)\n"
		}
		return fmt.Sprintf("  %d %s\n", pref, exchange)
	case "TXT":
		return fmt.Sprintf("  %s\n", decodeTXT(rec.Data))
	case "SOA":
		return "  (SOA record)\n"
	default:
		return fmt.Sprintf("  %x\n", rec.Data)
	}
}

func decodeTXT(data []byte) string {
	var sb strings.Builder
	i := 0
	for i < len(data) {
		n := int(data[i])
		i++
		if i+n > len(data) {
			break
		}
		sb.Write(data[i : i+n])
		i += n
	}
	return sb.String()
}

// nameInRemainder decodes a compressed name starting skip bytes into this
// record's RDATA (used by MX, whose exchange name follows a 2-byte
// preference field).
func (r Record) nameInRemainder(skip int) (string, error) {
	name, _, err := readName(r.msg, r.dataOffset+skip)
	return name, err
}
