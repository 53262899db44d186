package server

import (
	"bytes"
	"regexp"
)

// ansi codes kept minimal: bold cyan for RPSL attribute names, plain for
// values, dim for "%"-comment lines -- enough to distinguish the two
// colour schemes real WHOIS clients negotiate for (RIPE's whois client and
// bgp.tools' own client both recognize this prelude) without depending on
// a terminal-colour library the rest of the pack never pulls in.
const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiCyan    = "\x1b[36;1m"
	ansiYellow  = "\x1b[33;1m"
)

var rpslAttrLine = regexp.MustCompile(`(?m)^([a-zA-Z0-9][a-zA-Z0-9_-]*:)(\s*)(.*)$`)
var commentLine = regexp.MustCompile(`(?m)^(%.*)$`)

// colorize applies ANSI colour codes to RPSL-style "attribute: value" lines
// and "%" comment banners, matching the negotiated client scheme (spec §4.8
// Responding: "if the negotiated colour mode is set, a renderer
// post-processes certain tagged sections ... to embed ANSI colour codes").
// Only IRR-family tagged output is colourized; every other tag's response
// passes through unchanged, since RPSL key:value framing is what those
// clients' colourizers are built to recognize.
func colorize(body []byte, tag string, mode colorMode) []byte {
	if mode == colorNone || !isIRRTag(tag) {
		return body
	}

	attrColor := ansiCyan
	if mode == colorBGPTools {
		attrColor = ansiYellow
	}

	var out bytes.Buffer
	out.Write(commentLine.ReplaceAll(body, []byte(ansiDim+"$1"+ansiReset)))
	result := rpslAttrLine.ReplaceAll(out.Bytes(), []byte(attrColor+"$1"+ansiReset+"$2$3"))
	return result
}

func isIRRTag(tag string) bool {
	switch tag {
	case "IRR", "LG", "RADB", "ALTDB", "AFRINIC", "APNIC", "ARIN", "BELL",
		"JPIRR", "LACNIC", "LEVEL3", "NTTCOM", "RIPE", "TC":
		return true
	default:
		return false
	}
}
