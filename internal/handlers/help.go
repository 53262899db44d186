package handlers

import (
	"context"

	"whoisd/internal/query"
)

func init() {
	register("HELP", handleHelp)
}

// handleHelp renders the static query-syntax reference (spec §4.6 "HELP",
// grounded on help.rs's generate_help_response).
func handleHelp(d *Deps, ctx context.Context, q query.Query) []byte {
	return []byte(helpText)
}

const helpText = `WHOIS Server - Query Help
============================================================

This WHOIS server supports multiple query types and services.
Simply type your query followed by the appropriate suffix.

BASIC QUERIES:
----------------------------------------
domain.com          - Domain WHOIS information
192.168.1.1         - IPv4 address information
2001:db8::1         - IPv6 address information
AS15169             - ASN (Autonomous System) information
192.168.0.0/24      - CIDR block information

ENHANCED QUERIES:
----------------------------------------
domain.com-EMAIL    - Search for email addresses in WHOIS data
example: google.com-EMAIL

AS15169-BGPTOOL     - BGP routing analysis and statistics
example: AS15169-BGPTOOL

AS15169-PREFIXES    - List all prefixes announced by ASN
example: AS15169-PREFIXES

GEO-LOCATION SERVICES:
----------------------------------------
8.8.8.8-GEO         - IP geolocation (commercial database)
example: 8.8.8.8-GEO

8.8.8.8-RIRGEO      - RIR geolocation (registry data)
example: 8.8.8.8-RIRGEO

8.8.8.8-ULTIMATEGEO - Combined multi-source geolocation
example: 8.8.8.8-ULTIMATEGEO

ROUTING & REGISTRY SERVICES:
----------------------------------------
AS15169-IRR         - IRR Explorer routing registry analysis
8.8.8.8-LG          - RIPE RIS Looking Glass query
AS15169-RADB        - Routing Assets Database query
AS15169-ALTDB       - ALTDB routing registry query
AS15169-AFRINIC     - AFRINIC IRR query
AS15169-APNIC       - APNIC IRR query
AS15169-ARIN        - ARIN IRR query
AS15169-BELL        - BELL IRR query
AS15169-JPIRR       - JPIRR query
AS15169-LACNIC      - LACNIC IRR query
AS15169-LEVEL3      - LEVEL3 IRR query
AS15169-NTTCOM      - NTTCOM IRR query
AS15169-RIPE        - RIPE IRR query
AS15169-TC          - TC (Telecom) IRR query
8.8.0.0/16-15169-RPKI - RPKI validation (prefix-asn-RPKI)
AS15169-MANRS       - MANRS (routing security) compliance

NETWORK DIAGNOSTICS:
----------------------------------------
google.com-DNS      - DNS resolution information
google.com-TRACE    - Network traceroute to target
google.com-TRACEROUTE - Alternative traceroute format

SECURITY & CERTIFICATES:
----------------------------------------
google.com-SSL      - SSL/TLS certificate analysis
google.com-CRT      - Certificate Transparency logs

GAMING SERVICES:
----------------------------------------
mc.hypixel.net-MINECRAFT - Minecraft server status
mc.hypixel.net-MC  - Minecraft server status (short)
730-STEAM           - Steam game/user information (730 = Counter-Strike 2)
Counter-Strike-STEAMSEARCH - Steam game search

MEDIA & ENTERTAINMENT:
----------------------------------------
Inception-IMDB      - IMDb movie/TV show information
tt1375666-IMDB      - IMDb by ID (tt1375666 = Inception)
Batman-IMDBSEARCH   - IMDb title search
Hatsune-LYRIC       - Random lyric snippet lookup
Rust_programming_language-WIKIPEDIA - Wikipedia article lookup
-MEAL               - Random meal suggestion (TheMealDB)
-MEAL-CN            - Random Chinese recipe (HowToCook)

PACKAGE REPOSITORIES:
----------------------------------------
serde-CARGO         - Rust crates.io package information
requests-PYPI       - Python PyPI package information
react-NPM           - Node.js NPM package information
yay-AUR             - Arch User Repository packages
curl-DEBIAN         - Debian package information
firefox-UBUNTU      - Ubuntu package information
nixpkgs-NIXOS       - NixOS package information
zypper-OPENSUSE     - OpenSUSE package information
htop-AOSC           - AOSC OS package information
sodium-MODRINTH     - Modrinth mod/resource pack information
jei-CURSEFORGE      - CurseForge mod information (requires API key)

DEVELOPMENT SERVICES:
----------------------------------------
torvalds-GITHUB     - GitHub user/repository information
microsoft/vscode-GITHUB - GitHub repository info

SPECIAL COMMANDS:
----------------------------------------
HELP                - Show this help message

WHOIS-COLOR PROTOCOL:
----------------------------------------
This server supports WHOIS-COLOR protocol v1.0 for enhanced output.
Send 'X-WHOIS-COLOR-PROBE: 1' to detect color support.
Use 'X-WHOIS-COLOR: ripe' or 'X-WHOIS-COLOR: bgptools' for colored output.

EXAMPLES:
----------------------------------------
# Basic WHOIS queries
whois -h whois.example.net google.com
whois -h whois.example.net 8.8.8.8
whois -h whois.example.net AS15169

# Enhanced queries
whois -h whois.example.net google.com-EMAIL
whois -h whois.example.net 8.8.8.8-GEO
whois -h whois.example.net AS15169-MANRS

# Package queries
whois -h whois.example.net serde-CARGO
whois -h whois.example.net requests-PYPI
whois -h whois.example.net react-NPM

# Gaming and media
whois -h whois.example.net 730-STEAM
whois -h whois.example.net Inception-IMDB
whois -h whois.example.net mc.hypixel.net-MINECRAFT

# Color support test
echo -e "X-WHOIS-COLOR-PROBE: 1\r\n\r\n" | nc whois.example.net 43
echo -e "X-WHOIS-COLOR: ripe\r\nAS15169\r\n" | nc whois.example.net 43

SERVER INFORMATION:
----------------------------------------
Server: whois.example.net (port 43)
% This help information is provided by the WHOIS server
`
