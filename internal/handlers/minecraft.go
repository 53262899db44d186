package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"whoisd/internal/query"
)

func init() {
	registerAll([]string{"MINECRAFT", "MC"}, handleMinecraft)
}

// minecraftTimeout bounds the whole ping exchange (grounded on
// MinecraftService::new's 10-second default in minecraft.rs).
const minecraftTimeout = 10 * time.Second

// minecraftProtocolVersion is sent in the handshake packet; 760 corresponds
// to 1.19.2 and is accepted by status-ping handling on effectively every
// server version (grounded on minecraft.rs's send_handshake comment).
const minecraftProtocolVersion = 760

type minecraftStatus struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
		Sample []struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"sample"`
	} `json:"players"`
	Description          json.RawMessage `json:"description"`
	Favicon              *string         `json:"favicon"`
	EnforcesSecureChat   *bool           `json:"enforcesSecureChat"`
	PreviewsChat         *bool           `json:"previewsChat"`
}

type minecraftServerInfo struct {
	host               string
	port               uint16
	version            string
	protocol           int
	playersOnline      int
	playersMax         int
	playerList         []string
	description        string
	latencyMS          int64
	enforcesSecureChat *bool
	previewsChat       *bool
}

// handleMinecraft queries a Minecraft server's status over the Server List
// Ping protocol (spec §4.6 "-MINECRAFT"/"-MC", grounded on minecraft.rs's
// MinecraftService).
func handleMinecraft(d *Deps, ctx context.Context, q query.Query) []byte {
	host, port, err := parseMinecraftTarget(q.Normalized)
	if err != nil {
		return []byte(fmt.Sprintf("Invalid Minecraft target: %s\nTarget format: hostname:port or hostname (default port 25565)\n", err))
	}

	info, err := queryMinecraftServer(ctx, host, port)
	if err != nil {
		return []byte(fmt.Sprintf(
			"Minecraft Server Query Failed for %s:%d\nError: %s\n\nPossible causes:\n- Server is offline or unreachable\n- Server is not running Minecraft\n- Firewall blocking connection\n- Invalid hostname or port\n",
			host, port, err))
	}
	return []byte(formatMinecraftInfo(info))
}

// parseMinecraftTarget splits host:port, defaulting to the standard
// Minecraft port when no port is given (grounded on parse_minecraft_target).
func parseMinecraftTarget(target string) (string, uint16, error) {
	if idx := strings.LastIndex(target, ":"); idx != -1 {
		host := target[:idx]
		if host == "" {
			return "", 0, fmt.Errorf("empty hostname")
		}
		port, err := strconv.ParseUint(target[idx+1:], 10, 16)
		if err != nil {
			return "", 0, fmt.Errorf("invalid port number: %s", target[idx+1:])
		}
		return host, uint16(port), nil
	}
	return target, 25565, nil
}

func queryMinecraftServer(ctx context.Context, host string, port uint16) (minecraftServerInfo, error) {
	start := time.Now()

	dialer := net.Dialer{Timeout: minecraftTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return minecraftServerInfo{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(minecraftTimeout))

	if err := mcSendHandshake(conn, host, port); err != nil {
		return minecraftServerInfo{}, err
	}
	if err := mcSendPacket(conn, []byte{0x00}); err != nil {
		return minecraftServerInfo{}, fmt.Errorf("failed to send status request: %w", err)
	}

	statusJSON, err := mcReadStatusResponse(conn)
	if err != nil {
		return minecraftServerInfo{}, err
	}

	var status minecraftStatus
	if err := json.Unmarshal([]byte(statusJSON), &status); err != nil {
		return minecraftServerInfo{}, fmt.Errorf("failed to parse server response: %w", err)
	}

	pingStart := time.Now()
	if err := mcSendPing(conn); err != nil {
		return minecraftServerInfo{}, err
	}
	if err := mcReadPingResponse(conn); err != nil {
		return minecraftServerInfo{}, err
	}
	pingLatency := time.Since(pingStart).Milliseconds()
	totalLatency := time.Since(start).Milliseconds()
	latency := totalLatency
	if pingLatency < latency {
		latency = pingLatency
	}

	players := make([]string, 0, len(status.Players.Sample))
	for _, p := range status.Players.Sample {
		players = append(players, p.Name)
	}

	return minecraftServerInfo{
		host:               host,
		port:               port,
		version:            status.Version.Name,
		protocol:           status.Version.Protocol,
		playersOnline:      status.Players.Online,
		playersMax:         status.Players.Max,
		playerList:         players,
		description:        mcFormatDescription(status.Description),
		latencyMS:          latency,
		enforcesSecureChat: status.EnforcesSecureChat,
		previewsChat:       status.PreviewsChat,
	}, nil
}

// mcFormatDescription handles the server MOTD, which the protocol allows to
// be either a bare string or a chat-component object (grounded on
// format_description).
func mcFormatDescription(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}
	return string(raw)
}

func mcSendHandshake(conn net.Conn, host string, port uint16) error {
	var packet []byte
	packet = append(packet, 0x00)
	packet = mcAppendVarInt(packet, minecraftProtocolVersion)
	packet = mcAppendString(packet, host)
	packet = append(packet, byte(port>>8), byte(port))
	packet = mcAppendVarInt(packet, 1)
	return mcSendPacket(conn, packet)
}

func mcSendPing(conn net.Conn) error {
	packet := []byte{0x01}
	ts := time.Now().UnixMilli()
	for i := 7; i >= 0; i-- {
		packet = append(packet, byte(ts>>(8*i)))
	}
	return mcSendPacket(conn, packet)
}

func mcReadPingResponse(conn net.Conn) error {
	packet, err := mcReadPacket(conn)
	if err != nil {
		return err
	}
	if len(packet) == 0 || packet[0] != 0x01 {
		return fmt.Errorf("invalid ping response packet")
	}
	return nil
}

func mcReadStatusResponse(conn net.Conn) (string, error) {
	packet, err := mcReadPacket(conn)
	if err != nil {
		return "", err
	}
	if len(packet) == 0 || packet[0] != 0x00 {
		return "", fmt.Errorf("invalid status response packet")
	}
	s, _, err := mcReadStringFromBytes(packet[1:])
	return s, err
}

func mcSendPacket(conn net.Conn, data []byte) error {
	packet := mcAppendVarInt(nil, int32(len(data)))
	packet = append(packet, data...)
	_, err := conn.Write(packet)
	if err != nil {
		return fmt.Errorf("failed to send packet: %w", err)
	}
	return nil
}

const maxMinecraftPacket = 1 << 20

func mcReadPacket(conn net.Conn) ([]byte, error) {
	length, err := mcReadVarInt(conn)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	if length > maxMinecraftPacket {
		return nil, fmt.Errorf("packet too large: %d bytes", length)
	}
	buf := make([]byte, length)
	if _, err := readFull(conn, buf); err != nil {
		return nil, fmt.Errorf("failed to read packet data: %w", err)
	}
	return buf, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func mcAppendVarInt(buf []byte, value int32) []byte {
	v := uint32(value)
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			break
		}
	}
	return buf
}

func mcReadVarInt(conn net.Conn) (int32, error) {
	var result int32
	var position uint
	buf := make([]byte, 1)
	for {
		if _, err := readFull(conn, buf); err != nil {
			return 0, fmt.Errorf("failed to read varint byte: %w", err)
		}
		b := buf[0]
		result |= int32(b&0x7F) << position
		if b&0x80 == 0 {
			break
		}
		position += 7
		if position >= 32 {
			return 0, fmt.Errorf("varint too big")
		}
	}
	return result, nil
}

func mcAppendString(buf []byte, s string) []byte {
	buf = mcAppendVarInt(buf, int32(len(s)))
	return append(buf, s...)
}

func mcReadStringFromBytes(data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("empty data for string reading")
	}
	offset := 0
	length, err := mcReadVarIntFromBytes(data, &offset)
	if err != nil {
		return "", 0, err
	}
	if offset+int(length) > len(data) {
		return "", 0, fmt.Errorf("string length exceeds available data")
	}
	return string(data[offset : offset+int(length)]), offset + int(length), nil
}

func mcReadVarIntFromBytes(data []byte, offset *int) (int32, error) {
	var result int32
	var position uint
	for {
		if *offset >= len(data) {
			return 0, fmt.Errorf("unexpected end of data while reading varint")
		}
		b := data[*offset]
		*offset++
		result |= int32(b&0x7F) << position
		if b&0x80 == 0 {
			break
		}
		position += 7
		if position >= 32 {
			return 0, fmt.Errorf("varint too big")
		}
	}
	return result, nil
}

// formatMinecraftInfo renders the query result in RPSL style (grounded on
// format_server_info).
func formatMinecraftInfo(info minecraftServerInfo) string {
	var sb strings.Builder
	sb.WriteString("% This is the WHOIS server response for Minecraft server query\n")
	sb.WriteString("% Information related to Minecraft server status\n%\n% The objects are in RPSL format\n%\n")

	fmt.Fprintf(&sb, "server:         %s:%d\n", info.host, info.port)
	sb.WriteString("status:         ONLINE\n")
	fmt.Fprintf(&sb, "version:        %s\n", info.version)
	fmt.Fprintf(&sb, "protocol:       %d\n", info.protocol)
	fmt.Fprintf(&sb, "descr:          %s\n", info.description)
	fmt.Fprintf(&sb, "players-online: %d\n", info.playersOnline)
	fmt.Fprintf(&sb, "players-max:    %d\n", info.playersMax)
	fmt.Fprintf(&sb, "latency:        %dms\n", info.latencyMS)

	if info.enforcesSecureChat != nil {
		state := "optional"
		if *info.enforcesSecureChat {
			state = "enforced"
		}
		fmt.Fprintf(&sb, "secure-chat:    %s\n", state)
	}
	if info.previewsChat != nil {
		state := "disabled"
		if *info.previewsChat {
			state = "enabled"
		}
		fmt.Fprintf(&sb, "chat-preview:   %s\n", state)
	}

	if len(info.playerList) > 0 {
		for i, p := range info.playerList {
			if i >= 10 {
				fmt.Fprintf(&sb, "remarks:        ... and %d more players online\n", len(info.playerList)-10)
				break
			}
			fmt.Fprintf(&sb, "player:         %s\n", p)
		}
	} else if info.playersOnline > 0 {
		sb.WriteString("remarks:        Player list hidden by server configuration\n")
	}

	sb.WriteString("source:         WHOISD-NETWORKS-AGENT\n\n")
	sb.WriteString("% Information retrieved using Minecraft Server List Ping protocol\n% Query processed by WHOIS server\n")
	return sb.String()
}
