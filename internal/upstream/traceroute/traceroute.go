// Package traceroute wraps the externally-obtained NextTrace binary
// (C3.4.3.5): downloads it once on first use into a cache directory,
// invokes it against a target, strips ANSI escape sequences from its
// stdout, and on Unix falls back to UDP mode with operator guidance
// when the process lacks raw-socket capability.
//
// Grounded on original_source/src/services/traceroute.rs
// (NextTraceManager/strip_ansi_codes/setup_linux_capabilities), re-expressed
// with os/exec and net/http in place of tokio::process and reqwest.
package traceroute

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"whoisd/internal/whoiserr"
)

const (
	windowsURL = "https://github.com/nxtrace/NTrace-core/releases/download/v1.4.0/nexttrace_windows_amd64.exe"
	linuxURL   = "https://github.com/nxtrace/NTrace-core/releases/download/v1.4.0/nexttrace_linux_amd64"

	windowsBinary = "nexttrace_windows_amd64.exe"
	linuxBinary   = "nexttrace_linux_amd64"

	// DefaultCacheDir is where the downloaded binary is cached between runs.
	DefaultCacheDir = "./cache"
)

var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*[mJKH]")

// StripANSI removes ANSI color/cursor escape sequences from text.
func StripANSI(text string) string {
	return ansiRe.ReplaceAllString(text, "")
}

// Manager downloads and invokes the NextTrace binary, caching the binary
// path and initialization state across calls.
type Manager struct {
	CacheDir string

	mu          sync.Mutex
	binaryPath  string
	initialized bool
}

// NewManager returns a Manager caching into dir, or DefaultCacheDir if dir
// is empty.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = DefaultCacheDir
	}
	return &Manager{CacheDir: dir}
}

func platformBinary() (name, url string) {
	if runtime.GOOS == "windows" {
		return windowsBinary, windowsURL
	}
	return linuxBinary, linuxURL
}

// Initialize downloads the platform-appropriate NextTrace binary into the
// cache directory if it is not already present. Safe to call repeatedly;
// subsequent calls are no-ops once initialized.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}

	if err := os.MkdirAll(m.CacheDir, 0o755); err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "creating traceroute cache directory", err)
	}

	name, url := platformBinary()
	m.binaryPath = filepath.Join(m.CacheDir, name)

	if _, err := os.Stat(m.binaryPath); err == nil {
		m.initialized = true
		return nil
	}

	if err := downloadBinary(ctx, url, m.binaryPath); err != nil {
		return err
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(m.binaryPath, 0o755); err != nil {
			return whoiserr.Wrap(whoiserr.Internal, "making NextTrace binary executable", err)
		}
		setupLinuxCapabilities(ctx, m.binaryPath)
	}

	m.initialized = true
	return nil
}

func downloadBinary(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "building NextTrace download request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return whoiserr.Upstream("nexttrace-download", "downloading NextTrace binary", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return whoiserr.Upstream("nexttrace-download", fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	out, err := os.Create(dest)
	if err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "creating NextTrace binary file", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "writing NextTrace binary", err)
	}
	return nil
}

// setupLinuxCapabilities attempts to grant CAP_NET_RAW to the binary via
// setcap. Failure is expected and silent for non-root users; it only means
// TraceRoute will fall back to UDP mode at invocation time.
func setupLinuxCapabilities(ctx context.Context, binaryPath string) {
	cmd := exec.CommandContext(ctx, "setcap", "cap_net_raw+ep", binaryPath)
	_ = cmd.Run()
}

// hasRawSocketCapability reports whether binaryPath already carries
// CAP_NET_RAW, or the caller is root.
func hasRawSocketCapability(ctx context.Context, binaryPath string) bool {
	if runtime.GOOS == "windows" {
		return true
	}
	out, err := exec.CommandContext(ctx, "getcap", binaryPath).Output()
	if err == nil && strings.Contains(string(out), "cap_net_raw") {
		return true
	}
	return os.Geteuid() == 0
}

const udpModeNote = "\n\nNote: Running in UDP mode without CAP_NET_RAW capability.\n" +
	"For ICMP traceroute, consider running with elevated privileges or setting capabilities:\n" +
	"  sudo setcap cap_net_raw+ep nexttrace\n"

// Trace runs the NextTrace binary against target, initializing it first if
// needed, and returns its ANSI-stripped stdout. On Unix, if the binary
// lacks raw-socket capability, it is invoked with --udp and the output is
// annotated with guidance for granting the capability (spec §4.3.5).
func (m *Manager) Trace(ctx context.Context, target string) (string, error) {
	if err := m.Initialize(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	binaryPath := m.binaryPath
	m.mu.Unlock()

	hasCap := hasRawSocketCapability(ctx, binaryPath)

	args := []string{target}
	if runtime.GOOS != "windows" && !hasCap {
		args = append(args, "--udp")
	}

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrText := stderr.String()
		if !hasCap && strings.Contains(strings.ToLower(stderrText), "permission") {
			return "", whoiserr.Wrap(whoiserr.UpstreamUnavailable, fmt.Sprintf(
				"NextTrace execution failed due to insufficient privileges.\n\n%s\n\n"+
					"To resolve this issue on Linux, try one of the following:\n"+
					"1. Run as root\n"+
					"2. Set capabilities: sudo setcap cap_net_raw+ep %s\n"+
					"3. Use UDP mode: nexttrace --udp %s\n\n"+
					"Note: ICMP traceroute requires elevated privileges for raw socket access.",
				stderrText, binaryPath, target), err)
		}
		return "", whoiserr.Wrap(whoiserr.UpstreamUnavailable, "NextTrace execution failed: "+stderrText, err)
	}

	clean := StripANSI(stdout.String())
	if !hasCap {
		clean += udpModeNote
	}
	return clean, nil
}

var (
	globalOnce sync.Once
	global     *Manager
)

// Global returns the process-wide Manager instance, mirroring the
// original's lazily-initialized singleton.
func Global() *Manager {
	globalOnce.Do(func() {
		global = NewManager(DefaultCacheDir)
	})
	return global
}
