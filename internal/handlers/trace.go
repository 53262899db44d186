package handlers

import (
	"context"

	"whoisd/internal/query"
	"whoisd/internal/upstream/traceroute"
)

func init() {
	registerAll([]string{"TRACE", "TRACEROUTE"}, handleTrace)
}

// handleTrace runs a traceroute against the target host, downloading and
// capability-probing the nexttrace binary on first use (spec §4.6
// "-TRACE"/"-TRACEROUTE").
func handleTrace(d *Deps, ctx context.Context, q query.Query) []byte {
	mgr := d.Trace
	if mgr == nil {
		mgr = traceroute.Global()
	}

	out, err := mgr.Trace(ctx, q.Normalized)
	if err != nil {
		return []byte("Traceroute failed: " + err.Error() + "\n\nNote: NextTrace requires network access and may need administrator privileges on some systems.\n")
	}
	return []byte(traceroute.StripANSI("Traceroute to " + q.Normalized + " using NextTrace:\n\n" + out))
}
