package tdd

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"deepreason/internal/config"
	"deepreason/internal/logging"
)

// ZombieKiller tracks the PIDs of subprocesses the TDD loop has spawned
// (sandbox runs, reproduction scripts) so a retry iteration can force-kill
// anything left behind by a timed-out run before starting the next one.
// The teacher's killProcessGroup in internal/tactile/platform_unix.go signals
// a whole process group with SIGKILL, falling back to SIGTERM, then a
// direct Process.Kill(); this is the same idea simplified to the portable
// os.Process.Kill(), since tracking process groups would require the
// TDD loop itself to set Setpgid on commands it does not own (the sandbox
// Executor owns process creation, not this package).
type ZombieKiller struct {
	log *logging.Logger
	pids map[int]struct{}
}

// NewZombieKiller constructs an empty ZombieKiller.
func NewZombieKiller() *ZombieKiller {
	return &ZombieKiller{log: logging.Get(logging.CategoryTDD), pids: make(map[int]struct{})}
}

// Track registers pid as a worker this loop spawned, to be force-killed on
// the next cleanup pass if it is still alive.
func (z *ZombieKiller) Track(pid int) {
	if pid <= 0 {
		return
	}
	z.pids[pid] = struct{}{}
}

// KillAll force-kills every tracked PID still running and clears the
// tracked set. Errors are logged, not returned: a zombie that refuses to
// die should not block the retry loop from continuing.
func (z *ZombieKiller) KillAll() {
	for pid := range z.pids {
		proc, err := os.FindProcess(pid)
		if err != nil {
			continue
		}
		if err := proc.Kill(); err != nil {
			z.log.Debug("zombie cleanup: pid %d already gone: %v", pid, err)
		} else {
			z.log.Warn("zombie cleanup: killed leftover worker pid %d", pid)
		}
	}
	z.pids = make(map[int]struct{})
}

// PortSweeper does a best-effort scan of a port range for lingering
// listeners left behind by a crashed or timed-out sandbox run. Without a
// PID-by-port lookup (which would require shelling out to lsof/fuser, not
// a library available in this stack) it can only detect and log, not
// force-free, a port still in use.
type PortSweeper struct {
	log *logging.Logger
}

// NewPortSweeper constructs a PortSweeper.
func NewPortSweeper() *PortSweeper {
	return &PortSweeper{log: logging.Get(logging.CategoryTDD)}
}

// Sweep dials every port in r and returns the ones that accepted a
// connection, logging a warning for each: a strong signal the sandbox left
// a server process bound there from a previous iteration.
func (p *PortSweeper) Sweep(ctx context.Context, r config.PortRange) []int {
	var stillOpen []int
	dialer := net.Dialer{Timeout: 50 * time.Millisecond}
	for port := r.Low; port <= r.High; port++ {
		select {
		case <-ctx.Done():
			return stillOpen
		default:
		}
		addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			continue
		}
		conn.Close()
		stillOpen = append(stillOpen, port)
		p.log.Warn("port cleanup: port %d still has a listener after the run", port)
	}
	return stillOpen
}
