package tunnel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Fatal setup failures. The run must not proceed without a reachable target,
// so every one of these aborts before the first phase.
var (
	// ErrServiceNotFound indicates the remote service could not be resolved
	// in the target namespace.
	ErrServiceNotFound = errors.New("tunnel service not found")
	// ErrPortInUse indicates the local port is already claimed, either by a
	// live listener or by another run holding the port lock.
	ErrPortInUse = errors.New("local port in use")
	// ErrTunnelFailed indicates the port-forward process started but the
	// local port never became reachable.
	ErrTunnelFailed = errors.New("tunnel establishment failed")
)

const (
	serviceCheckTimeout = 10 * time.Second
	defaultReadyTimeout = 5 * time.Second
	pollInterval        = 100 * time.Millisecond
	probeTimeout        = 250 * time.Millisecond
	closeGrace          = 5 * time.Second
)

// Options configures a tunnel Manager.
type Options struct {
	// Namespace and Service name the remote endpoint to forward to.
	Namespace string
	Service   string
	// LocalPort is bound on 127.0.0.1; RemotePort is the service port.
	LocalPort  int
	RemotePort int
	// KubectlPath overrides the kubectl binary, mainly for tests.
	KubectlPath string
	// ReadyTimeout bounds how long Open waits for the local port to accept
	// connections. Defaults to 5s.
	ReadyTimeout time.Duration
	Logger       *zap.Logger
}

// Handle describes an established tunnel.
type Handle struct {
	PID         int
	LocalPort   int
	Established bool
}

// Manager owns a kubectl port-forward child process for the duration of a
// run. A Manager supports a single Open/Close cycle; Close is idempotent and
// safe to call whether Open succeeded, failed partway, or was never called.
type Manager struct {
	opts   Options
	logger *zap.Logger

	closeOnce sync.Once
	cmd       *exec.Cmd
	lock      *flock.Flock
	out       bytes.Buffer
	done      chan struct{}
	waitErr   error
}

func New(opts Options) *Manager {
	if opts.KubectlPath == "" {
		opts.KubectlPath = "kubectl"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:   opts,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Open establishes the port-forward: verify the remote service exists, claim
// the local port, start kubectl, and wait for the port to accept connections.
// On failure the child process, if started, is torn down before returning.
// Callers should still defer Close; it is a no-op after a failed Open.
func (m *Manager) Open(ctx context.Context) (*Handle, error) {
	if err := m.checkService(ctx); err != nil {
		return nil, err
	}
	if err := m.claimPort(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(m.opts.LocalPort))

	cmd := exec.CommandContext(ctx, m.opts.KubectlPath,
		"port-forward",
		"service/"+m.opts.Service,
		fmt.Sprintf("%d:%d", m.opts.LocalPort, m.opts.RemotePort),
		"-n", m.opts.Namespace,
	)
	cmd.Stdout = &m.out
	cmd.Stderr = &m.out
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = closeGrace

	if err := cmd.Start(); err != nil {
		m.releaseLock()
		return nil, fmt.Errorf("%w: starting %s: %v", ErrTunnelFailed, m.opts.KubectlPath, err)
	}
	m.cmd = cmd
	go func() {
		m.waitErr = cmd.Wait()
		close(m.done)
	}()

	m.logger.Debug("port-forward starting",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("service", m.opts.Service),
		zap.String("namespace", m.opts.Namespace),
		zap.String("local_addr", addr),
		zap.Int("remote_port", m.opts.RemotePort),
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(m.opts.ReadyTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil, ctx.Err()
		case <-m.done:
			m.Close()
			if out := m.combinedOutput(); out != "" {
				return nil, fmt.Errorf("%w: port-forward exited: %s", ErrTunnelFailed, out)
			}
			return nil, fmt.Errorf("%w: port-forward exited: %v", ErrTunnelFailed, m.waitErr)
		case <-deadline.C:
			m.Close()
			return nil, fmt.Errorf("%w: %s not reachable after %s", ErrTunnelFailed, addr, m.opts.ReadyTimeout)
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, pollInterval)
			if err != nil {
				continue
			}
			conn.Close()
			m.logger.Info("tunnel established",
				zap.Int("pid", cmd.Process.Pid),
				zap.String("local_addr", addr),
			)
			return &Handle{
				PID:         cmd.Process.Pid,
				LocalPort:   m.opts.LocalPort,
				Established: true,
			}, nil
		}
	}
}

// Close tears the tunnel down: SIGTERM, up to 5s grace, then SIGKILL, then
// the port lock is released. It never returns an error; a tunnel process
// that refuses to die is logged, not escalated. Safe to call exactly once
// from any exit path; later calls do nothing.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		defer m.releaseLock()

		if m.cmd == nil || m.cmd.Process == nil {
			return
		}
		select {
		case <-m.done:
			m.logger.Debug("port-forward already exited", zap.Int("pid", m.cmd.Process.Pid))
			return
		default:
		}

		pid := m.cmd.Process.Pid
		m.logger.Debug("stopping port-forward", zap.Int("pid", pid))
		if err := m.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			m.logger.Warn("port-forward signal failed", zap.Int("pid", pid), zap.Error(err))
		}

		select {
		case <-m.done:
		case <-time.After(closeGrace):
			m.logger.Warn("port-forward did not stop, killing", zap.Int("pid", pid))
			_ = m.cmd.Process.Kill()
			<-m.done
		}
		m.logger.Info("tunnel closed", zap.Int("pid", pid))
	})
}

// checkService resolves the service through kubectl before anything is
// spawned, so a typo in the service or namespace fails fast with remediation
// context instead of a dead port-forward.
func (m *Manager) checkService(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.opts.KubectlPath,
		"get", "service", m.opts.Service,
		"-n", m.opts.Namespace,
		"-o", "name",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("service lookup: %w", ctxErr)
		}
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("%w: %s/%s: %s", ErrServiceNotFound, m.opts.Namespace, m.opts.Service, detail)
	}
	return nil
}

// claimPort takes the per-port lockfile and probes for a live listener.
// The lock serializes concurrent runs targeting the same port; the dial
// probe catches listeners that are not pulsefire at all.
func (m *Manager) claimPort() error {
	lock := flock.New(lockPath(m.opts.LocalPort))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("port %d lock: %w", m.opts.LocalPort, err)
	}
	if !locked {
		return fmt.Errorf("%w: port %d is locked by another run", ErrPortInUse, m.opts.LocalPort)
	}
	m.lock = lock

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(m.opts.LocalPort))
	if conn, err := net.DialTimeout("tcp", addr, probeTimeout); err == nil {
		conn.Close()
		m.releaseLock()
		return fmt.Errorf("%w: %s already has a listener", ErrPortInUse, addr)
	}
	return nil
}

func (m *Manager) releaseLock() {
	if m.lock == nil {
		return
	}
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("port lock release failed", zap.Error(err))
	}
	m.lock = nil
}

// combinedOutput returns the child's trimmed stdout+stderr. Only valid once
// the process has been reaped.
func (m *Manager) combinedOutput() string {
	return strings.TrimSpace(m.out.String())
}

func lockPath(port int) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("pulsefire-tunnel-%d.lock", port))
}
