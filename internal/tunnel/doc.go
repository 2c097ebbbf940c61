// Package tunnel supervises an optional kubectl port-forward that makes a
// cluster-internal service reachable on a local port.
//
// [Manager.Open] verifies the remote service exists, claims the local port
// with a lockfile plus a dial probe, starts the port-forward, and polls
// until the port accepts connections. All setup failures are fatal and map
// to one of [ErrServiceNotFound], [ErrPortInUse], or [ErrTunnelFailed].
//
// [Manager.Close] is the guaranteed-teardown half: signal the child, wait
// out a short grace period, kill if needed, release the lock. It never
// fails and runs at most once, so callers defer it unconditionally and the
// tunnel dies on every exit path, interrupts included.
package tunnel
