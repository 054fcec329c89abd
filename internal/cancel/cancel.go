// Package cancel implements per-worker cancellation for threads blocked in
// kernel reads, plus the bounded readiness wait the blocking paths share.
//
// A Token wraps an eventfd. Blocking reads go through Wait, which polls the
// watched descriptor together with the token's descriptor; Kick makes any
// such poll return immediately with ErrInterrupted. The interruption carries
// no data and never terminates the worker: the worker's own loop decides
// what to do after being unblocked, normally by re-reading the config
// snapshot store. For code blocked in a channel select instead of a poll,
// Kicked exposes the same signal as a channel.
package cancel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ErrTimeout reports that a bounded wait elapsed with nothing ready. Not a
// fault: callers use it as a regular polling tick.
var ErrTimeout = errors.New("timed out")

// ErrInterrupted reports that a blocking wait was interrupted, either by a
// Kick or by signal delivery (EINTR). Always retryable.
var ErrInterrupted = errors.New("interrupted")

// Token is the cancellation capability for one worker. The supervisor owns
// it: Kick on reconfiguration, Stop when the worker must exit, Close after
// the worker has been joined.
//
// A kick is observable through both the eventfd and the Kicked channel;
// whichever side the worker is not blocked on may fire spuriously on a
// later wait. That is harmless under the cooperative checkpoint model —
// the worker just re-reads its configuration.
type Token struct {
	fd      int
	ch      chan struct{}
	stopped atomic.Bool
}

// NewToken creates a token backed by a non-blocking eventfd.
func NewToken() (*Token, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	return &Token{fd: fd, ch: make(chan struct{}, 1)}, nil
}

// Kick unblocks the worker's current (or next) wait. Kicks coalesce: the
// signal stays pending until the worker drains it, so a kick delivered
// while the worker is between waits is not lost.
func (t *Token) Kick() error {
	select {
	case t.ch <- struct{}{}:
	default:
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(t.fd, buf[:])
	if err == unix.EAGAIN {
		// Counter saturated; the pending kick is enough.
		return nil
	}
	return err
}

// Kicked returns a channel that receives after a Kick, for workers blocked
// in a select rather than a poll.
func (t *Token) Kicked() <-chan struct{} {
	return t.ch
}

// Stop marks the token stopped and kicks the worker. After Stop, the worker
// must exit at its next checkpoint instead of re-reading configuration.
func (t *Token) Stop() error {
	t.stopped.Store(true)
	return t.Kick()
}

// Stopped reports whether Stop has been called.
func (t *Token) Stopped() bool {
	return t.stopped.Load()
}

// drain resets the eventfd counter so the next Wait blocks again.
func (t *Token) drain() {
	var buf [8]byte
	_, _ = unix.Read(t.fd, buf[:])
}

// Close releases the eventfd. Only call after the worker has exited.
func (t *Token) Close() error {
	return unix.Close(t.fd)
}

// Wait blocks until fd is readable, the timeout elapses, or the token is
// kicked. timeoutMsec < 0 waits indefinitely. It returns nil when fd is
// readable, ErrTimeout when the bound elapsed, and ErrInterrupted when the
// token fired or the poll was cut short by a signal. tok may be nil for an
// uncancellable wait.
func Wait(fd int, timeoutMsec int, tok *Token) error {
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	if tok != nil {
		pfds = append(pfds, unix.PollFd{Fd: int32(tok.fd), Events: unix.POLLIN})
	}

	n, err := unix.Poll(pfds, timeoutMsec)
	if err != nil {
		if err == unix.EINTR {
			return ErrInterrupted
		}
		return fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return ErrTimeout
	}

	// A kick wins over pending data; the data stays queued for the next read.
	if tok != nil && pfds[1].Revents&unix.POLLIN != 0 {
		tok.drain()
		return ErrInterrupted
	}

	if pfds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
		return ErrTimeout
	}
	return nil
}
