// Package netlink delivers kernel uevent datagrams from a
// NETLINK_KOBJECT_UEVENT socket.
//
// Receives are two-phase: a non-consuming MSG_PEEK|MSG_TRUNC read discovers
// the true datagram size so the reusable buffer can grow before a consuming
// read drains the message. A datagram is therefore never truncated, and the
// peek never loses or reorders pending data.
package netlink

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/sunteam/sun/internal/cancel"
)

// DecodeError reports that a datagram was not for the decoding module
// (wrong subsystem, malformed payload). Always ignorable by the caller's
// loop; never a transport fault.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "uevent decode: " + e.Reason
}

// Rejectf builds a DecodeError.
func Rejectf(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

const initialBufSize = 256

// Conn is a kernel uevent socket. The receive buffer is reused across
// receives; its capacity only grows. Returned payloads alias the buffer and
// are valid until the next Receive. Not safe for concurrent use: each
// worker owns its Conn.
type Conn struct {
	fd  int
	buf []byte
}

// Dial opens a uevent socket subscribed to the kernel broadcast group.
func Dial() (*Conn, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("netlink socket: %w", err)
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink bind: %w", err)
	}

	return newConn(fd), nil
}

// newConn wraps an already-open datagram socket. Tests use it with a
// socketpair in place of a real netlink socket.
func newConn(fd int) *Conn {
	return &Conn{fd: fd, buf: make([]byte, initialBufSize)}
}

// Close releases the socket.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}

// Receive returns the next complete datagram.
//
// timeoutMsec >= 0 bounds the wait: cancel.ErrTimeout if nothing arrives in
// time. timeoutMsec < 0 blocks until data arrives, though a token Kick
// still interrupts the wait with cancel.ErrInterrupted. Any other error is
// an OS fault the caller should treat as fatal.
func (c *Conn) Receive(timeoutMsec int, tok *cancel.Token) ([]byte, error) {
	if err := cancel.Wait(c.fd, timeoutMsec, tok); err != nil {
		return nil, err
	}

	// Discover the full size without consuming, growing as needed.
	for {
		n, _, err := unix.Recvfrom(c.fd, c.buf, unix.MSG_PEEK|unix.MSG_TRUNC)
		if err != nil {
			if err == unix.EINTR {
				return nil, cancel.ErrInterrupted
			}
			return nil, fmt.Errorf("netlink peek: %w", err)
		}
		if n <= len(c.buf) {
			break
		}
		grown := len(c.buf) * 2
		if n > grown {
			grown = n
		}
		c.buf = make([]byte, grown)
	}

	// Drain exactly one datagram.
	n, _, err := unix.Recvfrom(c.fd, c.buf, unix.MSG_DONTWAIT)
	if err != nil {
		switch err {
		case unix.EINTR:
			return nil, cancel.ErrInterrupted
		case unix.EAGAIN:
			return nil, cancel.ErrTimeout
		default:
			return nil, fmt.Errorf("netlink read: %w", err)
		}
	}

	return c.buf[:n], nil
}
