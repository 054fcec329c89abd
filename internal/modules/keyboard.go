package modules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/notify"
)

// niriEvent is the subset of the niri event stream this module cares
// about. Anything else unmarshals with both pointers nil and is ignored.
type niriEvent struct {
	KeyboardLayoutsChanged *struct {
		KeyboardLayouts struct {
			Names      []string `json:"names"`
			CurrentIdx int      `json:"current_idx"`
		} `json:"keyboard_layouts"`
	} `json:"KeyboardLayoutsChanged"`
	KeyboardLayoutSwitched *struct {
		Idx int `json:"idx"`
	} `json:"KeyboardLayoutSwitched"`
}

// dialNiri opens the niri IPC socket and requests the event stream. The
// write side is shut down immediately: the stream is read-only after the
// request.
func dialNiri() (int, error) {
	path := os.Getenv("NIRI_SOCKET")
	if path == "" {
		return -1, errors.New("NIRI_SOCKET not set")
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("niri socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("niri connect %s: %w", path, err)
	}
	if _, err := unix.Write(fd, []byte("\"EventStream\"\n")); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("niri request: %w", err)
	}
	if err := unix.Shutdown(fd, unix.SHUT_WR); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("niri shutdown: %w", err)
	}
	return fd, nil
}

// lineReader reads newline-delimited messages from a raw descriptor. It
// stays on the descriptor level so the wait can include the cancellation
// token.
type lineReader struct {
	fd  int
	buf []byte
}

func (r *lineReader) ReadLine(tok *cancel.Token) (string, error) {
	for {
		if i := bytes.IndexByte(r.buf, '\n'); i >= 0 {
			line := string(r.buf[:i])
			r.buf = append(r.buf[:0], r.buf[i+1:]...)
			return line, nil
		}

		if err := cancel.Wait(r.fd, -1, tok); err != nil {
			return "", err
		}

		var tmp [4096]byte
		n, err := unix.Read(r.fd, tmp[:])
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return "", fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			return "", errors.New("event stream closed")
		}
		r.buf = append(r.buf, tmp[:n]...)
	}
}

// Keyboard returns the keyboard layout monitor worker. It follows the
// niri compositor's event stream and notifies the layout name on switch.
func Keyboard(d Deps) func(*cancel.Token) error {
	return func(tok *cancel.Token) error {
		fd, err := dialNiri()
		if err != nil {
			return err
		}
		defer unix.Close(fd)

		sender := d.NewSender()
		reader := &lineReader{fd: fd}
		var layouts []string
		acked := false

		for {
			if tok.Stopped() {
				return nil
			}
			cfg, err := d.Store.Current()
			if err != nil {
				return err
			}
			kc := cfg.Keyboard

			line, err := reader.ReadLine(tok)
			if err != nil {
				if errors.Is(err, cancel.ErrInterrupted) {
					continue
				}
				return fmt.Errorf("niri: %w", err)
			}

			// The first line acknowledges the EventStream request.
			if !acked {
				acked = true
				continue
			}

			var ev niriEvent
			if json.Unmarshal([]byte(line), &ev) != nil {
				continue
			}

			switch {
			case ev.KeyboardLayoutsChanged != nil:
				layouts = ev.KeyboardLayoutsChanged.KeyboardLayouts.Names

			case ev.KeyboardLayoutSwitched != nil:
				idx := ev.KeyboardLayoutSwitched.Idx
				if idx < 0 || idx >= len(layouts) {
					d.Logger.Warn("layout index out of range", "idx", idx, "layouts", len(layouts))
					continue
				}
				showErr := sender.Show(notify.Notification{
					Module:    "keyboard",
					Summary:   "Layout",
					Body:      layouts[idx],
					Icon:      kc.IconPath + kc.Icon,
					Urgency:   notify.UrgencyNormal,
					TimeoutMs: 2500,
				})
				if showErr != nil {
					d.Logger.Warn("layout notification failed", "error", showErr)
				}
			}
		}
	}
}
