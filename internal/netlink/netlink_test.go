package netlink

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sunteam/sun/internal/cancel"
)

// testConn returns a Conn backed by one end of a datagram socketpair and
// the peer fd for injecting messages. AF_UNIX datagram sockets support the
// same MSG_PEEK|MSG_TRUNC size discovery as netlink sockets.
func testConn(t *testing.T) (*Conn, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	conn := newConn(fds[0])
	t.Cleanup(func() {
		conn.Close()
		unix.Close(fds[1])
	})
	return conn, fds[1]
}

func send(t *testing.T, fd int, payload []byte) {
	t.Helper()
	if err := unix.Send(fd, payload, 0); err != nil {
		t.Fatal(err)
	}
}

func TestReceiveSmallDatagram(t *testing.T) {
	conn, peer := testConn(t)

	want := []byte("change@/devices/test\x00SUBSYSTEM=power_supply\x00")
	send(t, peer, want)

	got, err := conn.Receive(1000, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("payload = %q, want %q", got, want)
	}
}

func TestReceiveGrowsBufferWithoutTruncation(t *testing.T) {
	conn, peer := testConn(t)
	conn.buf = make([]byte, 8) // force the grow path

	want := bytes.Repeat([]byte("x"), 1000)
	send(t, peer, want)

	got, err := conn.Receive(1000, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %d bytes, want %d intact", len(got), len(want))
	}
	if len(conn.buf) < 1000 {
		t.Fatalf("buffer capacity = %d, should have grown to fit", len(conn.buf))
	}
}

func TestReceiveTransparentToBufferSize(t *testing.T) {
	small, peerA := testConn(t)
	small.buf = make([]byte, 4)
	large, peerB := testConn(t)
	large.buf = make([]byte, 4096)

	payload := bytes.Repeat([]byte("ab"), 300)
	send(t, peerA, payload)
	send(t, peerB, payload)

	fromSmall, err := small.Receive(1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	fromLarge, err := large.Receive(1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(fromSmall, fromLarge) {
		t.Fatal("result must not depend on initial buffer capacity")
	}
}

func TestReceivePreservesOrderAcrossGrowth(t *testing.T) {
	conn, peer := testConn(t)
	conn.buf = make([]byte, 4)

	first := bytes.Repeat([]byte("a"), 500)
	second := []byte("bb")
	send(t, peer, first)
	send(t, peer, second)

	got, err := conn.Receive(1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, first) {
		t.Fatal("first datagram corrupted by buffer growth")
	}

	got, err = conn.Receive(1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("second datagram = %q, want %q", got, second)
	}
}

func TestReceiveTimeoutIsBounded(t *testing.T) {
	conn, _ := testConn(t)

	start := time.Now()
	_, err := conn.Receive(50, nil)
	elapsed := time.Since(start)

	if !errors.Is(err, cancel.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("receive blocked %v, far past the 50ms deadline", elapsed)
	}
}

func TestReceiveNegativeTimeoutBlocksUntilData(t *testing.T) {
	conn, peer := testConn(t)

	want := []byte("late")
	go func() {
		time.Sleep(100 * time.Millisecond)
		unix.Send(peer, want, 0)
	}()

	got, err := conn.Receive(-1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("payload = %q, want %q", got, want)
	}
}

func TestReceiveInterruptedByKick(t *testing.T) {
	conn, _ := testConn(t)

	tok, err := cancel.NewToken()
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Receive(-1, tok)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := tok.Kick(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, cancel.ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("kick did not unblock the receive")
	}
}

func TestValue(t *testing.T) {
	kernel := []byte("change@/devices/platform/bat\x00ACTION=change\x00SUBSYSTEM=power_supply\x00POWER_SUPPLY_STATUS=Charging\x00")
	sysfs := []byte("POWER_SUPPLY_STATUS=Full\nPOWER_SUPPLY_CAPACITY=97\n")

	cases := []struct {
		name    string
		payload []byte
		field   string
		want    string
		ok      bool
	}{
		{"kernel subsystem", kernel, "SUBSYSTEM", "power_supply", true},
		{"kernel status", kernel, "POWER_SUPPLY_STATUS", "Charging", true},
		{"kernel devpath", kernel, "@", "/devices/platform/bat", true},
		{"kernel missing", kernel, "POWER_SUPPLY_CAPACITY", "", false},
		{"sysfs status", sysfs, "POWER_SUPPLY_STATUS", "Full", true},
		{"sysfs capacity", sysfs, "POWER_SUPPLY_CAPACITY", "97", true},
		{"sysfs no header", sysfs, "@", "", false},
		{"unterminated field", []byte("SUBSYSTEM=backlight"), "SUBSYSTEM", "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Value(c.payload, c.field)
			if ok != c.ok || got != c.want {
				t.Errorf("Value(%q) = (%q, %v), want (%q, %v)", c.field, got, ok, c.want, c.ok)
			}
		})
	}
}

func TestDecodeErrorDistinctFromTransportErrors(t *testing.T) {
	err := Rejectf("non %s", "power_supply")

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatal("Rejectf should produce a *DecodeError")
	}
	if errors.Is(err, cancel.ErrTimeout) {
		t.Fatal("DecodeError must not compare equal to ErrTimeout")
	}
	if errors.Is(err, cancel.ErrInterrupted) {
		t.Fatal("DecodeError must not compare equal to ErrInterrupted")
	}
}
