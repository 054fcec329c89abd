package cancel

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func testPipe(t *testing.T) (int, int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestWaitReadable(t *testing.T) {
	r, w := testPipe(t)

	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatal(err)
	}

	if err := Wait(r, 1000, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitTimeoutIsBounded(t *testing.T) {
	r, _ := testPipe(t)

	start := time.Now()
	err := Wait(r, 50, nil)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("wait returned after %v, want >= ~50ms", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("wait blocked for %v, far past the 50ms bound", elapsed)
	}
}

func TestKickInterruptsWait(t *testing.T) {
	r, _ := testPipe(t)

	tok, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Close()

	errCh := make(chan error, 1)
	go func() {
		// Indefinite wait; only the kick can end it.
		errCh <- Wait(r, -1, tok)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := tok.Kick(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("kick did not unblock the wait")
	}
}

func TestKickBeforeWaitIsNotLost(t *testing.T) {
	r, _ := testPipe(t)

	tok, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Close()

	if err := tok.Kick(); err != nil {
		t.Fatal(err)
	}

	if err := Wait(r, -1, tok); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}

	// The kick was drained; the next wait times out normally.
	if err := Wait(r, 50, tok); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want quiet timeout", err)
	}
}

func TestKickWinsOverPendingData(t *testing.T) {
	r, w := testPipe(t)

	tok, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Close()

	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := tok.Kick(); err != nil {
		t.Fatal(err)
	}

	if err := Wait(r, 1000, tok); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}

	// Data survives the interruption.
	if err := Wait(r, 1000, tok); err != nil {
		t.Fatalf("pending data lost after interruption: %v", err)
	}
}

func TestStopInterruptsAndMarks(t *testing.T) {
	r, _ := testPipe(t)

	tok, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Close()

	if tok.Stopped() {
		t.Fatal("fresh token reports stopped")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- Wait(r, -1, tok)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := tok.Stop(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not unblock the wait")
	}

	if !tok.Stopped() {
		t.Fatal("token not marked stopped after Stop")
	}
}

func TestKickedChannelFires(t *testing.T) {
	tok, err := NewToken()
	if err != nil {
		t.Fatal(err)
	}
	defer tok.Close()

	if err := tok.Kick(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-tok.Kicked():
	case <-time.After(time.Second):
		t.Fatal("Kicked channel did not fire")
	}
}
