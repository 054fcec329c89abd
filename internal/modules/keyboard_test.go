package modules

import (
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestNiriEventParsing(t *testing.T) {
	var ev niriEvent
	line := `{"KeyboardLayoutsChanged":{"keyboard_layouts":{"names":["English (US)","Russian"],"current_idx":0}}}`
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.KeyboardLayoutsChanged == nil {
		t.Fatal("KeyboardLayoutsChanged not decoded")
	}
	if got := ev.KeyboardLayoutsChanged.KeyboardLayouts.Names; len(got) != 2 || got[1] != "Russian" {
		t.Errorf("names = %v", got)
	}

	ev = niriEvent{}
	if err := json.Unmarshal([]byte(`{"KeyboardLayoutSwitched":{"idx":1}}`), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.KeyboardLayoutSwitched == nil || ev.KeyboardLayoutSwitched.Idx != 1 {
		t.Errorf("switch event = %+v", ev.KeyboardLayoutSwitched)
	}

	// Foreign events decode to the zero value and are ignored.
	ev = niriEvent{}
	if err := json.Unmarshal([]byte(`{"WindowsChanged":{"windows":[]}}`), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.KeyboardLayoutsChanged != nil || ev.KeyboardLayoutSwitched != nil {
		t.Error("foreign event decoded as keyboard event")
	}
}

func TestLineReaderReassemblesSplitLines(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	r := &lineReader{fd: fds[0]}

	if _, err := unix.Write(fds[1], []byte("first li")); err != nil {
		t.Fatal(err)
	}
	if _, err := unix.Write(fds[1], []byte("ne\nsecond line\n")); err != nil {
		t.Fatal(err)
	}

	line, err := r.ReadLine(nil)
	if err != nil {
		t.Fatal(err)
	}
	if line != "first line" {
		t.Errorf("line = %q", line)
	}

	line, err = r.ReadLine(nil)
	if err != nil {
		t.Fatal(err)
	}
	if line != "second line" {
		t.Errorf("line = %q", line)
	}
}

func TestLineReaderReportsClosedStream(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])

	unix.Close(fds[1])

	r := &lineReader{fd: fds[0]}
	if _, err := r.ReadLine(nil); err == nil {
		t.Fatal("closed stream should be an error")
	}
}

func TestKeyboardWorkerNotifiesOnLayoutSwitch(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "niri.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	t.Setenv("NIRI_SOCKET", sockPath)

	// Fake compositor: ack the request, announce layouts, switch once.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte(`{"Ok":{"Handled":null}}` + "\n"))
		conn.Write([]byte(`{"KeyboardLayoutsChanged":{"keyboard_layouts":{"names":["English (US)","Russian"],"current_idx":0}}}` + "\n"))
		conn.Write([]byte(`{"KeyboardLayoutSwitched":{"idx":1}}` + "\n"))
		time.Sleep(10 * time.Second) // keep the stream open until the test ends
	}()

	d, sender := testDeps(t)
	tok := newTestToken(t)

	done := make(chan error, 1)
	go func() { done <- Keyboard(d)(tok) }()

	waitNotification(t, sender, 1)
	n := sender.last()
	if n.Summary != "Layout" {
		t.Errorf("summary = %q", n.Summary)
	}
	if n.Body != "Russian" {
		t.Errorf("body = %q, want Russian", n.Body)
	}

	if err := tok.Stop(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("worker returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestKeyboardWorkerFailsWithoutSocket(t *testing.T) {
	t.Setenv("NIRI_SOCKET", "")

	d, _ := testDeps(t)
	tok := newTestToken(t)

	if err := Keyboard(d)(tok); err == nil {
		t.Fatal("expected an error without NIRI_SOCKET")
	}
}
