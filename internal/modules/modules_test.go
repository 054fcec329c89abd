package modules

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/config"
	"github.com/sunteam/sun/internal/notify"
	"github.com/sunteam/sun/internal/testutil"
)

// recordingSender captures notifications for assertions.
type recordingSender struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (r *recordingSender) Show(n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

func (r *recordingSender) last() notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[len(r.notes)-1]
}

func (r *recordingSender) at(i int) notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[i]
}

// testDeps builds worker deps with a defaulted config snapshot and a
// shared recording sender.
func testDeps(t *testing.T) (Deps, *recordingSender) {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	store := config.NewStore()
	store.Publish(cfg)

	sender := &recordingSender{}
	d := Deps{
		Store:     store,
		NewSender: func() notify.Sender { return sender },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return d, sender
}

func newTestToken(t *testing.T) *cancel.Token {
	t.Helper()
	tok, err := cancel.NewToken()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tok.Close() })
	return tok
}

// waitNotification polls until at least n notifications were shown.
func waitNotification(t *testing.T, sender *recordingSender, n int) {
	t.Helper()
	testutil.WaitFor(t, func() bool { return sender.count() >= n }, 5*time.Second)
}
