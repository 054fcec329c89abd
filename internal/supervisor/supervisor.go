// Package supervisor runs the sun control loop: it owns the worker
// registry, applies config snapshots to it, and escalates module faults.
package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/sunteam/sun/internal/cancel"
	"github.com/sunteam/sun/internal/config"
	"github.com/sunteam/sun/internal/events"
	"github.com/sunteam/sun/internal/notify"
)

// Worker is one monitor's blocking loop. It runs until its token is
// stopped (return nil) or until a fatal error. A non-nil return is a
// module fault and brings the daemon down.
type Worker func(tok *cancel.Token) error

// ControlMessage is one input to the control loop. Exactly one of the
// concrete types below.
type ControlMessage interface{ controlMessage() }

// ConfigReloaded carries a freshly parsed snapshot from the watcher.
type ConfigReloaded struct {
	Snapshot *config.Config
	Warnings []string
}

// ConfigReloadFailed reports that the config file changed but could not be
// parsed or validated. The previous snapshot stays authoritative.
type ConfigReloadFailed struct {
	Err error
}

// ModuleFault reports the death of a worker, by error or panic. Fatal to
// the daemon.
type ModuleFault struct {
	Module     Module
	Diagnostic string
}

func (ConfigReloaded) controlMessage()     {}
func (ConfigReloadFailed) controlMessage() {}
func (ModuleFault) controlMessage()        {}

// workerHandle tracks one running worker. At most one per Module.
type workerHandle struct {
	tok  *cancel.Token
	done chan struct{}
}

// Supervisor owns the registry and the control channel. The registry is
// touched only from the Run goroutine.
type Supervisor struct {
	store    *config.Store
	bus      *events.Bus
	notifier notify.Sender
	logger   *slog.Logger
	workers  map[Module]Worker

	registry map[Module]*workerHandle
	ctrl     chan ControlMessage
	loopDone chan struct{}
	stopCh   chan struct{}

	// exit is swappable for tests; defaults to os.Exit.
	exit func(int)
}

// Options configures a Supervisor.
type Options struct {
	Store    *config.Store
	Bus      *events.Bus
	Notifier notify.Sender
	Logger   *slog.Logger
	Workers  map[Module]Worker
}

// New creates a supervisor. The control channel is unbuffered so that
// senders (watcher forwarder, faulting workers) block until the loop is
// ready, which serializes reloads.
func New(opts Options) *Supervisor {
	return &Supervisor{
		store:    opts.Store,
		bus:      opts.Bus,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		workers:  opts.Workers,
		registry: make(map[Module]*workerHandle),
		ctrl:     make(chan ControlMessage),
		loopDone: make(chan struct{}),
		stopCh:   make(chan struct{}),
		exit:     os.Exit,
	}
}

// Ctrl returns the control channel for external senders (the config watch
// forwarder). Sends block until the loop picks them up.
func (s *Supervisor) Ctrl() chan<- ControlMessage { return s.ctrl }

// Run applies the initially published snapshot, then consumes control
// messages until a module fault or a Shutdown. Returns a non-nil error on
// fault, nil on clean shutdown.
func (s *Supervisor) Run() error {
	defer close(s.loopDone)

	cfg, err := s.store.Current()
	if err != nil {
		return fmt.Errorf("initial config: %w", err)
	}
	s.apply(cfg)

	for {
		select {
		case msg := <-s.ctrl:
			switch m := msg.(type) {
			case ConfigReloaded:
				s.handleReload(m)

			case ConfigReloadFailed:
				s.handleReloadFailed(m.Err)

			case ModuleFault:
				s.logger.Error("module fault",
					"module", m.Module.String(),
					"diagnostic", m.Diagnostic,
				)
				s.stopAll()
				return fmt.Errorf("module %s faulted: %s", m.Module, firstLine(m.Diagnostic))
			}

		case <-s.stopCh:
			s.logger.Info("shutting down")
			s.stopAll()
			return nil
		}
	}
}

// Shutdown asks the control loop to stop all workers and return. Safe to
// call more than once and from any goroutine.
func (s *Supervisor) Shutdown() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// handleReload publishes the snapshot before diffing, so that the store
// never runs ahead of the registry. A worker kicked by a later disable can
// then only ever observe a snapshot this loop has already acted on.
func (s *Supervisor) handleReload(m ConfigReloaded) {
	for _, w := range m.Warnings {
		s.logger.Warn("config warning", "warning", w)
	}
	s.store.Publish(m.Snapshot)
	s.bus.Publish(events.Event{Type: events.ConfigReloaded})
	s.logger.Info("config reloaded")
	s.apply(m.Snapshot)
}

func (s *Supervisor) handleReloadFailed(err error) {
	s.logger.Error("config reload failed", "error", err)
	s.bus.Publish(events.Event{Type: events.ConfigReloadFailed})

	cfg, cerr := s.store.Current()
	icon := ""
	if cerr == nil {
		icon = cfg.ErrorIcon
	}
	s.notifyBestEffort(notify.Notification{
		Summary:   "sun: config reload failed",
		Body:      err.Error(),
		Icon:      icon,
		Urgency:   notify.UrgencyCritical,
		TimeoutMs: 0,
	})
}

// apply reconciles the registry against one snapshot, module by module in
// fixed order. Running and wanted: kick, so the worker re-reads the store.
// Running and unwanted: stop, join, remove. Not running and wanted: spawn.
func (s *Supervisor) apply(cfg *config.Config) {
	for _, m := range applyOrder {
		h, running := s.registry[m]
		want := m.enabled(cfg)

		switch {
		case running && want:
			if err := h.tok.Kick(); err != nil {
				s.logger.Error("kick failed", "module", m.String(), "error", err)
			}

		case running && !want:
			s.logger.Info("stopping worker", "module", m.String())
			if err := h.tok.Stop(); err != nil {
				s.logger.Error("stop kick failed", "module", m.String(), "error", err)
			}
			<-h.done
			h.tok.Close()
			delete(s.registry, m)

		case !running && want:
			s.spawn(m, cfg)
		}
	}
}

func (s *Supervisor) spawn(m Module, cfg *config.Config) {
	w, ok := s.workers[m]
	if !ok {
		return
	}

	tok, err := cancel.NewToken()
	if err != nil {
		s.logger.Error("spawn failed", "module", m.String(), "error", err)
		return
	}

	h := &workerHandle{tok: tok, done: make(chan struct{})}
	s.registry[m] = h

	s.logger.Info("starting worker", "module", m.String())
	s.bus.Publish(events.Event{
		Type: events.WorkerStarted,
		Data: map[string]string{"module": m.String()},
	})

	go s.runWorker(m, w, h)
}

// runWorker is the per-worker fault barrier. It closes done before
// reporting a fault: the control loop may be blocked joining this very
// worker while handling a reload, and the fault send would deadlock
// against that join otherwise.
func (s *Supervisor) runWorker(m Module, w Worker, h *workerHandle) {
	var diag string
	func() {
		defer func() {
			if r := recover(); r != nil {
				diag = fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
			}
		}()
		if err := w(h.tok); err != nil {
			diag = err.Error()
		}
	}()

	s.bus.Publish(events.Event{
		Type: events.WorkerStopped,
		Data: map[string]string{"module": m.String()},
	})

	close(h.done)

	if diag != "" {
		s.fault(m, diag)
	}
}

// fault delivers a ModuleFault to the control loop. If the loop has
// already returned there is nobody left to escalate to, so the process
// exits with a distinguished status rather than losing the fault.
func (s *Supervisor) fault(m Module, diag string) {
	s.bus.Publish(events.Event{Type: events.ModuleFault, Data: map[string]string{"module": m.String()}})

	cfg, err := s.store.Current()
	icon := ""
	if err == nil {
		icon = cfg.ErrorIcon
	}
	s.notifyBestEffort(notify.Notification{
		Module:    m.String(),
		Summary:   fmt.Sprintf("sun: %s monitor died", m),
		Body:      firstLine(diag),
		Icon:      icon,
		Urgency:   notify.UrgencyCritical,
		TimeoutMs: 0,
	})

	select {
	case s.ctrl <- ModuleFault{Module: m, Diagnostic: diag}:
	case <-s.loopDone:
		s.logger.Error("module fault after control loop exit",
			"module", m.String(),
			"diagnostic", diag,
		)
		s.exit(255)
	}
}

// stopAll stops and joins every registered worker, in apply order.
func (s *Supervisor) stopAll() {
	for _, m := range applyOrder {
		h, ok := s.registry[m]
		if !ok {
			continue
		}
		if err := h.tok.Stop(); err != nil {
			s.logger.Error("stop kick failed", "module", m.String(), "error", err)
		}
		<-h.done
		h.tok.Close()
		delete(s.registry, m)
	}
}

func (s *Supervisor) notifyBestEffort(n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Show(n); err != nil {
		s.logger.Warn("notification failed", "error", err)
	}
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
