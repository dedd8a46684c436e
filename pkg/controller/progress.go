package controller

import (
	"sync"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// StageEvent is one lifecycle notification for a single stage within a run:
// either it started, or it reached a terminal status.
type StageEvent struct {
	Stage  models.StageName    `json:"stage"`
	Phase  string              `json:"phase"`
	Status *models.StageStatus `json:"status,omitempty"`
}

// Listener receives StageEvents from a Manager it has subscribed to. Sends
// are non-blocking: a listener that isn't reading fast enough drops events
// rather than stalling the run.
type Listener struct {
	ch chan StageEvent
}

func newListener() *Listener {
	return &Listener{ch: make(chan StageEvent, 32)}
}

// Events returns the channel of published events. It is closed once the
// owning Manager unsubscribes this listener.
func (l *Listener) Events() <-chan StageEvent { return l.ch }

// Manager fans a run's stage-lifecycle events out to every subscriber. It
// has no network transport: a subscriber here is always another goroutine
// in the same process, typically the CLI's progress logger or a test.
type Manager struct {
	mu        sync.Mutex
	listeners map[*Listener]struct{}
}

// NewManager returns an empty Manager ready to accept subscribers.
func NewManager() *Manager {
	return &Manager{listeners: make(map[*Listener]struct{})}
}

// Subscribe registers a new Listener and returns an unsubscribe function the
// caller must call when it stops reading, or the listener's channel leaks.
func (m *Manager) Subscribe() (*Listener, func()) {
	l := newListener()
	m.mu.Lock()
	m.listeners[l] = struct{}{}
	m.mu.Unlock()

	return l, func() {
		m.mu.Lock()
		if _, ok := m.listeners[l]; ok {
			delete(m.listeners, l)
			close(l.ch)
		}
		m.mu.Unlock()
	}
}

func (m *Manager) broadcast(evt StageEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for l := range m.listeners {
		select {
		case l.ch <- evt:
		default:
		}
	}
}

// Publisher is the controller's write-side handle onto a Manager. Splitting
// publish from fan-out keeps the controller's own code free of subscriber
// bookkeeping: it only ever calls PublishStarted/PublishFinished.
type Publisher struct {
	manager *Manager
}

// NewPublisher wraps manager for publishing.
func NewPublisher(manager *Manager) *Publisher {
	return &Publisher{manager: manager}
}

// PublishStarted announces that a stage is about to run. A nil Publisher, or
// one built around a nil Manager, is a no-op so callers that construct a
// Controller by hand (tests, mainly) don't have to wire one up.
func (p *Publisher) PublishStarted(stage models.StageName) {
	if p == nil || p.manager == nil {
		return
	}
	p.manager.broadcast(StageEvent{Stage: stage, Phase: "started"})
}

// PublishFinished announces a stage's terminal status.
func (p *Publisher) PublishFinished(status models.StageStatus) {
	if p == nil || p.manager == nil {
		return
	}
	p.manager.broadcast(StageEvent{Stage: status.Stage, Phase: status.Status, Status: &status})
}
