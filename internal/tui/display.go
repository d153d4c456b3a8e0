package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tminus/internal/models"
)

type (
	textMsg   string
	stateMsg  models.SessionState
	errorMsg  string
	statusMsg string
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge turns session display calls into program messages. Calls are
// queued and forwarded in order by a single goroutine so the session never
// waits on the event loop.
type Bridge struct {
	queue chan tea.Msg
	once  sync.Once
	done  chan struct{}
}

// NewBridge returns a bridge with room for size pending messages.
func NewBridge(size int) *Bridge {
	if size <= 0 {
		size = 64
	}
	return &Bridge{
		queue: make(chan tea.Msg, size),
		done:  make(chan struct{}),
	}
}

// Attach starts forwarding to p. Messages queued before Attach are kept.
func (b *Bridge) Attach(p Sender) {
	go func() {
		defer close(b.done)
		for msg := range b.queue {
			p.Send(msg)
		}
	}()
}

// Close stops forwarding once the queue drains. It must only be called after
// the session feeding the bridge is closed.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.queue) })
}

// Done is closed when every queued message has been forwarded.
func (b *Bridge) Done() <-chan struct{} { return b.done }

func (b *Bridge) SetText(text string)                { b.queue <- textMsg(text) }
func (b *Bridge) SetState(state models.SessionState) { b.queue <- stateMsg(state) }
func (b *Bridge) ShowError(msg string)               { b.queue <- errorMsg(msg) }
func (b *Bridge) ShowStatus(msg string)              { b.queue <- statusMsg(msg) }
