// Package panel owns the lifecycle of the single preview panel.
package panel

import (
	"errors"

	"go-markdown-snippets/internal/contracts"
	"go-markdown-snippets/internal/dispose"
)

// ErrClosed is returned when an operation needs an open panel.
var ErrClosed = errors.New("panel is closed")

// View is a live panel: something that displays rendered snippets and
// talks back through messages.
type View interface {
	URL() string
	Post(msg contracts.Outbound) error
	SetMessageHandler(fn func(contracts.Inbound))
	Done() <-chan struct{}
	Stop() error
}

// Factory creates and starts a new view.
type Factory func() (View, error)

// Hooks are invoked for the open view. Both run on goroutines owned by the
// view and should hand work off rather than block.
type Hooks struct {
	OnMessage func(contracts.Inbound)
	// OnClosed is called when a view stops on its own. It receives the
	// view so stale notifications can be told apart from the current one.
	OnClosed func(View)
}

// Manager holds at most one open view.
type Manager struct {
	factory Factory
	hooks   Hooks

	current View
	subs    dispose.List
}

func NewManager(factory Factory, hooks Hooks) *Manager {
	return &Manager{factory: factory, hooks: hooks}
}

// Open returns the current view, creating it when the panel is closed.
// created reports whether a new view was made; otherwise the existing
// view should just be revealed.
func (m *Manager) Open() (v View, created bool, err error) {
	if m.current != nil {
		return m.current, false, nil
	}

	v, err = m.factory()
	if err != nil {
		return nil, false, err
	}

	if m.hooks.OnMessage != nil {
		v.SetMessageHandler(m.hooks.OnMessage)
		m.subs.Add(dispose.Func(func() { v.SetMessageHandler(nil) }))
	}

	if m.hooks.OnClosed != nil {
		stop := make(chan struct{})
		go func() {
			select {
			case <-v.Done():
				// Dispose releases stop before it stops the view.
				select {
				case <-stop:
					return
				default:
				}
				m.hooks.OnClosed(v)
			case <-stop:
			}
		}()
		m.subs.Add(dispose.Func(func() { close(stop) }))
	}

	m.current = v
	return v, true, nil
}

// Current returns the open view, or nil.
func (m *Manager) Current() View {
	return m.current
}

// IsOpen reports whether a view exists.
func (m *Manager) IsOpen() bool {
	return m.current != nil
}

// Post sends msg to the open view. It is a no-op when the panel is closed.
func (m *Manager) Post(msg contracts.Outbound) error {
	if m.current == nil {
		return nil
	}
	return m.current.Post(msg)
}

// Forget drops v without stopping it, for views that already stopped.
// Notifications about a view that is no longer current are ignored.
func (m *Manager) Forget(v View) {
	if m.current == nil || m.current != v {
		return
	}
	m.subs.Dispose()
	m.current = nil
}

// Dispose releases every subscription and stops the open view.
func (m *Manager) Dispose() error {
	if m.current == nil {
		return nil
	}
	v := m.current
	m.current = nil
	m.subs.Dispose()
	return v.Stop()
}
