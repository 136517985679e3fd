package auth

import "sync"

// Notifier is the authentication signal: a single current-user value
// cell with change subscription. The reconciler and the realtime queue
// read the cell instead of each observing auth independently.
type Notifier struct {
	mu       sync.Mutex
	userID   string
	ok       bool
	nextID   int
	handlers map[int]func(userID string, ok bool)
}

// NewNotifier creates a notifier with no current user.
func NewNotifier() *Notifier {
	return &Notifier{handlers: make(map[int]func(string, bool))}
}

// Current returns the current user id, if any.
func (n *Notifier) Current() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.userID, n.ok
}

// SetUser sets the current user and notifies subscribers.
func (n *Notifier) SetUser(userID string) {
	n.update(userID, true)
}

// ClearUser clears the current user and notifies subscribers.
func (n *Notifier) ClearUser() {
	n.update("", false)
}

// OnChange registers handler for auth changes and returns an
// unsubscribe function. The handler is invoked immediately with the
// current value so late subscribers do not miss a signed-in user.
func (n *Notifier) OnChange(handler func(userID string, ok bool)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = handler
	userID, ok := n.userID, n.ok
	n.mu.Unlock()

	handler(userID, ok)

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.handlers, id)
	}
}

func (n *Notifier) update(userID string, ok bool) {
	n.mu.Lock()
	if n.userID == userID && n.ok == ok {
		n.mu.Unlock()
		return
	}
	n.userID, n.ok = userID, ok
	handlers := make([]func(string, bool), 0, len(n.handlers))
	for _, h := range n.handlers {
		handlers = append(handlers, h)
	}
	n.mu.Unlock()

	for _, h := range handlers {
		h(userID, ok)
	}
}
