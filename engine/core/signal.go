package core

import "sync"

// SignalHandler is invoked with the object that emitted the signal.
type SignalHandler func(sender interface{})

type signalBinding struct {
	listener interface{}
	handler  SignalHandler
}

// Signal is a per-object notification delegate. At most one handler may be
// bound per listener object; binding the same listener twice is rejected.
// Emit snapshots the bound handlers before invoking them, so a handler is
// free to Bind or Unbind (on this or any other signal) without deadlocking.
type Signal struct {
	mu       sync.Mutex
	bindings []signalBinding
}

// Bind registers a handler for the given listener object. Returns false if
// the listener is already bound.
func (s *Signal) Bind(listener interface{}, handler SignalHandler) bool {
	if handler == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bindings {
		if s.bindings[i].listener == listener {
			return false
		}
	}
	s.bindings = append(s.bindings, signalBinding{listener: listener, handler: handler})
	return true
}

// Unbind removes the binding for the given listener object. Returns false if
// no matching binding exists, which makes a double-unbind observable but safe.
func (s *Signal) Unbind(listener interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bindings {
		if s.bindings[i].listener == listener {
			s.bindings = append(s.bindings[:i], s.bindings[i+1:]...)
			return true
		}
	}
	return false
}

// Emit invokes every bound handler with the given sender. Handlers run on the
// caller's goroutine; by the time Emit returns every handler has returned.
func (s *Signal) Emit(sender interface{}) {
	s.mu.Lock()
	snapshot := make([]signalBinding, len(s.bindings))
	copy(snapshot, s.bindings)
	s.mu.Unlock()

	for i := range snapshot {
		snapshot[i].handler(sender)
	}
}

// Count returns the number of bound listeners.
func (s *Signal) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}
