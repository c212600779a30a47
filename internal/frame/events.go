package frame

import "sync"

// PointerEvent is a pointer position normalized to [-1,1] on both axes,
// +y down (screen rows). Inside is false when the pointer left the surface.
type PointerEvent struct {
	X, Y   float64
	Inside bool
}

// Subscription releases one listener registration.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps a release func.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe is idempotent and nil-safe.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Events fans resize and pointer notifications out to listeners. Listeners
// run on the emitting goroutine, outside the hub's lock.
type Events struct {
	mu      sync.Mutex
	nextID  int
	resize  map[int]func()
	pointer map[int]func(PointerEvent)
}

func NewEvents() *Events {
	return &Events{resize: map[int]func(){}, pointer: map[int]func(PointerEvent){}}
}

func (e *Events) OnResize(fn func()) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.resize[id] = fn
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.resize, id)
		e.mu.Unlock()
	}}
}

func (e *Events) OnPointer(fn func(PointerEvent)) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.pointer[id] = fn
	return &Subscription{cancel: func() {
		e.mu.Lock()
		delete(e.pointer, id)
		e.mu.Unlock()
	}}
}

func (e *Events) EmitResize() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.resize))
	for _, fn := range e.resize {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (e *Events) EmitPointer(ev PointerEvent) {
	e.mu.Lock()
	fns := make([]func(PointerEvent), 0, len(e.pointer))
	for _, fn := range e.pointer {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners is the number of live registrations.
func (e *Events) Listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.resize) + len(e.pointer)
}
