package models

import "sync"

// StatusFeed fans trading status snapshots out to registered handlers.
// Publish is fire-and-forget: there is no replay buffer, so a handler only
// sees snapshots published after it subscribed.
type StatusFeed struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(TradingStatus)
}

func NewStatusFeed() *StatusFeed {
	return &StatusFeed{handlers: make(map[int]func(TradingStatus))}
}

// Subscribe registers handler and returns a function that removes it again.
func (f *StatusFeed) Subscribe(handler func(TradingStatus)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	f.handlers[id] = handler

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

// Publish delivers status to every currently attached handler.
func (f *StatusFeed) Publish(status TradingStatus) {
	f.mu.Lock()
	handlers := make([]func(TradingStatus), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(status)
	}
}
