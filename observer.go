package cinject

import "time"

// Observer is notified of resolutions. Implementations must be safe for
// concurrent use.
type Observer interface {
	// OnResolved is called after a successful call to Resolve.
	OnResolved(key Key, duration time.Duration)

	// OnError is called when a call to Resolve fails.
	OnError(key Key, err error)

	// OnConstructed is called when a type is resolved on the fly and its
	// instance is cached on the root container. It is called for nested
	// dependencies too.
	OnConstructed(key Key)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnResolved(Key, time.Duration) {}
func (NopObserver) OnError(Key, error)            {}
func (NopObserver) OnConstructed(Key)             {}
