// Package core implements the tools shared by the components of the client.
//
// The watcher is how the ballot manager and the transaction tracker publish
// their state changes to the views subscribed to them.
//
// Documentation Last Review: 02.09.2026
//
package core

import (
	"reflect"
	"sync"
)

// Observer is the interface to implement to watch events.
type Observer interface {
	NotifyCallback(event interface{})
}

// ObserverFunc is an adapter to use a function as an observer. Note that a
// function value cannot be removed from a watcher as it is not comparable,
// use a pointer to it instead.
//
// - implements core.Observer
type ObserverFunc func(event interface{})

// NotifyCallback implements core.Observer. It calls the function.
func (fn *ObserverFunc) NotifyCallback(event interface{}) {
	(*fn)(event)
}

// Observable provides primitives to add and remove observers and to notify
// them of new events.
type Observable interface {
	// Add adds the observer to the list of observers that will be notified of
	// new events.
	Add(observer Observer)

	// Remove removes the observer from the list thus stopping it from receiving
	// new events.
	Remove(observer Observer)

	// Notify notifies the observers of a new event.
	Notify(event interface{})
}

// Watcher is an implementation of the Observable interface. Observers are
// notified in the order they subscribed.
//
// - implements core.Observable
type Watcher struct {
	sync.Mutex

	observers []Observer
}

// NewWatcher creates a new empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// Add implements core.Observable. Adding an observer twice has no effect. An
// observer of a type that is not comparable is never recognized as already
// added, and cannot be removed, so such types should be passed by pointer.
func (w *Watcher) Add(observer Observer) {
	w.Lock()
	defer w.Unlock()

	for _, obs := range w.observers {
		if same(obs, observer) {
			return
		}
	}

	w.observers = append(w.observers, observer)
}

// Remove implements core.Observable.
func (w *Watcher) Remove(observer Observer) {
	w.Lock()
	defer w.Unlock()

	for i, obs := range w.observers {
		if same(obs, observer) {
			w.observers = append(w.observers[:i:i], w.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of observers.
func (w *Watcher) Len() int {
	w.Lock()
	defer w.Unlock()

	return len(w.observers)
}

// Notify implements core.Observable. The list of observers is copied before
// the callbacks so that an observer can remove itself while being notified.
func (w *Watcher) Notify(event interface{}) {
	w.Lock()
	observers := append([]Observer{}, w.observers...)
	w.Unlock()

	for _, obs := range observers {
		obs.NotifyCallback(event)
	}
}

// same compares the observers without panicking on dynamic types that are
// not comparable.
func same(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || (ta != nil && !ta.Comparable()) {
		return false
	}

	return a == b
}
