package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatcher_Add(t *testing.T) {
	watcher := NewWatcher()

	watcher.Add(newFakeObserver())
	require.Equal(t, 1, watcher.Len())

	obs := newFakeObserver()
	watcher.Add(obs)
	require.Equal(t, 2, watcher.Len())

	watcher.Add(obs)
	require.Equal(t, 2, watcher.Len())
}

func TestWatcher_Remove(t *testing.T) {
	watcher := NewWatcher()
	watcher.Add(newFakeObserver())

	obs := newFakeObserver()
	watcher.Add(obs)
	require.Equal(t, 2, watcher.Len())

	watcher.Remove(obs)
	require.Equal(t, 1, watcher.Len())

	watcher.Remove(obs)
	require.Equal(t, 1, watcher.Len())
}

func TestWatcher_NotComparable(t *testing.T) {
	watcher := NewWatcher()

	obs := sliceObserver{events: []interface{}{}}

	require.NotPanics(t, func() {
		watcher.Add(obs)
		watcher.Add(obs)
		watcher.Remove(obs)
	})

	require.Equal(t, 2, watcher.Len())
}

func TestWatcher_Notify(t *testing.T) {
	watcher := NewWatcher()

	obs := newFakeObserver()
	watcher.Add(obs)

	watcher.Notify("event")
	require.Equal(t, "event", <-obs.ch)
}

func TestWatcher_NotifyRemoveSelf(t *testing.T) {
	watcher := NewWatcher()

	calls := 0

	var fn ObserverFunc
	fn = func(event interface{}) {
		calls++
		watcher.Remove(&fn)
	}

	watcher.Add(&fn)

	watcher.Notify(struct{}{})
	watcher.Notify(struct{}{})

	require.Equal(t, 1, calls)
	require.Equal(t, 0, watcher.Len())
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeObserver struct {
	ch chan interface{}
}

func (o *fakeObserver) NotifyCallback(evt interface{}) {
	o.ch <- evt
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{
		ch: make(chan interface{}, 1),
	}
}

type sliceObserver struct {
	events []interface{}
}

func (o sliceObserver) NotifyCallback(evt interface{}) {}
