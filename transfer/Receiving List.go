/*
File Name:  Receiving List.go

A single process-wide ordered list of currently-receiving filenames,
used only to render progress/status output. Guarded by a mutex held
only across append/remove/snapshot; never held across connection I/O.
*/

package transfer

import "sync"

// ReceivingList tracks the filenames currently being written by any Receiver in this process.
type ReceivingList struct {
	mutex     sync.Mutex
	files     []string
	listeners []chan []string
}

// NewReceivingList returns an empty list.
func NewReceivingList() *ReceivingList {
	return &ReceivingList{}
}

// Add registers filename as in-flight and notifies any subscribers.
func (r *ReceivingList) Add(filename string) {
	r.mutex.Lock()
	r.files = append(r.files, filename)
	snapshot := r.snapshotLocked()
	r.mutex.Unlock()
	r.notify(snapshot)
}

// Remove unregisters filename and notifies any subscribers.
func (r *ReceivingList) Remove(filename string) {
	r.mutex.Lock()
	out := r.files[:0]
	for _, f := range r.files {
		if f != filename {
			out = append(out, f)
		}
	}
	r.files = out
	snapshot := r.snapshotLocked()
	r.mutex.Unlock()
	r.notify(snapshot)
}

// Snapshot returns a copy of the currently in-flight filenames.
func (r *ReceivingList) Snapshot() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.snapshotLocked()
}

func (r *ReceivingList) snapshotLocked() []string {
	out := make([]string, len(r.files))
	copy(out, r.files)
	return out
}

// Subscribe returns a channel that receives a snapshot every time the list changes, and an
// unsubscribe func the caller must invoke when done reading (e.g. when its websocket closes) so
// the listener slot doesn't leak. The channel is buffered-friendly: slow consumers may miss
// intermediate states but always see the latest on their next read.
func (r *ReceivingList) Subscribe() (ch <-chan []string, unsubscribe func()) {
	c := make(chan []string, 8)
	r.mutex.Lock()
	r.listeners = append(r.listeners, c)
	r.mutex.Unlock()

	return c, func() {
		r.mutex.Lock()
		defer r.mutex.Unlock()
		for i, l := range r.listeners {
			if l == c {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				break
			}
		}
	}
}

func (r *ReceivingList) notify(snapshot []string) {
	r.mutex.Lock()
	listeners := append([]chan []string(nil), r.listeners...)
	r.mutex.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- snapshot:
		default:
			// Buffer full: drop the oldest queued snapshot so the newest one still gets in.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
