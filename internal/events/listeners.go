package events

// Listeners is the change-notification registry embedded in the stores.
// Callbacks run synchronously in registration order. While they run,
// Notifying reports true so the owning store can refuse writes that would
// feed back into another notification.
//
// Listeners is not safe for concurrent use, matching the stores it serves.
type Listeners struct {
	entries   []listener
	nextID    int
	notifying bool
}

type listener struct {
	id int
	fn func()
}

// Add registers fn and returns a func that removes it.
func (l *Listeners) Add(fn func()) func() {
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, listener{id: id, fn: fn})

	return func() {
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every registered listener.
func (l *Listeners) Notify() {
	l.notifying = true
	defer func() { l.notifying = false }()

	// Snapshot so listeners may unsubscribe while being called.
	entries := append([]listener(nil), l.entries...)
	for _, e := range entries {
		e.fn()
	}
}

// Notifying reports whether a notification is in progress.
func (l *Listeners) Notifying() bool {
	return l.notifying
}

// Len returns the number of registered listeners.
func (l *Listeners) Len() int {
	return len(l.entries)
}
