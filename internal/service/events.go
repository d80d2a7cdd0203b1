package service

// Event is a signal delivered to the engine listener.
type Event int

const (
	EventSyncStarted Event = iota + 1
	EventSyncFinished
	// EventSaveCompleted fires only after the remote store confirmed a write.
	EventSaveCompleted
)

func (e Event) String() string {
	switch e {
	case EventSyncStarted:
		return "sync_started"
	case EventSyncFinished:
		return "sync_finished"
	case EventSaveCompleted:
		return "save_completed"
	}
	return "unknown"
}

// Listener receives engine events. It is called synchronously and never
// while the engine holds its state lock.
type Listener func(Event)
