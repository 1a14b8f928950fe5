package session

// Notifier receives the lifecycle events of an asynchronous load. Events of
// a single load are totally ordered: Started, zero or more Progress calls
// with non-decreasing values, Finished, and Error only after Finished(false).
// Implementations must not call back into the session.
type Notifier interface {
	// Started signals that a load has begun.
	Started()
	// Progress reports load progress from 0 to 100.
	Progress(pct uint8)
	// Finished is the terminal event of a load.
	Finished(ok bool)
	// Error carries the failure message of a failed load.
	Error(message string)
}

// NopNotifier discards all lifecycle events.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) Started()       {}
func (NopNotifier) Progress(uint8) {}
func (NopNotifier) Finished(bool)  {}
func (NopNotifier) Error(string)   {}
