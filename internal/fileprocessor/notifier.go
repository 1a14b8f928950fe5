package fileprocessor

import (
	"sync"

	"github.com/retroenv/retrogolib/log"

	"github.com/retroenv/armdisasm/internal/session"
)

var _ session.Notifier = (*loadNotifier)(nil)

// loadNotifier logs load lifecycle events and signals the load outcome.
type loadNotifier struct {
	logger *log.Logger

	mu      sync.Mutex
	failure string

	done chan bool
}

func newLoadNotifier(logger *log.Logger) *loadNotifier {
	return &loadNotifier{
		logger: logger,
		done:   make(chan bool, 1),
	}
}

func (n *loadNotifier) Started() {
	n.logger.Debug("Load started")
}

func (n *loadNotifier) Progress(pct uint8) {
	n.logger.Debug("Load progress", log.Uint8("percent", pct))
}

func (n *loadNotifier) Finished(ok bool) {
	if ok {
		n.logger.Info("File loaded")
		n.done <- true
	}
}

func (n *loadNotifier) Error(message string) {
	n.mu.Lock()
	n.failure = message
	n.mu.Unlock()

	n.done <- false
}

func (n *loadNotifier) message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failure
}
