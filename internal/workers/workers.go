// Package workers provides the built-in web workers and the dynamic
// worker registry backing /ext/ paths.
package workers

import "nickandperla.net/smartserv/internal/web"

// registry maps worker identifiers, as used in the workers configuration
// and in /ext/ paths, to factories. /ext/ resolution creates a fresh
// instance per request; workers registered on a fixed path are singletons
// created at startup.
var registry = map[string]func() web.Worker{
	"EchoParams":   func() web.Worker { return &EchoParams{} },
	"HelloWorker":  func() web.Worker { return &HelloWorker{} },
	"CircleWorker": func() web.Worker { return &CircleWorker{} },
	"VisitsWorker": func() web.Worker { return &VisitsWorker{} },
	"GuessWorker":  func() web.Worker { return &GuessWorker{} },
}

// New creates a worker by identifier, or returns nil for an unknown one.
func New(name string) web.Worker {
	factory, ok := registry[name]
	if !ok {
		return nil
	}
	return factory()
}

// Register adds a worker factory under an identifier.
func Register(name string, factory func() web.Worker) {
	registry[name] = factory
}
