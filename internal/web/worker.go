package web

// Worker handles a request that resolved to a registered or dynamic
// worker path. A worker must not mutate header-affecting context fields
// after its first write.
type Worker interface {
	Process(ctx *Context) error
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx *Context) error

// Process calls f.
func (f WorkerFunc) Process(ctx *Context) error { return f(ctx) }
