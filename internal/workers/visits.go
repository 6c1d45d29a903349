package workers

import (
	"fmt"
	"sync/atomic"

	"nickandperla.net/smartserv/internal/web"
)

// VisitsWorker counts visits across all sessions. The count is scoped to
// the worker instance, so a registered singleton counts globally while
// /ext/ resolution starts fresh each request.
type VisitsWorker struct {
	counter atomic.Int64
}

// Process increments and reports the counter.
func (w *VisitsWorker) Process(ctx *web.Context) error {
	if err := ctx.SetMimeType("text/plain"); err != nil {
		return err
	}

	count := w.counter.Add(1)

	if err := ctx.WriteString(fmt.Sprintf("Site visited %d times globally.\r\n", count)); err != nil {
		return err
	}
	return ctx.WriteString("Try running from different web browsers.")
}
