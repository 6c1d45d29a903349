package workers

import (
	"fmt"
	"strings"
	"time"

	"nickandperla.net/smartserv/internal/web"
)

// HelloWorker greets the visitor and reports the length of the name
// passed in the name parameter.
type HelloWorker struct{}

// Process writes the greeting page.
func (w *HelloWorker) Process(ctx *web.Context) error {
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}

	now := time.Now().Format("2006-01-02 15:04:05")
	name, _ := ctx.Parameter("name")
	name = strings.TrimSpace(name)

	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h1>Hello!!!</h1>")
	fmt.Fprintf(&b, "<p>Now is: %s</p>", now)
	if name == "" {
		b.WriteString("<p>You did not send me your name!</p>")
	} else {
		fmt.Fprintf(&b, "<p>Your name has %d letters.</p>", len([]rune(name)))
	}
	b.WriteString("</body></html>")

	return ctx.WriteString(b.String())
}
