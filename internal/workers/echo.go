package workers

import (
	"strings"

	"nickandperla.net/smartserv/internal/web"
)

// EchoParams renders the request parameters as an HTML table.
type EchoParams struct{}

// Process writes the parameter table.
func (w *EchoParams) Process(ctx *web.Context) error {
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("<html>\r\n" +
		"  <head>\r\n" +
		"    <title>Requested parameters</title>\r\n" +
		"  </head>\r\n" +
		"  <body>\r\n" +
		"    <h1>Requested parameters</h1>\r\n" +
		"    <table border='1'>\r\n")
	for _, name := range ctx.ParameterNames() {
		value, _ := ctx.Parameter(name)
		b.WriteString("      <tr><td>")
		b.WriteString(name)
		b.WriteString("</td><td>")
		b.WriteString(value)
		b.WriteString("</td></tr>\r\n")
	}
	b.WriteString("    </table>\r\n" +
		"  </body>\r\n" +
		"</html>\r\n")

	return ctx.WriteString(b.String())
}
