// Command smartexec runs a Smart Script file against standard output.
// Request parameters may be passed as key=value arguments after the
// file path.
package main

import (
	"fmt"
	"os"
	"strings"

	"nickandperla.net/smartserv/pkg/smartscript"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: smartexec FILE [key=value ...]")
		os.Exit(1)
	}

	params := make(map[string]string)
	for _, arg := range os.Args[2:] {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			fmt.Fprintf(os.Stderr, "Malformed parameter %q, expected key=value\n", arg)
			os.Exit(1)
		}
		params[key] = value
	}

	doc, err := smartscript.ParseFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse document: %v\n", err)
		os.Exit(1)
	}

	persistent := smartscript.MapParams{}
	err = smartscript.Execute(doc, os.Stdout,
		smartscript.WithParams(params),
		smartscript.WithPersistent(persistent),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
