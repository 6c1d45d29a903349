// Command smarttree parses a Smart Script file and reproduces its
// (approximate) original form from the document tree.
package main

import (
	"fmt"
	"os"

	"nickandperla.net/smartserv/pkg/smartscript"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Expected one argument: path to script file")
		os.Exit(1)
	}

	doc, err := smartscript.ParseFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse document: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(doc.Reconstruct())
}
