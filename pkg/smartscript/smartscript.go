// Package smartscript provides the public API for parsing, reproducing
// and executing Smart Script documents outside the server.
package smartscript

import (
	"io"
	"os"

	"nickandperla.net/smartserv/internal/exec"
	"nickandperla.net/smartserv/internal/node"
	"nickandperla.net/smartserv/internal/parser"
	"nickandperla.net/smartserv/internal/web"
)

// Document is a parsed Smart Script document.
type Document struct {
	root *node.Document
}

// Parse parses a document from source text.
func Parse(src string) (*Document, error) {
	root, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseFile parses a document from a file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Reconstruct reproduces the document's (approximate) source form.
// Parsing the result yields an equal tree.
func (d *Document) Reconstruct() string {
	return node.Reconstruct(d.root)
}

// ParamMap is the mutable parameter map interface used for persistent
// parameters.
type ParamMap = web.ParamMap

// MapParams is a plain map ParamMap for single-goroutine use.
type MapParams = web.MapParams

// Option configures an execution.
type Option func(*runConfig)

type runConfig struct {
	params     web.Params
	persistent web.ParamMap
}

// WithParams supplies the request parameters visible to paramGet.
func WithParams(params map[string]string) Option {
	return func(c *runConfig) {
		c.params = web.Params{}
		for k, v := range params {
			v := v
			c.params[k] = &v
		}
	}
}

// WithPersistent supplies the persistent parameter map visible to the
// pparam functions. The map is mutated in place by the script.
func WithPersistent(params ParamMap) Option {
	return func(c *runConfig) { c.persistent = params }
}

// Execute runs the document and writes the complete response, header
// included, to out.
func Execute(d *Document, out io.Writer, opts ...Option) error {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx := web.NewContext(out, cfg.params, cfg.persistent, nil)
	return exec.New(d.root, ctx).Execute()
}

// Run parses and executes a source text in one step.
func Run(src string, out io.Writer, opts ...Option) error {
	d, err := Parse(src)
	if err != nil {
		return err
	}
	return Execute(d, out, opts...)
}
