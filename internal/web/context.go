// Package web provides the response context that handlers and the script
// engine write through, plus the worker contract.
//
// A Context buffers status, MIME type, encoding and cookies until the
// first body write. That write emits the complete header exactly once and
// locks every header-affecting mutator.
package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrContextLocked reports a header-affecting mutation after the header
// has been generated.
var ErrContextLocked = errors.New("header already generated")

// Params holds the request parameters parsed from the query string. A nil
// value entry is a key that appeared without '='.
type Params map[string]*string

// ParamMap is a mutable string map. Implementations shared across
// goroutines must be safe for concurrent readers and writers.
type ParamMap interface {
	Get(name string) (string, bool)
	Set(name, value string)
	Delete(name string)
}

// MapParams is a plain map ParamMap for single-goroutine use.
type MapParams map[string]string

// Get returns the value stored under name.
func (m MapParams) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Set stores value under name.
func (m MapParams) Set(name, value string) { m[name] = value }

// Delete removes name.
func (m MapParams) Delete(name string) { delete(m, name) }

// Context is the per-request response context.
type Context struct {
	out io.Writer

	encoding      string
	statusCode    int
	statusText    string
	mimeType      string
	contentLength int64

	params     Params
	persistent ParamMap
	temporary  MapParams
	cookies    []Cookie

	headerDone bool
	encoder    *encoding.Encoder
}

// NewContext creates a Context writing to out. The persistent map may be
// nil, in which case an empty request-local map is used. Cookies given
// here are emitted with the header.
func NewContext(out io.Writer, params Params, persistent ParamMap, cookies []Cookie) *Context {
	if persistent == nil {
		persistent = MapParams{}
	}
	return &Context{
		out:           out,
		encoding:      "UTF-8",
		statusCode:    200,
		statusText:    "OK",
		mimeType:      "text/html",
		contentLength: -1,
		params:        params,
		persistent:    persistent,
		temporary:     MapParams{},
		cookies:       cookies,
	}
}

// SetEncoding sets the charset used for string writes and, for text MIME
// types, advertised in the Content-Type header.
func (c *Context) SetEncoding(encoding string) error {
	if c.headerDone {
		return fmt.Errorf("set encoding: %w", ErrContextLocked)
	}
	c.encoding = encoding
	c.encoder = nil
	return nil
}

// SetStatusCode sets the response status code.
func (c *Context) SetStatusCode(code int) error {
	if c.headerDone {
		return fmt.Errorf("set status code: %w", ErrContextLocked)
	}
	c.statusCode = code
	return nil
}

// SetStatusText sets the response status text.
func (c *Context) SetStatusText(text string) error {
	if c.headerDone {
		return fmt.Errorf("set status text: %w", ErrContextLocked)
	}
	c.statusText = text
	return nil
}

// SetMimeType sets the response MIME type.
func (c *Context) SetMimeType(mime string) error {
	if c.headerDone {
		return fmt.Errorf("set mime type: %w", ErrContextLocked)
	}
	c.mimeType = mime
	return nil
}

// SetContentLength announces the body length ahead of the first write.
func (c *Context) SetContentLength(n int64) error {
	if c.headerDone {
		return fmt.Errorf("set content length: %w", ErrContextLocked)
	}
	c.contentLength = n
	return nil
}

// AddCookie appends a cookie to be emitted with the header.
func (c *Context) AddCookie(cookie Cookie) error {
	if c.headerDone {
		return fmt.Errorf("add cookie: %w", ErrContextLocked)
	}
	c.cookies = append(c.cookies, cookie)
	return nil
}

// Parameter returns the request parameter stored under name. A key that
// appeared without a value reports ok false.
func (c *Context) Parameter(name string) (string, bool) {
	v, ok := c.params[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// ParameterNames returns the sorted request parameter names.
func (c *Context) ParameterNames() []string {
	names := make([]string, 0, len(c.params))
	for name := range c.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PersistentParameter returns the session-scoped parameter stored under name.
func (c *Context) PersistentParameter(name string) (string, bool) {
	return c.persistent.Get(name)
}

// SetPersistentParameter stores a session-scoped parameter.
func (c *Context) SetPersistentParameter(name, value string) {
	c.persistent.Set(name, value)
}

// RemovePersistentParameter removes a session-scoped parameter.
func (c *Context) RemovePersistentParameter(name string) {
	c.persistent.Delete(name)
}

// TemporaryParameter returns the request-scoped parameter stored under name.
func (c *Context) TemporaryParameter(name string) (string, bool) {
	return c.temporary.Get(name)
}

// SetTemporaryParameter stores a request-scoped parameter.
func (c *Context) SetTemporaryParameter(name, value string) {
	c.temporary.Set(name, value)
}

// RemoveTemporaryParameter removes a request-scoped parameter.
func (c *Context) RemoveTemporaryParameter(name string) {
	c.temporary.Delete(name)
}

// Write sends body bytes. The first call emits the header.
func (c *Context) Write(p []byte) (int, error) {
	if !c.headerDone {
		if err := c.writeHeader(); err != nil {
			return 0, err
		}
	}
	return c.out.Write(p)
}

// WriteString encodes s with the context encoding and sends it.
func (c *Context) WriteString(s string) error {
	if strings.EqualFold(c.encoding, "UTF-8") {
		_, err := c.Write([]byte(s))
		return err
	}
	if c.encoder == nil {
		enc, err := ianaindex.IANA.Encoding(c.encoding)
		if err != nil || enc == nil {
			return fmt.Errorf("unsupported encoding %q", c.encoding)
		}
		c.encoder = enc.NewEncoder()
	}
	encoded, err := c.encoder.String(s)
	if err != nil {
		return fmt.Errorf("encoding body as %s: %w", c.encoding, err)
	}
	_, err = c.Write([]byte(encoded))
	return err
}

// writeHeader emits the status line, Content-Type, the optional
// Content-Length, the cookie lines and the blank terminator, then locks
// the header-affecting mutators.
func (c *Context) writeHeader() error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", c.statusCode, c.statusText)
	if strings.HasPrefix(c.mimeType, "text/") {
		fmt.Fprintf(&b, "Content-Type: %s; charset=%s\r\n", c.mimeType, c.encoding)
	} else {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", c.mimeType)
	}
	if c.contentLength >= 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", c.contentLength)
	}
	for _, cookie := range c.cookies {
		fmt.Fprintf(&b, "Set-Cookie: %s\r\n", cookie.header())
	}
	b.WriteString("\r\n")

	c.headerDone = true
	_, err := c.out.Write(b.Bytes())
	return err
}
