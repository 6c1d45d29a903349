package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nickandperla.net/smartserv/internal/exec"
	"nickandperla.net/smartserv/internal/web"
	"nickandperla.net/smartserv/internal/workers"
)

const redirectBody = `<meta http-equiv="refresh" content="0; url=index.html" />`

// handleConn serves one request on one connection. Within a connection
// all reads precede all writes; there is no pipelining.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.sessionTimeout))

	version := "HTTP/1.1"

	lines, err := readRequest(conn)
	if err != nil {
		// Read timeout or broken connection: close silently.
		return
	}
	if len(lines) == 0 {
		s.sendError(conn, version, 400, "Bad Request")
		return
	}

	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 {
		s.sendError(conn, version, 400, "Bad Request")
		return
	}

	method := strings.ToUpper(parts[0])
	if method != "GET" {
		s.sendError(conn, version, 405, "Method Not Allowed")
		return
	}

	version = strings.ToUpper(parts[2])
	if version != "HTTP/1.0" && version != "HTTP/1.1" {
		version = "HTTP/1.1"
		s.sendError(conn, version, 505, "HTTP Version Not Supported")
		return
	}

	sidCandidate, host := "", s.address
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "Cookie:") {
			sidCandidate = cookieSID(line)
		}
		if strings.HasPrefix(line, "Host:") {
			host = hostName(line)
		}
	}

	entry, sessionCookie := s.sessions.resolve(sidCandidate, host)
	defer s.sessions.flush(entry)

	pathParts := strings.Split(parts[1], "?")
	if len(pathParts) > 2 {
		s.sendError(conn, version, 400, "Bad Request")
		return
	}
	path := pathParts[0]
	var params web.Params
	if len(pathParts) == 2 {
		params = parseQuery(pathParts[1])
	}

	var cookies []web.Cookie
	if sessionCookie != nil {
		cookies = append(cookies, *sessionCookie)
	}
	ctx := web.NewContext(conn, params, entry.params, cookies)

	if path == "/" {
		if err := ctx.WriteString(redirectBody); err != nil {
			s.log.Error("writing redirect", "err", err)
		}
		return
	}

	if worker, ok := s.workersMap[path]; ok {
		if err := worker.Process(ctx); err != nil {
			s.log.Error("worker failed", "path", path, "err", err)
		}
		return
	}

	if name, ok := strings.CutPrefix(path, "/ext/"); ok {
		worker := workers.New(name)
		if worker == nil {
			s.sendError(conn, version, 404, "Not Found")
			return
		}
		if err := worker.Process(ctx); err != nil {
			s.log.Error("worker failed", "name", name, "err", err)
		}
		return
	}

	resolved := filepath.Clean(filepath.Join(s.documentRoot, path))
	if resolved != s.documentRoot && !strings.HasPrefix(resolved, s.documentRoot+string(filepath.Separator)) {
		s.sendError(conn, version, 403, "Forbidden")
		return
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		s.sendError(conn, version, 404, "Not Found")
		return
	}
	f, err := os.Open(resolved)
	if err != nil {
		s.sendError(conn, version, 404, "Not Found")
		return
	}
	defer f.Close()

	ext := strings.TrimPrefix(filepath.Ext(resolved), ".")
	if ext == "smscr" {
		s.runScript(conn, version, resolved, ctx)
		return
	}

	s.sendFile(f, ext, info.Size(), ctx)
}

// runScript parses (or fetches from cache) and executes a server script.
// An execution failure after output has started just drops the
// connection; the partial output stands.
func (s *Server) runScript(conn net.Conn, version, path string, ctx *web.Context) {
	doc, err := s.cache.get(path)
	if err != nil {
		s.log.Error("loading script", "path", path, "err", err)
		s.sendError(conn, version, 500, "Internal Server Error")
		return
	}
	if err := exec.New(doc, ctx).Execute(); err != nil {
		s.log.Error("script failed", "path", path, "err", err)
	}
}

// sendFile streams a static file in chunks with its MIME type looked up
// by extension.
func (s *Server) sendFile(f *os.File, ext string, size int64, ctx *web.Context) {
	mimeType, ok := s.mimeTypes[strings.ToLower(ext)]
	if !ok {
		mimeType = "application/octet-stream"
	}

	ctx.SetMimeType(mimeType)
	ctx.SetStatusCode(200)
	ctx.SetContentLength(size)

	buf := make([]byte, 1024)
	if _, err := io.CopyBuffer(ctx, f, buf); err != nil {
		s.log.Error("sending file", "path", f.Name(), "err", err)
	}
}

// readRequest collects header lines up to the first blank line.
func readRequest(conn net.Conn) ([]string, error) {
	r := bufio.NewReader(conn)
	var lines []string
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			lines = append(lines, line)
		}
		if err == io.EOF || (err == nil && line == "") {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseQuery parses k=v pairs joined by '&'. A key without '=' maps to a
// nil value; duplicate keys keep the last occurrence.
func parseQuery(q string) web.Params {
	params := web.Params{}
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			params[key] = nil
		} else {
			v := value
			params[key] = &v
		}
	}
	return params
}

// cookieSID extracts the value of the cookie named sid, stripping any
// surrounding quotes.
func cookieSID(line string) string {
	rest := strings.TrimPrefix(line, "Cookie:")
	for _, part := range strings.Split(rest, ";") {
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if strings.TrimSpace(name) == "sid" {
			return strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return ""
}

// hostName extracts the host from a Host header line, dropping the port.
func hostName(line string) string {
	host := strings.TrimSpace(strings.TrimPrefix(line, "Host:"))
	host, _, _ = strings.Cut(host, ":")
	return strings.TrimSpace(host)
}

// sendError emits a complete error response directly to the socket,
// bypassing the response context.
func (s *Server) sendError(conn net.Conn, version string, code int, text string) {
	fmt.Fprintf(conn,
		"%s %d %s\r\n"+
			"Server: smartserv\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"Connection: close\r\n"+
			"\r\n", version, code, text)
	fmt.Fprintf(conn,
		"<html>\r\n"+
			"  <head><title>%d %s</title></head>\r\n"+
			"  <body>\r\n"+
			"    <p><b>%d</b> %s</p>\r\n"+
			"    <hr/>\r\n"+
			"  </body>\r\n"+
			"</html>\r\n", code, text, code, text)
}
