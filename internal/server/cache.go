package server

import (
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"nickandperla.net/smartserv/internal/node"
	"nickandperla.net/smartserv/internal/parser"
)

// scriptCache caches parsed documents by absolute path and evicts an
// entry when its file changes on disk. If no watcher is available every
// request re-parses.
type scriptCache struct {
	mu      sync.RWMutex
	docs    map[string]*node.Document
	watcher *fsnotify.Watcher
	log     *slog.Logger
	done    chan struct{}
}

func newScriptCache(log *slog.Logger) *scriptCache {
	c := &scriptCache{
		docs: make(map[string]*node.Document),
		log:  log,
		done: make(chan struct{}),
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("script cache disabled", "err", err)
		return c
	}
	c.watcher = w
	go c.watch()
	return c
}

func (c *scriptCache) watch() {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				c.mu.Lock()
				delete(c.docs, ev.Name)
				c.mu.Unlock()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("script watcher", "err", err)
		}
	}
}

// get returns the parsed document for path, parsing and caching on miss.
func (c *scriptCache) get(path string) (*node.Document, error) {
	if c.watcher != nil {
		c.mu.RLock()
		doc, ok := c.docs[path]
		c.mu.RUnlock()
		if ok {
			return doc, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := parser.Parse(string(data))
	if err != nil {
		return nil, err
	}

	if c.watcher != nil {
		if err := c.watcher.Add(path); err == nil {
			c.mu.Lock()
			c.docs[path] = doc
			c.mu.Unlock()
		}
	}
	return doc, nil
}

func (c *scriptCache) close() {
	close(c.done)
	if c.watcher != nil {
		c.watcher.Close()
	}
}
