// Command smartserv is the Smart Script application server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"nickandperla.net/smartserv/internal/config"
	"nickandperla.net/smartserv/internal/server"
	"nickandperla.net/smartserv/internal/store"
	"nickandperla.net/smartserv/internal/workers"
)

func main() {
	configPath := flag.String("config", "smartserv.yaml", "Server configuration file")
	flag.Parse()

	log := newLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := []server.Option{
		server.WithAddress(cfg.Server.Address),
		server.WithPort(cfg.Server.Port),
		server.WithWorkerThreads(cfg.Server.WorkerThreads),
		server.WithSessionTimeout(time.Duration(cfg.Session.Timeout) * time.Second),
		server.WithLogger(log),
	}

	if cfg.Server.MimeConfig != "" {
		mimeTypes, err := config.LoadProperties(cfg.Server.MimeConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, server.WithMimeTypes(mimeTypes))
	}

	if cfg.Server.Workers != "" {
		workerMap, err := config.LoadProperties(cfg.Server.Workers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for path, identifier := range workerMap {
			w := workers.New(identifier)
			if w == nil {
				fmt.Fprintf(os.Stderr, "Error: unknown worker %q for path %s\n", identifier, path)
				os.Exit(1)
			}
			opts = append(opts, server.WithWorker(path, w))
		}
	}

	var sessionStore store.Store
	if cfg.Store.Path != "" {
		sessionStore, err = store.NewSQLite(cfg.Store.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening session store: %v\n", err)
			os.Exit(1)
		}
		defer sessionStore.Close()
		opts = append(opts, server.WithSessionStore(sessionStore))
	}

	srv, err := server.New(cfg.Server.DocumentRoot, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	srv.Stop()
}

// newLogger uses a compact text handler on a terminal and JSON when the
// output is piped or collected.
func newLogger() *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
