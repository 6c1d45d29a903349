package config

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "smartserv.yaml", `
server:
  address: 0.0.0.0
  port: 8080
  workerThreads: 4
  documentRoot: webroot
  mimeConfig: mime.properties
session:
  timeout: 300
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server settings: %+v", cfg.Server)
	}
	if cfg.Server.WorkerThreads != 4 {
		t.Errorf("expected 4 worker threads, got %d", cfg.Server.WorkerThreads)
	}
	if cfg.Session.Timeout != 300 {
		t.Errorf("expected timeout 300, got %d", cfg.Session.Timeout)
	}
	if cfg.Server.DocumentRoot != filepath.Join(dir, "webroot") {
		t.Errorf("document root not resolved: %q", cfg.Server.DocumentRoot)
	}
	if cfg.Server.MimeConfig != filepath.Join(dir, "mime.properties") {
		t.Errorf("mime config not resolved: %q", cfg.Server.MimeConfig)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "min.yaml", "server:\n  documentRoot: webroot\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1" || cfg.Server.Port != 5721 {
		t.Errorf("unexpected defaults: %+v", cfg.Server)
	}
	if cfg.Session.Timeout != 600 {
		t.Errorf("expected default timeout 600, got %d", cfg.Session.Timeout)
	}
}

func TestLoadRejectsMissingDocumentRoot(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "bad.yaml", "server:\n  port: 1234\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for missing documentRoot")
	}
}

func TestLoadProperties(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "mime.properties", `
# extension to mime type
html=text/html
png=image/png
png=image/x-png
txt = text/plain
`)

	props, err := LoadProperties(path)
	if err != nil {
		t.Fatalf("LoadProperties failed: %v", err)
	}
	if props["html"] != "text/html" {
		t.Errorf("expected text/html, got %q", props["html"])
	}
	if props["png"] != "image/x-png" {
		t.Errorf("duplicate key must keep last value, got %q", props["png"])
	}
	if props["txt"] != "text/plain" {
		t.Errorf("expected trimmed value, got %q", props["txt"])
	}
}

func TestLoadPropertiesMalformed(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "bad.properties", "no separator here\n")

	if _, err := LoadProperties(path); err == nil {
		t.Error("expected error for malformed line")
	}
}
