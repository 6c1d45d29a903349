// Package config loads the server configuration file and the auxiliary
// MIME and worker property files.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Server struct {
		Address       string `yaml:"address"`
		Port          int    `yaml:"port"`
		WorkerThreads int    `yaml:"workerThreads"`
		DocumentRoot  string `yaml:"documentRoot"`
		MimeConfig    string `yaml:"mimeConfig"`
		Workers       string `yaml:"workers"`
	} `yaml:"server"`
	Session struct {
		Timeout int `yaml:"timeout"` // seconds
	} `yaml:"session"`
	Store struct {
		Path string `yaml:"path"` // optional SQLite session store
	} `yaml:"store"`
}

// Load reads and validates a configuration file. Relative paths inside
// the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 5721
	cfg.Server.WorkerThreads = 8
	cfg.Session.Timeout = 600

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.DocumentRoot == "" {
		return nil, fmt.Errorf("config %s: server.documentRoot is required", path)
	}
	if cfg.Server.WorkerThreads < 1 {
		return nil, fmt.Errorf("config %s: server.workerThreads must be positive", path)
	}
	if cfg.Session.Timeout < 1 {
		return nil, fmt.Errorf("config %s: session.timeout must be positive", path)
	}

	base := filepath.Dir(path)
	cfg.Server.DocumentRoot = resolve(base, cfg.Server.DocumentRoot)
	cfg.Server.MimeConfig = resolve(base, cfg.Server.MimeConfig)
	cfg.Server.Workers = resolve(base, cfg.Server.Workers)
	cfg.Store.Path = resolve(base, cfg.Store.Path)

	return cfg, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// LoadProperties reads a simple key=value file. Blank lines and lines
// starting with '#' are skipped; duplicate keys keep the last occurrence.
func LoadProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading properties %s: %w", path, err)
	}
	defer f.Close()

	props := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("properties %s: malformed line %q", path, line)
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading properties %s: %w", path, err)
	}
	return props, nil
}
