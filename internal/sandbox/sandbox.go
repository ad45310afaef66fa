// Package sandbox provisions the disposable working directory and
// environment overlay a single terminal session runs in.
//
// Every sandbox is a fresh directory directly under the provisioner's scratch
// root. The shell's HOME points at it, so profile and module state written by
// the shell never leaks between sessions or onto the host.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrResource    = errors.New("sandbox directory unavailable")
	ErrOutsideRoot = errors.New("sandbox path outside scratch root")
)

// Config describes where sandboxes are created and which environment
// variables the overlay pins.
type Config struct {
	Root   string // scratch root; empty means os.TempDir()
	Prefix string // directory name prefix
	Term   string // TERM inside the session
	Lang   string // LANG inside the session
}

// Sandbox is one provisioned session directory.
type Sandbox struct {
	Path string
	Env  []string
}

// Provisioner creates and disposes sandboxes under a single scratch root.
type Provisioner struct {
	root   string
	prefix string
	term   string
	lang   string
}

// NewProvisioner creates a provisioner rooted at cfg.Root
func NewProvisioner(cfg Config) *Provisioner {
	root := cfg.Root
	if root == "" {
		root = os.TempDir()
	}
	// Resolve symlinks in root so containment checks compare real paths
	// (e.g., on macOS /var -> /private/var)
	absRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		absRoot, _ = filepath.Abs(root)
	}
	return &Provisioner{
		root:   absRoot,
		prefix: cfg.Prefix,
		term:   cfg.Term,
		lang:   cfg.Lang,
	}
}

// Root returns the resolved scratch root
func (p *Provisioner) Root() string {
	return p.root
}

// Provision creates a unique directory and the environment overlay for it.
func (p *Provisioner) Provision() (*Sandbox, error) {
	path, err := os.MkdirTemp(p.root, p.prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResource, err)
	}

	overrides := map[string]string{"HOME": path}
	if p.term != "" {
		overrides["TERM"] = p.term
	}
	if p.lang != "" {
		overrides["LANG"] = p.lang
	}

	return &Sandbox{
		Path: path,
		Env:  Overlay(os.Environ(), overrides),
	}, nil
}

// Dispose recursively removes the sandbox directory.
// It refuses to remove anything that is not strictly inside the scratch root.
func (p *Provisioner) Dispose(sb *Sandbox) error {
	if sb == nil || sb.Path == "" {
		return nil
	}
	path := filepath.Clean(sb.Path)
	if path == p.root || !isPathWithin(path, p.root) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return os.RemoveAll(path)
}

// Overlay returns base with every key in overrides replaced or appended.
// Entries are KEY=VALUE; the original order of untouched entries is kept.
func Overlay(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if value, ok := overrides[key]; ok {
			if seen[key] {
				continue
			}
			seen[key] = true
			env = append(env, key+"="+value)
			continue
		}
		env = append(env, kv)
	}
	for key, value := range overrides {
		if !seen[key] {
			env = append(env, key+"="+value)
		}
	}
	return env
}

// isPathWithin checks if path is equal to or inside root.
// This is safer than strings.HasPrefix which would incorrectly match
// /tmp-evil as being within /tmp.
func isPathWithin(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
