package pickcolor

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

// Handler runs a command.
type Handler func(ctx context.Context) error

// Registrar binds command identifiers to handlers in the host's command system.
type Registrar interface {
	RegisterCommand(ctx context.Context, id string, handler Handler) error
}

// CommandSpec is one command declared in a manifest.
type CommandSpec struct {
	Command  string `json:"command"            yaml:"command"`
	Title    string `json:"title"              yaml:"title"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// Contributes holds the manifest sections that extend the host.
type Contributes struct {
	Commands []CommandSpec `json:"commands" yaml:"commands"`
}

// Manifest is the extension manifest. Only the fields the adapter uses are decoded.
type Manifest struct {
	Name        string      `json:"name"        yaml:"name"`
	DisplayName string      `json:"displayName" yaml:"displayName"`
	Publisher   string      `json:"publisher"   yaml:"publisher"`
	Version     string      `json:"version"     yaml:"version"`
	Contributes Contributes `json:"contributes" yaml:"contributes"`
}

// DefaultManifest returns the manifest bundled with the package.
func DefaultManifest() *Manifest {
	m, err := ParseManifest(defaultManifest)
	if err != nil {
		panic(fmt.Sprintf("bundled manifest is invalid: %v", err))
	}
	return m
}

// ParseManifest decodes a manifest. JSON documents (package.json style) and YAML are both
// accepted.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("failed to decode JSON manifest: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode YAML manifest: %w", err)
	}

	for i, c := range m.Contributes.Commands {
		if strings.TrimSpace(c.Command) == "" {
			return nil, fmt.Errorf("command %d has an empty identifier", i)
		}
	}
	return &m, nil
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// CommandIDs returns the declared command identifiers in manifest order.
func (m *Manifest) CommandIDs() []string {
	ids := make([]string, 0, len(m.Contributes.Commands))
	for _, c := range m.Contributes.Commands {
		ids = append(ids, c.Command)
	}
	return ids
}

// HandlerName derives the handler name of a command identifier: its final dot-separated
// segment.
func HandlerName(id string) string {
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Register binds every command declared in m to the handler named after it. All handlers are
// resolved before anything is registered, so a missing handler leaves reg untouched.
func Register(ctx context.Context, m *Manifest, handlers map[string]Handler, reg Registrar) error {
	ids := m.CommandIDs()
	bound := make([]Handler, len(ids))
	var missing []error
	for i, id := range ids {
		h, ok := handlers[HandlerName(id)]
		if !ok || h == nil {
			missing = append(missing, fmt.Errorf("%w: %s (for %s)", ErrHandlerNotFound, HandlerName(id), id))
			continue
		}
		bound[i] = h
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}

	for i, id := range ids {
		if err := reg.RegisterCommand(ctx, id, bound[i]); err != nil {
			return fmt.Errorf("failed to register %s: %w", id, err)
		}
	}
	return nil
}

// CommandTable is an in-process Registrar that also dispatches commands.
type CommandTable struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewCommandTable returns an empty CommandTable.
func NewCommandTable() *CommandTable {
	return &CommandTable{handlers: make(map[string]Handler)}
}

// RegisterCommand adds a handler for id. Registering the same id twice is an error.
func (t *CommandTable) RegisterCommand(_ context.Context, id string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.handlers[id]; exists {
		return fmt.Errorf("command %s already registered", id)
	}
	t.handlers[id] = handler
	return nil
}

// UnregisterCommand removes the handler for id, if any.
func (t *CommandTable) UnregisterCommand(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, id)
}

// Execute runs the handler registered for id.
func (t *CommandTable) Execute(ctx context.Context, id string) error {
	t.mu.RLock()
	h, ok := t.handlers[id]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, id)
	}
	return h(ctx)
}

// Commands returns the registered identifiers, sorted.
func (t *CommandTable) Commands() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.handlers))
	for id := range t.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
