package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"text/template"
)

var ErrPromptNotFound = errors.New("prompt not found")

type entry struct {
	pt   *PromptTemplate
	user *template.Template // nil when the prompt has no user template
}

// Registry holds prompts with their user templates compiled at registration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns a registry seeded with the built-in prompts.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]entry)}
	for _, pt := range builtins() {
		if err := r.Register(pt); err != nil {
			panic(fmt.Sprintf("built-in prompt %s: %v", pt.ID, err))
		}
	}
	return r
}

// Register compiles pt and stores it, replacing any prompt with the same ID.
func (r *Registry) Register(pt *PromptTemplate) error {
	if pt.ID == "" {
		return errors.New("prompt ID cannot be empty")
	}

	e := entry{pt: pt}
	if pt.UserPromptTmpl != "" {
		tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
		if err != nil {
			return fmt.Errorf("prompt %s: invalid user template: %w", pt.ID, err)
		}
		e.user = tmpl
	}

	r.mu.Lock()
	r.entries[pt.ID] = e
	r.mu.Unlock()
	return nil
}

func (r *Registry) lookup(id string) (entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	return e, nil
}

// GetPrompt retrieves a prompt by ID
func (r *Registry) GetPrompt(id string) (*PromptTemplate, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.pt, nil
}

// IDs returns the registered prompt IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Rendered is a prompt ready to send to a model.
type Rendered struct {
	System string
	User   string
}

// Render fills the user template of prompt id from ctx. Variables missing
// from ctx fall back to their declared defaults; a missing required variable
// is an error.
func (r *Registry) Render(id string, ctx *PromptExecutionContext) (Rendered, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Rendered{}, err
	}
	out := Rendered{System: e.pt.SystemPrompt}
	if e.user == nil {
		return out, nil
	}

	vars := make(map[string]interface{}, len(e.pt.Variables))
	for _, v := range e.pt.Variables {
		if v.Default != "" {
			vars[v.Name] = v.Default
		}
	}
	if ctx != nil {
		for k, v := range ctx.Variables {
			vars[k] = v
		}
	}
	for _, v := range e.pt.Variables {
		if _, ok := vars[v.Name]; v.Required && !ok {
			return Rendered{}, fmt.Errorf("prompt %s: missing required variable %s", id, v.Name)
		}
	}

	var buf bytes.Buffer
	if err := e.user.Execute(&buf, vars); err != nil {
		return Rendered{}, fmt.Errorf("prompt %s: %w", id, err)
	}
	out.User = buf.String()
	return out, nil
}
