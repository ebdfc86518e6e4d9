// Package schema validates component props against a JSON schema registered per
// component type.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go-site-builder/internal/model"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidProps indicates props that do not satisfy their type's schema.
var ErrInvalidProps = errors.New("invalid component props")

// ErrEmptyType indicates a component without a type tag.
var ErrEmptyType = errors.New("component type is required")

// Registry maps component types to compiled prop schemas. Types without a schema
// accept any props so the vocabulary stays open.
type Registry struct {
	mu      sync.RWMutex
	schemas map[model.ComponentType]*gojsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[model.ComponentType]*gojsonschema.Schema)}
}

// Default returns a registry preloaded with schemas for the built-in types.
func Default() *Registry {
	r := NewRegistry()
	for typ, src := range builtinSchemas {
		if err := r.Register(typ, src); err != nil {
			// Built-in schemas are constants; a failure here is a programming error.
			panic(fmt.Sprintf("schema: built-in schema for %q: %v", typ, err))
		}
	}
	return r
}

// Register compiles schemaJSON and associates it with typ, replacing any
// previous schema.
func (r *Registry) Register(typ model.ComponentType, schemaJSON string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("invalid json schema for %q: %w", typ, err)
	}
	r.mu.Lock()
	r.schemas[typ] = compiled
	r.mu.Unlock()
	return nil
}

// Has reports whether typ has a registered schema.
func (r *Registry) Has(typ model.ComponentType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[typ]
	return ok
}

// ValidateProps checks props against the schema of typ.
func (r *Registry) ValidateProps(typ model.ComponentType, props model.Props) error {
	if typ == "" {
		return ErrEmptyType
	}
	r.mu.RLock()
	compiled, ok := r.schemas[typ]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	doc := map[string]any(props)
	if doc == nil {
		doc = map[string]any{}
	}
	result, err := compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w for %s: %s", ErrInvalidProps, typ, strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateTree validates a component and all of its descendants.
func (r *Registry) ValidateTree(c *model.Component) error {
	if c == nil {
		return nil
	}
	if err := r.ValidateProps(c.Type, c.Props); err != nil {
		return fmt.Errorf("component %q: %w", c.Name, err)
	}
	for _, child := range c.Children {
		if err := r.ValidateTree(child); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePatch validates the props a component would have after merging patch.
func (r *Registry) ValidatePatch(current *model.Component, patch model.Props) error {
	merged := current.Props.Clone()
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return r.ValidateProps(current.Type, merged)
}
