// Package viewmodel holds the state and derived values of page components
// that render catalog objects. Templates are referenced by path only.
package viewmodel

import (
	"fmt"
	"path"
	"sort"
	"sync"
)

// Component binds a custom element tag to its template and view model
type Component struct {
	Name     string             // Registration name (e.g., "mapperResultsItem")
	Tag      string             // Custom element tag (e.g., "mapper-results-item")
	Template string             // Template path relative to the template root
	New      func() interface{} // Creates a view model with default state
}

// ComponentRegistry maps tags to components.
// It is safe for concurrent use.
type ComponentRegistry struct {
	mu         sync.RWMutex
	components map[string]*Component
}

// NewComponentRegistry creates an empty registry
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{components: make(map[string]*Component)}
}

// Register adds a component; tags must be unique
func (r *ComponentRegistry) Register(c Component) error {
	if c.Tag == "" {
		return fmt.Errorf("component %q: tag is required", c.Name)
	}
	if c.New == nil {
		return fmt.Errorf("component %s: view model constructor is required", c.Tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[c.Tag]; exists {
		return fmt.Errorf("duplicate component tag: %s", c.Tag)
	}
	cp := c
	r.components[c.Tag] = &cp
	return nil
}

// Lookup returns the component registered for a tag
func (r *ComponentRegistry) Lookup(tag string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[tag]
	if !ok {
		return Component{}, false
	}
	return *c, true
}

// Instantiate creates the default view model of a tag
func (r *ComponentRegistry) Instantiate(tag string) (interface{}, error) {
	c, ok := r.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("unknown component tag: %s", tag)
	}
	return c.New(), nil
}

// Tags returns the registered tags, sorted
func (r *ComponentRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.components))
	for tag := range r.components {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// RegisterDefaults registers the built-in components with templates under templateRoot
func RegisterDefaults(r *ComponentRegistry, templateRoot string, newMapperItem func() *MapperResultsItem) error {
	if newMapperItem == nil {
		newMapperItem = func() *MapperResultsItem { return NewMapperResultsItem(nil, nil) }
	}

	components := []Component{
		{
			Name:     "assessmentUrlsListComponent",
			Tag:      URLsListTag,
			Template: path.Join(templateRoot, "components/assessment/urls-list.mustache"),
			New:      func() interface{} { return NewURLsList() },
		},
		{
			Name:     "mapperResultsItem",
			Tag:      MapperResultsItemTag,
			Template: path.Join(templateRoot, "components/unified-mapper/mapper-results-item.mustache"),
			New:      func() interface{} { return newMapperItem() },
		},
	}

	for _, c := range components {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
