package widgets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/asakaida/riskmap/internal/entities"
)

// ListRegistry stores the widget registrations of every module.
// Registering a module again replaces the widgets it set for the same page types.
type ListRegistry struct {
	mu      sync.RWMutex
	modules map[string]map[entities.TypeName]entities.WidgetSet
}

// NewListRegistry creates an empty ListRegistry
func NewListRegistry() *ListRegistry {
	return &ListRegistry{
		modules: make(map[string]map[entities.TypeName]entities.WidgetSet),
	}
}

// Register stores a module's widgets
func (r *ListRegistry) Register(ctx context.Context, reg *entities.WidgetRegistration) error {
	if reg == nil {
		return fmt.Errorf("widget registration is required")
	}
	if reg.Module == "" {
		return fmt.Errorf("widget registration module is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pages, ok := r.modules[reg.Module]
	if !ok {
		pages = make(map[entities.TypeName]entities.WidgetSet)
		r.modules[reg.Module] = pages
	}
	for pageType, set := range reg.Widgets {
		cp := make(entities.WidgetSet, len(set))
		for child, desc := range set {
			cp[child] = desc
		}
		pages[pageType] = cp
	}

	return nil
}

// WidgetsFor merges the widgets all modules registered for a page type.
// Modules are merged in name order, later names winning on conflicts.
func (r *ListRegistry) WidgetsFor(pageType entities.TypeName) entities.WidgetSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	merged := make(entities.WidgetSet)
	for _, name := range names {
		for child, desc := range r.modules[name][pageType] {
			merged[child] = desc
		}
	}
	return merged
}

// Modules returns the names of modules that registered widgets, sorted
func (r *ListRegistry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
