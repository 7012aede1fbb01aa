package entities

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// TypeName identifies a domain object type (e.g., "Risk", "Control")
type TypeName string

// String returns the type name as a plain string
func (t TypeName) String() string {
	return string(t)
}

// Model holds the display and storage names of a domain object type
// Example: Model{Name: "AccessGroup", TitlePlural: "Access Groups", TablePlural: "access_groups"}
type Model struct {
	Name                 TypeName
	TitleSingular        string     // Human readable singular (e.g., "Access Group")
	TitlePlural          string     // Human readable plural (e.g., "Access Groups")
	ModelPlural          string     // Plural of the type name (e.g., "AccessGroups"), used for widget names
	TableSingular        string     // Snake case singular, used for widget ids and icons
	TablePlural          string     // Snake case plural, used for mapping names
	ChildTreeDisplayList []TypeName // Optional override for sub tree display lists
}

// PluralName returns ModelPlural, or the pluralized type name when it is not set
func (m *Model) PluralName() string {
	if m.ModelPlural != "" {
		return m.ModelPlural
	}
	return inflect.Pluralize(string(m.Name))
}

// ModelRegistry maps type names to their model metadata
type ModelRegistry struct {
	models map[TypeName]*Model
}

// NewModelRegistry creates a registry from the given models
func NewModelRegistry(models ...*Model) *ModelRegistry {
	r := &ModelRegistry{models: make(map[TypeName]*Model, len(models))}
	for _, m := range models {
		cp := *m
		cp.ChildTreeDisplayList = append([]TypeName(nil), m.ChildTreeDisplayList...)
		r.models[m.Name] = &cp
	}
	return r
}

// Has reports whether the type has explicit metadata
func (r *ModelRegistry) Has(name TypeName) bool {
	if r == nil {
		return false
	}
	_, ok := r.models[name]
	return ok
}

// Get returns the model metadata for a type.
// Types without explicit metadata get names derived from the type name.
func (r *ModelRegistry) Get(name TypeName) *Model {
	if r != nil {
		if m, ok := r.models[name]; ok {
			return m
		}
	}
	return DeriveModel(name)
}

// DeriveModel builds model metadata from the type name alone
// Example: "DataAsset" -> table "data_asset"/"data_assets", title "Data Asset"/"Data Assets"
func DeriveModel(name TypeName) *Model {
	tableSingular := inflect.Underscore(string(name))
	tablePlural := inflect.Pluralize(tableSingular)
	return &Model{
		Name:          name,
		TitleSingular: titleFromTable(tableSingular),
		TitlePlural:   titleFromTable(tablePlural),
		ModelPlural:   inflect.Pluralize(string(name)),
		TableSingular: tableSingular,
		TablePlural:   tablePlural,
	}
}

func titleFromTable(table string) string {
	parts := strings.Split(table, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
