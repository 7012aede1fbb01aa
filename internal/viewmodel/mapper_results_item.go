package viewmodel

import (
	"github.com/asakaida/riskmap/internal/entities"
)

// MapperResultsItemTag is the tag of the unified mapper result row component
const MapperResultsItemTag = "mapper-results-item"

// EventShowRelatedAssessments asks the mapper to list the assessments related to an item
const EventShowRelatedAssessments = "showRelatedAssessments"

// SnapshotType is the type of frozen object revisions
const SnapshotType entities.TypeName = "Snapshot"

const (
	iconCaretDown  = "fa-caret-down"
	iconCaretRight = "fa-caret-right"
)

// Item is an object document as returned by the object API
type Item map[string]interface{}

// String returns a string attribute, or "" when missing or not a string
func (i Item) String(key string) string {
	s, _ := i[key].(string)
	return s
}

// Event is sent by a component to its parent
type Event struct {
	Type     string
	Instance Item
}

// MapperResultsItem is one row of the unified mapper results
type MapperResultsItem struct {
	ItemData               Item
	SearchOnly             bool
	DrawRelatedAssessments bool
	SelectedColumns        []string
	ShowDetails            bool

	models   *entities.ModelRegistry
	dispatch func(Event)
}

// NewMapperResultsItem creates a row view model.
// models resolves icon names; dispatch receives component events and may be nil.
func NewMapperResultsItem(models *entities.ModelRegistry, dispatch func(Event)) *MapperResultsItem {
	return &MapperResultsItem{
		ItemData:        Item{},
		SelectedColumns: []string{},
		models:          models,
		dispatch:        dispatch,
	}
}

// DisplayItem returns the revision content of snapshots and the item itself otherwise
func (m *MapperResultsItem) DisplayItem() Item {
	if revision, ok := asItem(m.ItemData["revision"]); ok {
		if content, ok := asItem(revision["content"]); ok {
			return content
		}
	}
	return m.ItemData
}

func asItem(v interface{}) (Item, bool) {
	switch m := v.(type) {
	case Item:
		return m, m != nil
	case map[string]interface{}:
		return m, m != nil
	default:
		return nil, false
	}
}

// Title returns the first set attribute of title, description_inline, name and email
func (m *MapperResultsItem) Title() string {
	item := m.DisplayItem()
	for _, key := range []string{"title", "description_inline", "name", "email"} {
		if s := item.String(key); s != "" {
			return s
		}
	}
	return ""
}

// IsSnapshot reports whether the row shows a snapshot
func (m *MapperResultsItem) IsSnapshot() bool {
	return entities.TypeName(m.ItemData.String("type")) == SnapshotType
}

// ObjectType returns the type of the object shown; for snapshots, the type of the frozen object
func (m *MapperResultsItem) ObjectType() entities.TypeName {
	if m.IsSnapshot() {
		return entities.TypeName(m.ItemData.String("child_type"))
	}
	return entities.TypeName(m.ItemData.String("type"))
}

// ObjectTypeIcon returns the icon class of the object type
// Example: "fa-access_group"
func (m *MapperResultsItem) ObjectTypeIcon() string {
	return "fa-" + m.models.Get(m.ObjectType()).TableSingular
}

// ToggleIconClass returns the caret icon for the details state
func (m *MapperResultsItem) ToggleIconClass() string {
	if m.ShowDetails {
		return iconCaretDown
	}
	return iconCaretRight
}

// ToggleDetails shows or hides the row details
func (m *MapperResultsItem) ToggleDetails() {
	m.ShowDetails = !m.ShowDetails
}

// ShowRelatedAssessments dispatches EventShowRelatedAssessments for the displayed item
func (m *MapperResultsItem) ShowRelatedAssessments() {
	if m.dispatch == nil {
		return
	}
	m.dispatch(Event{Type: EventShowRelatedAssessments, Instance: m.DisplayItem()})
}
