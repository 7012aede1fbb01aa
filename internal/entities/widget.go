package entities

import "sort"

// WidgetDescriptor is the tree-view widget registered for a child type on a page
type WidgetDescriptor struct {
	ID           string   // Widget id (model table singular, e.g., "risk")
	Name         string   // Display name (e.g., "Risks")
	Icon         string   // Icon name (model table singular)
	Model        TypeName // Type rendered by the widget
	Mapping      string   // Relation rendered (e.g., "related_risks", "owned_threats")
	Order        int      // Tab order, 0 means default placement
	Position     int      // Display position within its set, 1-based; 0 when unpositioned
	TreeDepth    int      // Depth of related objects shown under each row
	DrawChildren bool
	AddItemView  string   // Template used to add items, empty when not addable
	FooterView   string   // Template rendered below the tree, empty for none
	Parent       *Subject // Page subject the tree is rooted at
}

// WidgetSet maps child type names to their widgets on one page type
type WidgetSet map[TypeName]*WidgetDescriptor

// Keys returns the child types of the set in display order.
// Positioned widgets come first by position; the rest follow sorted by name.
func (s WidgetSet) Keys() []TypeName {
	keys := make([]TypeName, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := s.position(keys[i]), s.position(keys[j])
		switch {
		case pi == pj:
			return keys[i] < keys[j]
		case pi == 0:
			return false
		case pj == 0:
			return true
		default:
			return pi < pj
		}
	})
	return keys
}

func (s WidgetSet) position(t TypeName) int {
	if desc := s[t]; desc != nil {
		return desc.Position
	}
	return 0
}

// WidgetRegistration is what a module hands to the widget list registry
// Example: {Module: "ggrc_risks", Widgets: {"Risk": {"Threat": ..., "Control": ...}}}
type WidgetRegistration struct {
	Module  string
	Widgets map[TypeName]WidgetSet
}

// IsEmpty reports whether the registration carries no widgets
func (r *WidgetRegistration) IsEmpty() bool {
	for _, set := range r.Widgets {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// BasicModel is an entry of the tree view's basic model list
type BasicModel struct {
	ModelName   TypeName
	DisplayName string
}

// SubTree configures the child rows shown under a type in tree views
type SubTree struct {
	ModelList   []BasicModel
	DisplayList []TypeName
}

// TreeViewConfig is the tree view configuration the widget builder extends
type TreeViewConfig struct {
	BaseWidgetsByType map[TypeName][]TypeName
	BasicModelList    []BasicModel
	SubTreeFor        map[TypeName]*SubTree
}

// Clone returns a deep copy of the configuration
func (c *TreeViewConfig) Clone() *TreeViewConfig {
	cp := &TreeViewConfig{
		BaseWidgetsByType: make(map[TypeName][]TypeName, len(c.BaseWidgetsByType)),
		BasicModelList:    append([]BasicModel(nil), c.BasicModelList...),
		SubTreeFor:        make(map[TypeName]*SubTree, len(c.SubTreeFor)),
	}
	for k, v := range c.BaseWidgetsByType {
		cp.BaseWidgetsByType[k] = append([]TypeName(nil), v...)
	}
	for k, v := range c.SubTreeFor {
		cp.SubTreeFor[k] = &SubTree{
			ModelList:   append([]BasicModel(nil), v.ModelList...),
			DisplayList: append([]TypeName(nil), v.DisplayList...),
		}
	}
	return cp
}
