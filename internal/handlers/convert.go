package handlers

import (
	"time"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/services/catalog"
	"github.com/asakaida/riskmap/internal/services/dispatch"
)

// === Conversions to structpb compatible documents ===
// structpb only accepts JSON-like values, so slices are []interface{}.

// DescriptorToMap converts a widget descriptor
func DescriptorToMap(desc *entities.WidgetDescriptor) map[string]interface{} {
	if desc == nil {
		return nil
	}
	m := map[string]interface{}{
		"id":            desc.ID,
		"name":          desc.Name,
		"icon":          desc.Icon,
		"model":         string(desc.Model),
		"mapping":       desc.Mapping,
		"tree_depth":    desc.TreeDepth,
		"draw_children": desc.DrawChildren,
	}
	if desc.Order != 0 {
		m["order"] = desc.Order
	}
	if desc.Position != 0 {
		m["position"] = desc.Position
	}
	if desc.AddItemView != "" {
		m["add_item_view"] = desc.AddItemView
	}
	if desc.FooterView != "" {
		m["footer_view"] = desc.FooterView
	}
	if desc.Parent != nil {
		m["parent"] = map[string]interface{}{
			"type": string(desc.Parent.Type),
			"id":   desc.Parent.ID,
		}
	}
	return m
}

// RegistrationToMap converts widget registrations keyed by page type, then child type
func RegistrationToMap(reg *entities.WidgetRegistration) map[string]interface{} {
	pages := make(map[string]interface{}, len(reg.Widgets))
	for pageType, set := range reg.Widgets {
		children := make(map[string]interface{}, len(set))
		for _, child := range set.Keys() {
			children[string(child)] = DescriptorToMap(set[child])
		}
		pages[string(pageType)] = children
	}
	return pages
}

// RegistrationOrder lists the child types of each page type in display order
func RegistrationOrder(reg *entities.WidgetRegistration) map[string]interface{} {
	order := make(map[string]interface{}, len(reg.Widgets))
	for pageType, set := range reg.Widgets {
		order[string(pageType)] = typeList(set.Keys())
	}
	return order
}

// TreeViewToMap converts a tree view configuration
func TreeViewToMap(tree *entities.TreeViewConfig) map[string]interface{} {
	if tree == nil {
		return nil
	}

	base := make(map[string]interface{}, len(tree.BaseWidgetsByType))
	for t, list := range tree.BaseWidgetsByType {
		base[string(t)] = typeList(list)
	}

	basic := make([]interface{}, 0, len(tree.BasicModelList))
	for _, m := range tree.BasicModelList {
		basic = append(basic, map[string]interface{}{
			"model_name":   string(m.ModelName),
			"display_name": m.DisplayName,
		})
	}

	subTrees := make(map[string]interface{}, len(tree.SubTreeFor))
	for t, sub := range tree.SubTreeFor {
		models := make([]interface{}, 0, len(sub.ModelList))
		for _, m := range sub.ModelList {
			models = append(models, string(m.ModelName))
		}
		subTrees[string(t)] = map[string]interface{}{
			"model_list":   models,
			"display_list": typeList(sub.DisplayList),
		}
	}

	return map[string]interface{}{
		"base_widgets_by_type": base,
		"basic_model_list":     basic,
		"sub_tree_for":         subTrees,
	}
}

// ResultToMap converts the outcome of a widget dispatch
func ResultToMap(result *dispatch.Result) map[string]interface{} {
	return map[string]interface{}{
		"kind":         result.Kind.String(),
		"prefix":       string(result.Prefix),
		"module":       result.Registration.Module,
		"widgets":      RegistrationToMap(result.Registration),
		"widget_order": RegistrationOrder(result.Registration),
		"tree_view":    TreeViewToMap(result.TreeView),
	}
}

// ExpandNodeToMap converts a relation tree
func ExpandNodeToMap(node *catalog.ExpandNode) map[string]interface{} {
	if node == nil {
		return nil
	}
	m := map[string]interface{}{
		"kind":     node.Kind,
		"type":     string(node.Type),
		"relation": node.Relation,
	}
	if node.Filter != "" {
		m["filter"] = string(node.Filter)
	}
	if node.Join != "" {
		m["join"] = node.Join
	}
	if node.Expression != "" {
		m["expression"] = node.Expression
	}
	if len(node.Children) > 0 {
		children := make([]interface{}, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, ExpandNodeToMap(child))
		}
		m["children"] = children
	}
	return m
}

// StoredCatalogToMap converts a stored catalog version
func StoredCatalogToMap(stored *entities.StoredCatalog) map[string]interface{} {
	return map[string]interface{}{
		"module":     stored.Module,
		"version":    stored.Version,
		"dsl":        stored.DSL,
		"created_at": formatTime(stored.CreatedAt),
	}
}

// VersionsToList converts catalog versions
func VersionsToList(versions []*entities.CatalogVersion) []interface{} {
	list := make([]interface{}, 0, len(versions))
	for _, v := range versions {
		list = append(list, map[string]interface{}{
			"version":    v.Version,
			"created_at": formatTime(v.CreatedAt),
		})
	}
	return list
}

func typeList(types []entities.TypeName) []interface{} {
	list := make([]interface{}, 0, len(types))
	for _, t := range types {
		list = append(list, string(t))
	}
	return list
}

func stringList(values []string) []interface{} {
	list := make([]interface{}, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	return list
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
