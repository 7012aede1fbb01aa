package widgets

import (
	"sort"

	"github.com/asakaida/riskmap/internal/entities"
)

const (
	// DefaultTreeDepth is the depth of related objects shown under each tree row
	DefaultTreeDepth = 2
	// DefaultAddItemView is the template used to add items to generic widgets
	DefaultAddItemView = "/base_objects/tree_add_item.mustache"
	// DefaultFooterView is the template rendered below central type widgets
	DefaultFooterView = "/base_objects/tree_footer.mustache"
)

// Options configures a widget descriptor Builder
type Options struct {
	Models       *entities.ModelRegistry
	Primary      entities.TypeName   // First central type (e.g., "Risk")
	Secondary    entities.TypeName   // Second central type (e.g., "Threat")
	Generic      []entities.TypeName // Known non-central types
	Skip         []entities.TypeName // Generic types never given a widget (e.g., "MultitypeSearch")
	PrimaryOrder int                 // Tab order of the primary widget, 0 for default placement
	TreeDepth    int
	AddItemView  string
	FooterView   string
}

// DescriptorSet holds the descriptors built for one page load
type DescriptorSet struct {
	Generic []*entities.WidgetDescriptor // Ordered by type title plural
	Central map[entities.TypeName]*entities.WidgetDescriptor
	Prefix  entities.MappingPrefix
}

// GenericSet returns the generic descriptors keyed by their model type
func (d *DescriptorSet) GenericSet() entities.WidgetSet {
	set := make(entities.WidgetSet, len(d.Generic))
	for _, desc := range d.Generic {
		set[desc.Model] = desc
	}
	return set
}

// Builder derives tree view widget descriptors for the central types and
// every generic type they relate to
type Builder struct {
	opts Options
}

// NewBuilder creates a new Builder
func NewBuilder(opts Options) *Builder {
	if opts.TreeDepth == 0 {
		opts.TreeDepth = DefaultTreeDepth
	}
	if opts.AddItemView == "" {
		opts.AddItemView = DefaultAddItemView
	}
	if opts.FooterView == "" {
		opts.FooterView = DefaultFooterView
	}
	return &Builder{opts: opts}
}

// Central returns the two central types
func (b *Builder) Central() []entities.TypeName {
	return []entities.TypeName{b.opts.Primary, b.opts.Secondary}
}

// Generic returns the known non-central types in configuration order
func (b *Builder) Generic() []entities.TypeName {
	return append([]entities.TypeName(nil), b.opts.Generic...)
}

// SortedTypes returns the generic types ordered by title plural (case-sensitive, ascending).
// Types sharing a title keep their configuration order.
func (b *Builder) SortedTypes() []entities.TypeName {
	types := b.Generic()
	sort.SliceStable(types, func(i, j int) bool {
		return b.sortKey(types[i]) < b.sortKey(types[j])
	})
	return types
}

func (b *Builder) sortKey(t entities.TypeName) string {
	if b.opts.Models.Has(t) {
		if title := b.opts.Models.Get(t).TitlePlural; title != "" {
			return title
		}
	}
	return string(t)
}

// Build creates the descriptors for a page and returns the tree view
// configuration extended with the central types. The input configuration is
// not modified.
func (b *Builder) Build(tree *entities.TreeViewConfig, page entities.PageContext, prefix entities.MappingPrefix) (*DescriptorSet, *entities.TreeViewConfig) {
	if tree == nil {
		tree = &entities.TreeViewConfig{}
	}
	extended := tree.Clone()
	central := b.Central()

	set := &DescriptorSet{
		Central: make(map[entities.TypeName]*entities.WidgetDescriptor, len(central)),
		Prefix:  prefix,
	}

	for _, t := range b.SortedTypes() {
		if b.skipped(t) {
			continue
		}
		widgets, ok := extended.BaseWidgetsByType[t]
		if !ok {
			continue
		}

		// Central types become children of every generic type with widgets
		extended.BaseWidgetsByType[t] = append(widgets, central...)

		model := b.opts.Models.Get(t)
		set.Generic = append(set.Generic, &entities.WidgetDescriptor{
			ID:           model.TableSingular,
			Name:         model.PluralName(),
			Icon:         model.TableSingular,
			Model:        t,
			Mapping:      entities.PrefixRelated.Mapping(model.TablePlural),
			TreeDepth:    b.opts.TreeDepth,
			DrawChildren: true,
			AddItemView:  b.opts.AddItemView,
			Parent:       page.Subject,
			Position:     len(set.Generic) + 1,
		})
	}

	extendedTypes := append(b.Generic(), central...)
	subTreesConfigured := len(tree.SubTreeFor) > 0

	for _, name := range central {
		widgetList := tree.BaseWidgetsByType[name]
		extended.BaseWidgetsByType[name] = append([]entities.TypeName(nil), extendedTypes...)

		model := b.opts.Models.Get(name)
		extended.BasicModelList = append(extended.BasicModelList, entities.BasicModel{
			ModelName:   name,
			DisplayName: model.TitleSingular,
		})

		if !subTreesConfigured {
			continue
		}

		var childModels []entities.BasicModel
		for _, item := range widgetList {
			if containsType(extendedTypes, item) {
				childModels = append(childModels, entities.BasicModel{
					ModelName:   item,
					DisplayName: b.opts.Models.Get(item).TitleSingular,
				})
			}
		}
		displayList := model.ChildTreeDisplayList
		if len(displayList) == 0 {
			displayList = widgetList
		}
		extended.SubTreeFor[name] = &entities.SubTree{
			ModelList:   childModels,
			DisplayList: append([]entities.TypeName(nil), displayList...),
		}
	}

	// Central widgets follow the generic ones
	for i, name := range central {
		model := b.opts.Models.Get(name)
		desc := &entities.WidgetDescriptor{
			ID:           model.TableSingular,
			Name:         model.TitlePlural,
			Icon:         model.TableSingular,
			Model:        name,
			Mapping:      prefix.Mapping(model.TablePlural),
			TreeDepth:    b.opts.TreeDepth,
			DrawChildren: true,
			FooterView:   b.opts.FooterView,
			Parent:       page.Subject,
			Position:     len(set.Generic) + i + 1,
		}
		if name == b.opts.Primary {
			desc.Order = b.opts.PrimaryOrder
		}
		set.Central[name] = desc
	}

	return set, extended
}

func (b *Builder) skipped(t entities.TypeName) bool {
	return containsType(b.opts.Skip, t)
}

func containsType(types []entities.TypeName, t entities.TypeName) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}
