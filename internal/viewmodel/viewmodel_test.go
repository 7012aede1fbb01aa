package viewmodel

import (
	"sync"
	"testing"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/extensions/risks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModels() *entities.ModelRegistry {
	return entities.NewModelRegistry(append(core.Models(), risks.Models()...)...)
}

func TestComponentRegistry_Register(t *testing.T) {
	r := NewComponentRegistry()
	require.NoError(t, RegisterDefaults(r, "/static/mustache", nil))

	assert.Equal(t, []string{URLsListTag, MapperResultsItemTag}, r.Tags())

	c, ok := r.Lookup(MapperResultsItemTag)
	require.True(t, ok)
	assert.Equal(t, "mapperResultsItem", c.Name)
	assert.Equal(t, "/static/mustache/components/unified-mapper/mapper-results-item.mustache", c.Template)

	err := r.Register(Component{Name: "other", Tag: URLsListTag, New: func() interface{} { return nil }})
	assert.EqualError(t, err, "duplicate component tag: assessment-urls-list")

	err = r.Register(Component{Name: "untagged", New: func() interface{} { return nil }})
	assert.EqualError(t, err, `component "untagged": tag is required`)

	err = r.Register(Component{Name: "noop", Tag: "noop"})
	assert.EqualError(t, err, "component noop: view model constructor is required")
}

func TestComponentRegistry_Instantiate(t *testing.T) {
	r := NewComponentRegistry()
	models := testModels()
	require.NoError(t, RegisterDefaults(r, "", func() *MapperResultsItem {
		return NewMapperResultsItem(models, nil)
	}))

	vm, err := r.Instantiate(URLsListTag)
	require.NoError(t, err)
	list, ok := vm.(*URLsList)
	require.True(t, ok)
	assert.Equal(t, "", list.NoItemsText)
	assert.True(t, list.IsEmpty())

	first, err := r.Instantiate(MapperResultsItemTag)
	require.NoError(t, err)
	second, err := r.Instantiate(MapperResultsItemTag)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	_, err = r.Instantiate("missing-tag")
	assert.EqualError(t, err, "unknown component tag: missing-tag")
}

func TestComponentRegistry_ConcurrentAccess(t *testing.T) {
	r := NewComponentRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(Component{Tag: string(rune('a' + i)), New: func() interface{} { return nil }})
			_ = r.Tags()
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Tags(), 10)
}

func TestMapperResultsItem_Title(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{"title", Item{"title": "Data breach", "name": "ignored"}, "Data breach"},
		{"description", Item{"description_inline": "Inline", "name": "ignored"}, "Inline"},
		{"name", Item{"name": "Finance"}, "Finance"},
		{"email", Item{"email": "user@example.com"}, "user@example.com"},
		{"nothing", Item{"id": 1}, ""},
		{"snapshot revision", Item{
			"type":     "Snapshot",
			"title":    "outer",
			"revision": map[string]interface{}{"content": map[string]interface{}{"title": "frozen"}},
		}, "frozen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapperResultsItem(nil, nil)
			m.ItemData = tt.item
			assert.Equal(t, tt.want, m.Title())
		})
	}
}

func TestMapperResultsItem_ObjectType(t *testing.T) {
	m := NewMapperResultsItem(testModels(), nil)

	m.ItemData = Item{"type": "Risk"}
	assert.False(t, m.IsSnapshot())
	assert.Equal(t, risks.Risk, m.ObjectType())
	assert.Equal(t, "fa-risk", m.ObjectTypeIcon())

	m.ItemData = Item{"type": "Snapshot", "child_type": "AccessGroup"}
	assert.True(t, m.IsSnapshot())
	assert.Equal(t, entities.TypeName("AccessGroup"), m.ObjectType())
	assert.Equal(t, "fa-access_group", m.ObjectTypeIcon())

	m.ItemData = Item{"type": "DataAsset"}
	assert.Equal(t, "fa-data_asset", m.ObjectTypeIcon())
}

func TestMapperResultsItem_ToggleDetails(t *testing.T) {
	m := NewMapperResultsItem(nil, nil)
	assert.Equal(t, "fa-caret-right", m.ToggleIconClass())

	m.ToggleDetails()
	assert.True(t, m.ShowDetails)
	assert.Equal(t, "fa-caret-down", m.ToggleIconClass())

	m.ToggleDetails()
	assert.False(t, m.ShowDetails)
}

func TestMapperResultsItem_ShowRelatedAssessments(t *testing.T) {
	var events []Event
	m := NewMapperResultsItem(nil, func(e Event) { events = append(events, e) })
	m.ItemData = Item{
		"type":     "Snapshot",
		"revision": Item{"content": Item{"type": "Control", "title": "Access review"}},
	}

	m.ShowRelatedAssessments()

	require.Len(t, events, 1)
	assert.Equal(t, EventShowRelatedAssessments, events[0].Type)
	assert.Equal(t, "Access review", events[0].Instance.String("title"))

	assert.NotPanics(t, func() { NewMapperResultsItem(nil, nil).ShowRelatedAssessments() })
}
