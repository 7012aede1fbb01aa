package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWidgetSet_Keys(t *testing.T) {
	set := WidgetSet{
		"Threat":  {ID: "threat"},
		"Control": {ID: "control"},
	}
	assert.Equal(t, []TypeName{"Control", "Threat"}, set.Keys())
}

func TestWidgetSet_Keys_ByPosition(t *testing.T) {
	set := WidgetSet{
		"Control": {ID: "control", Position: 2},
		"Vendor":  {ID: "vendor", Position: 1},
		"Threat":  {ID: "threat", Position: 3},
		"Issue":   {ID: "issue"},
		"Audit":   {ID: "audit"},
	}
	assert.Equal(t, []TypeName{"Vendor", "Control", "Threat", "Audit", "Issue"}, set.Keys())
}

func TestWidgetRegistration_IsEmpty(t *testing.T) {
	assert.True(t, (&WidgetRegistration{}).IsEmpty())
	assert.True(t, (&WidgetRegistration{Widgets: map[TypeName]WidgetSet{"Risk": {}}}).IsEmpty())
	assert.False(t, (&WidgetRegistration{Widgets: map[TypeName]WidgetSet{
		"Risk": {"Threat": {ID: "threat"}},
	}}).IsEmpty())
}

func TestTreeViewConfig_Clone(t *testing.T) {
	cfg := &TreeViewConfig{
		BaseWidgetsByType: map[TypeName][]TypeName{"Control": {"Objective"}},
		BasicModelList:    []BasicModel{{ModelName: "Control", DisplayName: "Control"}},
		SubTreeFor: map[TypeName]*SubTree{
			"Control": {DisplayList: []TypeName{"Objective"}},
		},
	}

	cp := cfg.Clone()
	cp.BaseWidgetsByType["Control"] = append(cp.BaseWidgetsByType["Control"], "Risk")
	cp.BasicModelList[0].DisplayName = "changed"
	cp.SubTreeFor["Control"].DisplayList[0] = "Issue"

	assert.Equal(t, []TypeName{"Objective"}, cfg.BaseWidgetsByType["Control"])
	assert.Equal(t, "Control", cfg.BasicModelList[0].DisplayName)
	assert.Equal(t, TypeName("Objective"), cfg.SubTreeFor["Control"].DisplayList[0])
}

func TestMappingPrefix_Mapping(t *testing.T) {
	assert.Equal(t, "related_risks", PrefixRelated.Mapping("risks"))
	assert.Equal(t, "owned_threats", PrefixOwned.Mapping("threats"))
	assert.Equal(t, "all_risks", PrefixAll.Mapping("risks"))
}

func TestPageContext_SubjectType(t *testing.T) {
	assert.Equal(t, TypeName(""), PageContext{}.SubjectType())
	page := PageContext{Subject: &Subject{Type: "Risk", ID: "1"}}
	assert.Equal(t, TypeName("Risk"), page.SubjectType())
	assert.Equal(t, "Risk:1", page.Subject.String())
	assert.Equal(t, "aggregator", PageKindAggregator.String())
}
