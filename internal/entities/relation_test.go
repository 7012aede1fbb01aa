package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationSpecInterface(t *testing.T) {
	specs := []RelationSpec{
		&DirectRelation{JoinType: "Relationship", SourceAttr: "source", TargetAttr: "destination"},
		&FilteredRelation{Base: "related_objects", Type: "Program"},
		&UnionRelation{Members: []string{"a", "b"}},
		&SearchRelation{Expression: `object.type == "Risk"`},
	}
	for _, spec := range specs {
		assert.NotNil(t, spec)
	}
}

func TestDirectRelation_Direction(t *testing.T) {
	tests := []struct {
		name     string
		relation *DirectRelation
		want     Direction
	}{
		{
			name:     "source to destination",
			relation: &DirectRelation{SourceAttr: "source", TargetAttr: "destination"},
			want:     DirectionSourceToDestination,
		},
		{
			name:     "destination to source",
			relation: &DirectRelation{SourceAttr: "destination", TargetAttr: "source"},
			want:     DirectionDestinationToSource,
		},
		{
			name:     "owner join has no direction",
			relation: &DirectRelation{SourceAttr: "ownable", TargetAttr: "person"},
			want:     DirectionNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.relation.Direction())
		})
	}
	assert.Equal(t, "source_to_destination", DirectionSourceToDestination.String())
	assert.Equal(t, "none", DirectionNone.String())
}

func TestCloneRelationSpec(t *testing.T) {
	union := &UnionRelation{Members: []string{"a"}}
	cloned := CloneRelationSpec(union).(*UnionRelation)
	cloned.Members[0] = "changed"
	assert.Equal(t, "a", union.Members[0])

	search := &SearchRelation{Expression: "true", ObserveTypes: []TypeName{"Program"}}
	clonedSearch := CloneRelationSpec(search).(*SearchRelation)
	clonedSearch.ObserveTypes = append(clonedSearch.ObserveTypes, "Risk")
	assert.Len(t, search.ObserveTypes, 1)

	empty := CloneRelationSpec(&UnionRelation{}).(*UnionRelation)
	assert.NotNil(t, empty.Members)
	assert.Empty(t, empty.Members)
}

func TestReferences(t *testing.T) {
	assert.Equal(t, []string{"related_objects"}, References(&FilteredRelation{Base: "related_objects", Type: "Risk"}))
	assert.Equal(t, []string{"a", "b"}, References(&UnionRelation{Members: []string{"a", "b"}}))
	assert.Nil(t, References(&DirectRelation{}))
	assert.Nil(t, References(&SearchRelation{}))
}
