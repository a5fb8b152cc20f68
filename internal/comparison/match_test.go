package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

func TestBuildFieldsTreeFiltersRelationships(t *testing.T) {
	fields := []types.FieldInfo{
		{LogicalName: "name", AttributeType: "string"},
		{LogicalName: "_cgk_owner_value", AttributeType: "guid"},
		{LogicalName: "description", AttributeType: "string"},
	}

	fieldsTree := BuildFieldsTree(fields)
	relsTree := BuildRelationshipsTree(fields)

	assert.Len(t, fieldsTree.Roots, 2)
	assert.Len(t, relsTree.Roots, 1)
	assert.Equal(t, "_cgk_owner_value", relsTree.Node(relsTree.Roots[0]).Name)
}

func TestMatchHierarchiesExactNameFields(t *testing.T) {
	source := BuildFieldsTree([]types.FieldInfo{{LogicalName: "name"}, {LogicalName: "cgk_status"}})
	target := BuildFieldsTree([]types.FieldInfo{{LogicalName: "name"}, {LogicalName: "nrq_status"}})

	MatchHierarchies(source, target, nil, nil)

	nameNode := source.Node(source.Roots[0])
	require.NotNil(t, nameNode.MappingTarget)
	assert.Equal(t, types.MappingExact, nameNode.MappingType)

	statusNode := source.Node(source.Roots[1])
	require.NotNil(t, statusNode.MappingTarget)
	assert.Equal(t, types.MappingPrefix, statusNode.MappingType)
	assert.Equal(t, "nrq_status", target.Node(*statusNode.MappingTarget).Name)
}

func TestMatchHierarchiesManualMappingTakesPriority(t *testing.T) {
	source := BuildFieldsTree([]types.FieldInfo{{LogicalName: "cgk_foo"}})
	target := BuildFieldsTree([]types.FieldInfo{{LogicalName: "unrelated_bar"}})

	fieldMappings := []types.FieldMapping{{SourceField: "cgk_foo", TargetField: "unrelated_bar"}}
	MatchHierarchies(source, target, fieldMappings, nil)

	node := source.Node(source.Roots[0])
	require.NotNil(t, node.MappingTarget)
	assert.Equal(t, types.MappingManual, node.MappingType)
}

func TestMatchHierarchiesExplicitPrefixMapping(t *testing.T) {
	source := BuildFieldsTree([]types.FieldInfo{{LogicalName: "x_special"}})
	target := BuildFieldsTree([]types.FieldInfo{{LogicalName: "y_special"}})

	prefixMappings := []types.PrefixMapping{{SourcePrefix: "x_", TargetPrefix: "y_"}}
	MatchHierarchies(source, target, nil, prefixMappings)

	node := source.Node(source.Roots[0])
	require.NotNil(t, node.MappingTarget)
	assert.Equal(t, types.MappingPrefix, node.MappingType)
}

func TestMatchHierarchiesContainerColorPropagation(t *testing.T) {
	fieldsByName := FieldsByName([]types.FieldInfo{
		{LogicalName: "name"}, {LogicalName: "phone"}, {LogicalName: "onlyinsource"},
	})

	sourceViews := []RawViewType{{
		Name: "Public Views",
		Views: []RawView{{
			Name:    "Active Accounts",
			Columns: []string{"name", "phone", "onlyinsource"},
		}},
	}}
	targetViews := []RawViewType{{
		Name: "Public Views",
		Views: []RawView{{
			Name:    "Active Accounts",
			Columns: []string{"name", "phone"},
		}},
	}}

	source := BuildViewsTree(sourceViews, fieldsByName)
	target := BuildViewsTree(targetViews, fieldsByName)

	MatchHierarchies(source, target, nil, nil)

	viewTypeNode := source.Node(source.Roots[0])
	assert.Equal(t, types.MappingMixed, viewTypeNode.MappingType, "one unmatched column should mark the whole chain Mixed")

	viewNode := source.Node(viewTypeNode.Children[0])
	assert.Equal(t, types.MappingMixed, viewNode.MappingType)
}

func TestMatchHierarchiesFullMatchWhenAllMapped(t *testing.T) {
	fieldsByName := FieldsByName([]types.FieldInfo{{LogicalName: "name"}})

	views := []RawViewType{{Name: "Public Views", Views: []RawView{{Name: "Active Accounts", Columns: []string{"name"}}}}}
	source := BuildViewsTree(views, fieldsByName)
	target := BuildViewsTree(views, fieldsByName)

	MatchHierarchies(source, target, nil, nil)

	viewTypeNode := source.Node(source.Roots[0])
	assert.Equal(t, types.MappingFullMatch, viewTypeNode.MappingType)
}

func TestMatchHierarchiesUnmappedContainerStaysRed(t *testing.T) {
	fieldsByName := FieldsByName(nil)
	source := BuildViewsTree([]RawViewType{{Name: "Only In Source", Views: nil}}, fieldsByName)
	target := BuildViewsTree(nil, fieldsByName)

	MatchHierarchies(source, target, nil, nil)

	node := source.Node(source.Roots[0])
	assert.Nil(t, node.MappingTarget)
	assert.Equal(t, types.MappingUnmapped, node.MappingType)
}

func TestMirrorTargetOnlyFollowsExistingMapping(t *testing.T) {
	source := BuildFieldsTree([]types.FieldInfo{{LogicalName: "name"}, {LogicalName: "onlyinsource"}})
	target := BuildFieldsTree([]types.FieldInfo{{LogicalName: "name"}})

	MatchHierarchies(source, target, nil, nil)

	mapped, ok := MirrorTarget(source, source.Roots[0])
	require.True(t, ok)
	assert.Equal(t, "name", target.Node(mapped).Name)

	_, ok = MirrorTarget(source, source.Roots[1])
	assert.False(t, ok)
}

func TestBuildFormsTreeNesting(t *testing.T) {
	fieldsByName := FieldsByName([]types.FieldInfo{{LogicalName: "name"}})
	formTypes := []RawFormType{{
		Name: "Main",
		Forms: []RawForm{{
			Name: "Account Form",
			Tabs: []RawTab{{
				Name: "General",
				Sections: []RawSection{{
					Name:   "Summary",
					Fields: []string{"name"},
				}},
			}},
		}},
	}}

	tree := BuildFormsTree(formTypes, fieldsByName)
	require.Len(t, tree.Roots, 1)

	formType := tree.Node(tree.Roots[0])
	assert.Equal(t, types.NodeFormType, formType.NodeType)
	require.Len(t, formType.Children, 1)

	form := tree.Node(formType.Children[0])
	require.Len(t, form.Children, 1)

	tab := tree.Node(form.Children[0])
	require.Len(t, tab.Children, 1)

	section := tree.Node(tab.Children[0])
	require.Len(t, section.Children, 1)

	field := tree.Node(section.Children[0])
	assert.True(t, field.IsFieldNode())
	assert.Equal(t, "name", field.Name)
}
