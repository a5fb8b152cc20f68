package comparison

import "github.com/norpie/dynamics-cli-sub003/internal/types"

// guidType is the attribute-type sentinel Dynamics metadata reports for a
// lookup's shadow "_value" attribute.
const guidType = "guid"

// isRelationshipField is the Relationships-tab filter: a field name ending
// in "_value" whose type is the GUID sentinel.
func isRelationshipField(f types.FieldInfo) bool {
	return len(f.AttributeType) > 0 && f.AttributeType == guidType && hasValueSuffix(f.LogicalName)
}

func hasValueSuffix(name string) bool {
	const suffix = "_value"
	return len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix
}

// BuildFieldsTree builds the flat Fields tab: every field that is not a
// relationship field.
func BuildFieldsTree(fields []types.FieldInfo) *Tree {
	t := NewTree()
	for _, f := range fields {
		if isRelationshipField(f) {
			continue
		}
		id := t.addField(f.LogicalName, types.NodeField, f)
		t.Roots = append(t.Roots, id)
	}
	return t
}

// BuildRelationshipsTree builds the flat Relationships tab: the inverse
// filter of BuildFieldsTree.
func BuildRelationshipsTree(fields []types.FieldInfo) *Tree {
	t := NewTree()
	for _, f := range fields {
		if !isRelationshipField(f) {
			continue
		}
		id := t.addField(f.LogicalName, types.NodeRelationshipField, f)
		t.Roots = append(t.Roots, id)
	}
	return t
}

// RawViewType groups a set of views under a Dynamics view category (e.g.
// "Public Views", "System Views").
type RawViewType struct {
	Name  string
	Views []RawView
}

// RawView is one saved view; Columns are its ordered field logical names.
type RawView struct {
	Name    string
	Columns []string
}

// BuildViewsTree builds the Views tab: ViewType -> View -> ViewItem(field).
// A column resolves to the matching field's FieldInfo when fieldsByName
// has an entry for it; otherwise it still gets a leaf node with no
// FieldInfo (a column that no longer corresponds to a live attribute is
// still comparison-relevant — it shows up as permanently unmapped).
func BuildViewsTree(viewTypes []RawViewType, fieldsByName map[string]types.FieldInfo) *Tree {
	t := NewTree()
	for _, vt := range viewTypes {
		vtID := t.addContainer(vt.Name, types.NodeViewType)
		t.Roots = append(t.Roots, vtID)

		for _, v := range vt.Views {
			vID := t.addContainer(v.Name, types.NodeView)
			t.addChild(vtID, vID)

			for _, col := range v.Columns {
				info, ok := fieldsByName[col]
				if !ok {
					info = types.FieldInfo{LogicalName: col}
				}
				colID := t.addField(col, types.NodeField, info)
				t.addChild(vID, colID)
			}
		}
	}
	return t
}

// RawFormType groups a set of forms under a Dynamics form category (e.g.
// "Main", "Quick Create").
type RawFormType struct {
	Name  string
	Forms []RawForm
}

// RawForm is one form: an ordered list of tabs.
type RawForm struct {
	Name string
	Tabs []RawTab
}

// RawTab is one form tab: an ordered list of sections.
type RawTab struct {
	Name     string
	Sections []RawSection
}

// RawSection is one form section: an ordered list of field logical names.
type RawSection struct {
	Name   string
	Fields []string
}

// BuildFormsTree builds the Forms tab: FormType -> Form -> Tab -> Section ->
// FormField(field).
func BuildFormsTree(formTypes []RawFormType, fieldsByName map[string]types.FieldInfo) *Tree {
	t := NewTree()
	for _, ft := range formTypes {
		ftID := t.addContainer(ft.Name, types.NodeFormType)
		t.Roots = append(t.Roots, ftID)

		for _, form := range ft.Forms {
			formID := t.addContainer(form.Name, types.NodeForm)
			t.addChild(ftID, formID)

			for _, tab := range form.Tabs {
				tabID := t.addContainer(tab.Name, types.NodeTab)
				t.addChild(formID, tabID)

				for _, section := range tab.Sections {
					secID := t.addContainer(section.Name, types.NodeSection)
					t.addChild(tabID, secID)

					for _, fieldName := range section.Fields {
						info, ok := fieldsByName[fieldName]
						if !ok {
							info = types.FieldInfo{LogicalName: fieldName}
						}
						fieldID := t.addField(fieldName, types.NodeField, info)
						t.addChild(secID, fieldID)
					}
				}
			}
		}
	}
	return t
}

// FieldsByName indexes fields by logical name for BuildViewsTree/BuildFormsTree callers.
func FieldsByName(fields []types.FieldInfo) map[string]types.FieldInfo {
	out := make(map[string]types.FieldInfo, len(fields))
	for _, f := range fields {
		out[f.LogicalName] = f
	}
	return out
}
