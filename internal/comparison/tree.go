// Package comparison implements the ComparisonEngine: hierarchy tree
// construction for an entity's fields, relationships, views and forms, and
// the two-phase name/prefix matching algorithm that pairs a source tree's
// nodes with a target tree's nodes. Nodes live in a flat arena of
// types.HierarchyNode indexed by types.NodeID rather than as a pointer tree,
// since matching needs sibling nodes to hold mutable references into each
// other and Go has no borrow checker to make that safe with real pointers.
package comparison

import "github.com/norpie/dynamics-cli-sub003/internal/types"

// Tree is an arena of HierarchyNodes. Roots holds the top-level node IDs for
// one tab (Fields, Relationships, Views or Forms each get their own Tree).
type Tree struct {
	Nodes []types.HierarchyNode
	Roots []types.NodeID
}

// NewTree returns an empty arena.
func NewTree() *Tree {
	return &Tree{}
}

// addNode appends a node to the arena and returns its assigned ID.
func (t *Tree) addNode(n types.HierarchyNode) types.NodeID {
	id := types.NodeID(len(t.Nodes))
	n.ID = id
	t.Nodes = append(t.Nodes, n)
	return id
}

// addContainer appends a non-field node with no children yet.
func (t *Tree) addContainer(name string, nodeType types.HierarchyNodeType) types.NodeID {
	return t.addNode(types.HierarchyNode{
		Name:     name,
		NodeType: nodeType,
	})
}

// addField appends a leaf field node.
func (t *Tree) addField(name string, nodeType types.HierarchyNodeType, info types.FieldInfo) types.NodeID {
	return t.addNode(types.HierarchyNode{
		Name:      name,
		NodeType:  nodeType,
		FieldInfo: &info,
	})
}

// addChild records childID under parentID and keeps ItemCount in sync.
func (t *Tree) addChild(parentID, childID types.NodeID) {
	parent := &t.Nodes[parentID]
	parent.Children = append(parent.Children, childID)
	parent.ItemCount = len(parent.Children)
}

// Node returns a pointer into the arena for direct mutation.
func (t *Tree) Node(id types.NodeID) *types.HierarchyNode {
	return &t.Nodes[id]
}

// ChildByName returns the first child of parentID whose Name matches.
func (t *Tree) ChildByName(parentID types.NodeID, name string) (types.NodeID, bool) {
	for _, id := range t.Nodes[parentID].Children {
		if t.Nodes[id].Name == name {
			return id, true
		}
	}
	return types.InvalidNodeID, false
}

// siblings returns ids, treating Roots as the "children" of an implicit
// tab-level root when parentID is types.InvalidNodeID.
func (t *Tree) siblings(parentID types.NodeID) []types.NodeID {
	if parentID == types.InvalidNodeID {
		return t.Roots
	}
	return t.Nodes[parentID].Children
}
