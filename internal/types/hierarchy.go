package types

// HierarchyNodeType classifies a node in a source/target comparison tree.
type HierarchyNodeType int

const (
	NodeField HierarchyNodeType = iota
	NodeRelationshipField
	NodeView
	NodeViewType
	NodeForm
	NodeFormType
	NodeTab
	NodeSection
)

// FieldInfo describes the Dynamics attribute backing a field node.
type FieldInfo struct {
	LogicalName  string
	DisplayName  string
	AttributeType string
}

// NodeID indexes a HierarchyNode inside a Tree arena (see
// internal/comparison). Using an index instead of pointers avoids cyclic
// parent/child references and lets a node be updated in place by index
// without invalidating other nodes' references to it.
type NodeID int

// InvalidNodeID is the zero-value sentinel meaning "no node".
const InvalidNodeID NodeID = -1

// HierarchyNode is one node of a source or target comparison tree.
//
// Invariants (enforced by internal/comparison, not by this struct):
//   - a node is a field node iff FieldInfo != nil; field nodes have no children.
//   - MappingTarget is set iff MappingType != MappingUnmapped.
//   - a container's MappingType is Mixed iff it is mapped and >=1 descendant
//     is unmapped; FullMatch iff mapped and all descendants are mapped;
//     Unmapped otherwise.
type HierarchyNode struct {
	ID        NodeID
	Name      string
	NodeType  HierarchyNodeType
	Children  []NodeID

	FieldInfo     *FieldInfo
	MappingTarget *NodeID
	MappingType   MappingType

	IsExpanded bool
	ItemCount  int
}

// IsFieldNode reports whether n is a leaf field node.
func (n *HierarchyNode) IsFieldNode() bool { return n.FieldInfo != nil }
