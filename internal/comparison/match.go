package comparison

import (
	"strings"

	"github.com/norpie/dynamics-cli-sub003/internal/types"
)

// autoPrefixes are stripped (in list order, then recursively) before
// comparing two field base names under automatic prefix elision — the
// publisher prefixes this tenant's customizations are known to use.
var autoPrefixes = []string{"cgk_", "nrq_", "new_"}

// MatchHierarchies runs the two-phase match algorithm against a pair of
// trees built for the same tab (Fields, Relationships, Views or Forms),
// mutating both in place.
func MatchHierarchies(source, target *Tree, fieldMappings []types.FieldMapping, prefixMappings []types.PrefixMapping) {
	matchContainers(source, target, types.InvalidNodeID, types.InvalidNodeID)
	matchFields(source, target, fieldMappings, prefixMappings)
	propagateColors(source)
	propagateColors(target)
}

// matchContainers implements the container phase: top-down exact-name
// matching at each level, recursing only into already-matched containers'
// children — an unmatched container's descendants are never considered for
// matching, since there's no corresponding parent to nest them under.
func matchContainers(source, target *Tree, sourceParent, targetParent types.NodeID) {
	for _, sID := range source.siblings(sourceParent) {
		sNode := source.Node(sID)
		if sNode.IsFieldNode() {
			continue // leaf fields are matched in the field phase, not here
		}
		tID, ok := findSiblingByName(target, targetParent, sNode.Name)
		if !ok {
			continue
		}
		setMapping(source, sID, tID)
		setMapping(target, tID, sID)
		matchContainers(source, target, sID, tID)
	}
}

func findSiblingByName(t *Tree, parent types.NodeID, name string) (types.NodeID, bool) {
	for _, id := range t.siblings(parent) {
		if t.Node(id).Name == name {
			return id, true
		}
	}
	return types.InvalidNodeID, false
}

func setMapping(t *Tree, id, target types.NodeID) {
	n := t.Node(id)
	n.MappingTarget = &target
	n.MappingType = types.MappingExact
}

// matchFields implements the field phase: every unmapped field node in
// source is matched against the first unmapped field node in target (within
// the SAME parent container, so a matched Fields-tab field never jumps into
// an unrelated view's column list) that satisfies, in priority order:
// manual -> exact -> explicit prefix -> automatic prefix elision.
func matchFields(source, target *Tree, fieldMappings []types.FieldMapping, prefixMappings []types.PrefixMapping) {
	matchFieldsAtLevel(source, target, types.InvalidNodeID, types.InvalidNodeID, fieldMappings, prefixMappings)
}

func matchFieldsAtLevel(source, target *Tree, sourceParent, targetParent types.NodeID, fieldMappings []types.FieldMapping, prefixMappings []types.PrefixMapping) {
	sourceFields := fieldNodesAt(source, sourceParent)
	targetFields := fieldNodesAt(target, targetParent)

	for _, sID := range sourceFields {
		sNode := source.Node(sID)
		if sNode.MappingType != types.MappingUnmapped {
			continue
		}
		for _, tID := range targetFields {
			tNode := target.Node(tID)
			if tNode.MappingType != types.MappingUnmapped {
				continue
			}
			mt, ok := checkFieldMatch(sNode.Name, tNode.Name, fieldMappings, prefixMappings)
			if !ok {
				continue
			}
			setMapping(source, sID, tID)
			setMapping(target, tID, sID)
			source.Node(sID).MappingType = mt
			target.Node(tID).MappingType = mt
			break
		}
	}

	// Recurse into matched containers at this level so nested tabs/sections
	// (Forms) or view-item lists (Views) get their own field-phase pass
	// scoped to siblings under the same matched parent.
	for _, sID := range source.siblings(sourceParent) {
		sNode := source.Node(sID)
		if sNode.IsFieldNode() || sNode.MappingTarget == nil {
			continue
		}
		matchFieldsAtLevel(source, target, sID, *sNode.MappingTarget, fieldMappings, prefixMappings)
	}
}

func fieldNodesAt(t *Tree, parent types.NodeID) []types.NodeID {
	var out []types.NodeID
	for _, id := range t.siblings(parent) {
		if t.Node(id).IsFieldNode() {
			out = append(out, id)
		}
	}
	return out
}

// checkFieldMatch applies the field-matching priority chain: an explicit
// manual mapping always wins, then an exact name match, then a match after
// stripping a known publisher prefix from one or both sides.
func checkFieldMatch(sourceName, targetName string, fieldMappings []types.FieldMapping, prefixMappings []types.PrefixMapping) (types.MappingType, bool) {
	for _, fm := range fieldMappings {
		if fm.SourceField == sourceName && fm.TargetField == targetName {
			return types.MappingManual, true
		}
	}

	if sourceName == targetName {
		return types.MappingExact, true
	}

	for _, pm := range prefixMappings {
		if strings.HasPrefix(sourceName, pm.SourcePrefix) && strings.HasPrefix(targetName, pm.TargetPrefix) {
			sourceBase := strings.TrimPrefix(sourceName, pm.SourcePrefix)
			targetBase := strings.TrimPrefix(targetName, pm.TargetPrefix)
			if sourceBase == targetBase {
				return types.MappingPrefix, true
			}
		}
	}

	sourceBase := extractFieldBaseName(sourceName)
	targetBase := extractFieldBaseName(targetName)
	if sourceBase != "" && sourceBase == targetBase {
		return types.MappingPrefix, true
	}

	return types.MappingUnmapped, false
}

// extractFieldBaseName strips known prefixes (recursively, in case more than
// one applies) and a trailing "_value" suffix.
func extractFieldBaseName(name string) string {
	for {
		stripped := false
		for _, prefix := range autoPrefixes {
			if strings.HasPrefix(name, prefix) {
				name = strings.TrimPrefix(name, prefix)
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	return strings.TrimSuffix(name, "_value")
}

// propagateColors computes each container node's aggregate match state
// bottom-up, overwriting its MappingType with Mixed/FullMatch/Unmapped. Leaf
// field nodes are left exactly as the field phase set them.
func propagateColors(t *Tree) {
	for _, rootID := range t.Roots {
		colorOf(t, rootID)
	}
}

// colorOf computes and stores this node's propagated match state, returning
// it for the parent's own aggregation.
func colorOf(t *Tree, id types.NodeID) types.MappingType {
	n := t.Node(id)
	if n.IsFieldNode() {
		return n.MappingType
	}

	if len(n.Children) == 0 {
		return n.MappingType // leaf-like container (e.g. empty section): leave as set by the container phase
	}

	// A child counts toward "has an unmapped descendant" whenever its own
	// resolved state is Unmapped or Mixed — Mixed itself means some
	// descendant further down is unmapped, so it must propagate upward too,
	// not just a literal Unmapped leaf one level down.
	anyUnmapped := false
	for _, childID := range n.Children {
		switch colorOf(t, childID) {
		case types.MappingUnmapped, types.MappingMixed:
			anyUnmapped = true
		}
	}

	switch {
	case n.MappingTarget == nil:
		n.MappingType = types.MappingUnmapped
	case anyUnmapped:
		n.MappingType = types.MappingMixed
	default:
		n.MappingType = types.MappingFullMatch
	}
	return n.MappingType
}

// MirrorTarget returns the node on the other side that sourceID maps to, for
// driving the TUI's "target follows source selection only when a mapping
// exists" rule — never a best-effort name guess.
func MirrorTarget(t *Tree, id types.NodeID) (types.NodeID, bool) {
	n := t.Node(id)
	if n.MappingTarget == nil {
		return types.InvalidNodeID, false
	}
	return *n.MappingTarget, true
}
