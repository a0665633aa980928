package core

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mohammad-safakhou/careergraph/models"
)

var (
	ErrDuplicateID   = errors.New("duplicate node id")
	ErrRootCount     = errors.New("roadmap must have exactly one level 0 node")
	ErrRootHasParent = errors.New("root node must not have a parent")
	ErrMissingParent = errors.New("non-root node has no parent")
	ErrUnknownParent = errors.New("parent id does not resolve")
	ErrParentCycle   = errors.New("parent chain does not reach the root")
	ErrNegativeLevel = errors.New("node level is negative")
)

// ValidateTree enforces the node-tree invariants. Structural problems (ids,
// root, parents) reject the tree. Prerequisites that name unknown nodes, the
// node itself, or repeat an id are dropped, and each drop is reported in
// repairs. The input slice is not modified.
func ValidateTree(nodes []models.RoadmapNode) (out []models.RoadmapNode, repairs []string, err error) {
	byID := make(map[string]int, len(nodes))
	roots := 0
	for i, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
		}
		byID[n.ID] = i
		if n.Level < 0 {
			return nil, nil, fmt.Errorf("%w: %q has level %d", ErrNegativeLevel, n.ID, n.Level)
		}
		if n.Level == 0 {
			roots++
		}
	}
	if roots != 1 {
		return nil, nil, fmt.Errorf("%w, found %d", ErrRootCount, roots)
	}

	for _, n := range nodes {
		if n.IsRoot() {
			if n.ParentID != nil {
				return nil, nil, fmt.Errorf("%w: %q", ErrRootHasParent, n.ID)
			}
			continue
		}
		if n.ParentID == nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingParent, n.ID)
		}
		if _, ok := byID[*n.ParentID]; !ok || *n.ParentID == n.ID {
			return nil, nil, fmt.Errorf("%w: %q -> %q", ErrUnknownParent, n.ID, *n.ParentID)
		}
	}

	// every chain must reach the root within len(nodes) hops
	for _, n := range nodes {
		cur := n
		for hops := 0; !cur.IsRoot(); hops++ {
			if hops > len(nodes) {
				return nil, nil, fmt.Errorf("%w: %q", ErrParentCycle, n.ID)
			}
			cur = nodes[byID[*cur.ParentID]]
		}
	}

	out = make([]models.RoadmapNode, len(nodes))
	for i, n := range nodes {
		n = cloneNode(n)
		kept := n.Prerequisites[:0:0]
		for _, p := range n.Prerequisites {
			switch _, known := byID[p]; {
			case !known:
				repairs = append(repairs, fmt.Sprintf("node %q: dropped unknown prerequisite %q", n.ID, p))
			case p == n.ID:
				repairs = append(repairs, fmt.Sprintf("node %q: dropped self prerequisite", n.ID))
			case slices.Contains(kept, p):
				repairs = append(repairs, fmt.Sprintf("node %q: dropped repeated prerequisite %q", n.ID, p))
			default:
				kept = append(kept, p)
			}
		}
		n.Prerequisites = kept
		out[i] = n
	}
	return out, repairs, nil
}
