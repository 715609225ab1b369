package ops

import (
	"github.com/pkg/errors"
)

// BuildOrder turns a resolved closure into a build sequence where
// every package's dependencies sit strictly before it. Ties break by
// manifest declaration order, not alphabetically.
type BuildOrder struct {
	common
}

const (
	colorWhite = iota
	colorGrey
	colorBlack
)

func (b *BuildOrder) Plan(closure *ResolvedClosure) ([]PackageID, error) {
	color := make(map[PackageID]int, len(closure.IDs))

	var (
		plan  []PackageID
		stack []PackageID
	)

	var visit func(id PackageID) error
	visit = func(id PackageID) error {
		switch color[id] {
		case colorBlack:
			return nil
		case colorGrey:
			return &CyclicDependencyError{Cycle: cyclePath(stack, id)}
		}

		node, ok := closure.Nodes[id]
		if !ok {
			return errors.Wrapf(ErrDependencyNotInClosure, "%s", id)
		}

		color[id] = colorGrey
		stack = append(stack, id)

		for _, dep := range node.Edges {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorBlack

		plan = append(plan, id)

		return nil
	}

	for _, id := range closure.IDs {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// cyclePath slices the DFS stack from the first occurrence of the
// repeated id through to it again.
func cyclePath(stack []PackageID, id PackageID) []PackageID {
	start := 0

	for i, ent := range stack {
		if ent == id {
			start = i
			break
		}
	}

	path := make([]PackageID, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	path = append(path, id)

	return path
}
