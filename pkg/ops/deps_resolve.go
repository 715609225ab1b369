package ops

import (
	"github.com/PanterSoft/tsi/pkg/data"
	"github.com/PanterSoft/tsi/pkg/repo"
)

// PackageID identifies one buildable unit. Name and version stay
// separate fields so a name containing @ can never confuse identity.
type PackageID struct {
	Name    string
	Version string
}

func (id PackageID) String() string {
	if id.Version == "" || id.Version == data.VersionLatest {
		return id.Name
	}

	return id.Name + "@" + id.Version
}

// ResolvedNode is one member of a closure: identity, manifest, and the
// raw dependency specifiers in declared order. Edges holds the
// concrete IDs those specifiers resolved to, minus any skipped as
// already installed, so the planner never re-consults the store.
type ResolvedNode struct {
	ID       PackageID
	Manifest *data.PackageManifest
	Deps     []string
	Edges    []PackageID
}

// ResolvedClosure is everything one install request must build. IDs
// preserves discovery order, root first.
type ResolvedClosure struct {
	Root  PackageID
	IDs   []PackageID
	Nodes map[PackageID]*ResolvedNode
}

// DepsResolve computes install closures. Dependencies whose name is
// already installed are left out unless force, except the root: the
// root is always part of its own closure so reinstalls work.
type DepsResolve struct {
	common

	Store repo.Store
}

func (d *DepsResolve) Resolve(root PackageID, installed map[string]bool, force bool) (*ResolvedClosure, error) {
	sel := &VersionSelect{common: d.common, Store: d.Store}

	rootPkg, err := sel.Select(root.Name, root.Version)
	if err != nil {
		return nil, err
	}

	rootID := PackageID{Name: rootPkg.Name, Version: rootPkg.Version}

	closure := &ResolvedClosure{
		Root:  rootID,
		Nodes: make(map[PackageID]*ResolvedNode),
	}

	seen := map[PackageID]struct{}{
		rootID: {},
	}

	versions := map[string]string{
		rootID.Name: rootID.Version,
	}

	pending := []*data.PackageManifest{rootPkg}

	for len(pending) > 0 {
		pkg := pending[0]
		pending = pending[1:]

		node := &ResolvedNode{
			ID:       PackageID{Name: pkg.Name, Version: pkg.Version},
			Manifest: pkg,
			Deps:     pkg.AllDependencies(),
		}

		closure.Nodes[node.ID] = node
		closure.IDs = append(closure.IDs, node.ID)

		for _, spec := range node.Deps {
			name, version, err := sel.ParseSpec(spec)
			if err != nil {
				return nil, err
			}

			if installed[name] && !force && name != rootID.Name {
				d.L().Debug("dependency already installed, skipping", "name", name, "wanted-by", node.ID)
				continue
			}

			dep, err := sel.Select(name, version)
			if err != nil {
				return nil, err
			}

			depID := PackageID{Name: dep.Name, Version: dep.Version}

			node.Edges = append(node.Edges, depID)

			if _, ok := seen[depID]; ok {
				continue
			}

			if prev, ok := versions[depID.Name]; ok && prev != depID.Version {
				d.L().Debug("closure holds two versions of one package",
					"name", depID.Name, "versions", []string{prev, depID.Version})
			} else {
				versions[depID.Name] = depID.Version
			}

			seen[depID] = struct{}{}
			pending = append(pending, dep)
		}
	}

	return closure, nil
}
