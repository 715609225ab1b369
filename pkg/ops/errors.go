package ops

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidVersionSpec rejects "name@" and "name@1." forms: an
	// empty or dot-terminated version is an incomplete prefix, not
	// something to guess a package from.
	ErrInvalidVersionSpec = errors.New("incomplete version specification")

	// ErrDependencyNotInClosure guards the planner against holes in a
	// resolved closure. A correct resolver never trips it.
	ErrDependencyNotInClosure = errors.New("dependency not in resolved closure")

	ErrInstallError = errors.New("installation error")
)

// PackageNotFoundError aborts resolution when the root or any
// dependency has no manifest. Matching lists known versions sharing
// the requested prefix and All every known version, both purely for
// the "did you mean" diagnostic.
type PackageNotFoundError struct {
	Name    string
	Version string

	Matching []string
	All      []string
}

func (e *PackageNotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("package not found: %s@%s", e.Name, e.Version)
	}

	return fmt.Sprintf("package not found: %s", e.Name)
}

// CyclicDependencyError reports the dependency path from the first
// repeated package back to itself.
type CyclicDependencyError struct {
	Cycle []PackageID
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, 0, len(e.Cycle))

	for _, id := range e.Cycle {
		parts = append(parts, id.String())
	}

	return "cyclic dependency: " + strings.Join(parts, " -> ")
}

// FetchError wraps a source retrieval failure with the package it
// belongs to.
type FetchError struct {
	ID  PackageID
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BuildError identifies the package and step that broke, carrying the
// retained head of the command output.
type BuildError struct {
	ID   PackageID
	Step string

	Excerpt []string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Step, e.ID, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
