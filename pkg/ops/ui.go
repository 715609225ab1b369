package ops

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/repo"
	"github.com/PanterSoft/tsi/pkg/status"
)

// DescribeSpecError renders the package-not-found family of errors
// with enough context to correct the spec: prefix matches for an
// incomplete version, known versions for a wrong one. Returns false
// when the error is not one it knows how to present.
func DescribeSpecError(out *status.Output, store repo.Store, spec string, err error) bool {
	if errors.Is(err, ErrInvalidVersionSpec) {
		describeIncompleteSpec(out, store, spec)
		return true
	}

	var nf *PackageNotFoundError

	if errors.As(err, &nf) {
		describeNotFound(out, nf)
		return true
	}

	return false
}

func describeIncompleteSpec(out *status.Output, store repo.Store, spec string) {
	name := spec
	prefix := ""

	if at := strings.IndexByte(spec, '@'); at != -1 {
		name = spec[:at]
		prefix = spec[at+1:]
	}

	out.Error("Error: Incomplete version specification '%s'", spec)

	versions, err := store.ListVersions(name)
	if err != nil || len(versions) == 0 {
		out.Error("Package '%s' not found in repository.", name)
		out.Say("Use 'tsi list' to see available packages.")
		return
	}

	versions = uniqueVersions(versions)

	out.Say("")
	out.Say("Versions matching '%s*':", prefix)

	var found bool

	for _, v := range versions {
		if repo.HasVersionPrefix(v, prefix) {
			out.Say("  - %s@%s", name, v)
			found = true
		}
	}

	if !found {
		out.Say("  (no versions match '%s*')", prefix)
	}

	out.Say("")
	out.Say("All available versions for '%s':", name)

	for _, v := range versions {
		out.Say("  - %s@%s", name, v)
	}
}

func describeNotFound(out *status.Output, nf *PackageNotFoundError) {
	if nf.Version == "" {
		out.Error("Package not found: %s", nf.Name)
		out.Say("Use 'tsi list' to see available packages.")
		return
	}

	out.Error("Package not found: %s@%s", nf.Name, nf.Version)

	all := uniqueVersions(nf.All)
	if len(all) == 0 {
		out.Error("Package '%s' not found in repository.", nf.Name)
		out.Say("Use 'tsi list' to see available packages.")
		return
	}

	out.Say("")
	out.Say("Available versions for '%s':", nf.Name)

	for _, v := range all {
		out.Say("  - %s@%s", nf.Name, v)
	}
}

func uniqueVersions(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))

	for _, v := range in {
		if seen[v] {
			continue
		}

		seen[v] = true

		out = append(out, v)
	}

	return out
}
