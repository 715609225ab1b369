package gc

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/db"
	"github.com/PanterSoft/tsi/pkg/progress"
)

// Collector finds and removes directories under the prefix that no
// database record claims: installs that failed partway, installs
// whose record was removed by hand, and leftover build trees.
type Collector struct {
	cfg *config.Config
	db  *db.DB
}

func NewCollector(cfg *config.Config, database *db.DB) (*Collector, error) {
	return &Collector{cfg: cfg, db: database}, nil
}

// Mark returns the install directory names still referenced by the
// database, sorted.
func (c *Collector) Mark() ([]string, error) {
	recs, err := c.db.ListAll()
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}

	for _, rec := range recs {
		if rec.InstallPath == "" {
			continue
		}

		seen[filepath.Base(rec.InstallPath)] = struct{}{}
	}

	var total []string

	for k := range seen {
		total = append(total, k)
	}

	sort.Strings(total)

	return total, nil
}

// SweepUnmarked returns the absolute paths eligible for removal:
// install root entries not in marked, and every build root entry.
// Builds are transient, so anything still under the build root is
// fair game.
func (c *Collector) SweepUnmarked(marked []string) ([]string, error) {
	inUse := map[string]struct{}{}

	for _, m := range marked {
		inUse[m] = struct{}{}
	}

	var notInUse []string

	err := c.eachDir(c.cfg.InstallRoot(), func(name string) {
		if _, ok := inUse[name]; !ok {
			notInUse = append(notInUse, filepath.Join(c.cfg.InstallRoot(), name))
		}
	})
	if err != nil {
		return nil, err
	}

	err = c.eachDir(c.cfg.BuildRoot(), func(name string) {
		notInUse = append(notInUse, filepath.Join(c.cfg.BuildRoot(), name))
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(notInUse)

	return notInUse, nil
}

func (c *Collector) eachDir(root string, fn func(name string)) error {
	ents, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return errors.WithStack(err)
	}

	for _, ent := range ents {
		if ent.IsDir() {
			fn(ent.Name())
		}
	}

	return nil
}

// DiskUsage totals the on-disk size of the given directories.
func (c *Collector) DiskUsage(paths []string) (int64, error) {
	var total int64

	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			fi, err := d.Info()
			if err == nil {
				total += fi.Size()
			}

			return nil
		})
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

type SweepResult struct {
	Removed        []string
	BytesRecovered int64
	EntriesRemoved int64
}

func (c *Collector) removeTree(root string, sr *SweepResult) error {
	// unwritable entries would wedge RemoveAll, so open them up while
	// counting what the sweep recovers
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		if fi.Mode().Perm()&0200 == 0 {
			if err := os.Chmod(path, fi.Mode().Perm()|0200); err != nil {
				return err
			}
		}

		sr.EntriesRemoved++
		sr.BytesRecovered += fi.Size()

		return nil
	})

	return os.RemoveAll(root)
}

// SweepAndRemove deletes everything SweepUnmarked reports and returns
// what was removed along with recovered size counts.
func (c *Collector) SweepAndRemove(ctx context.Context, marked []string) (*SweepResult, error) {
	notInUse, err := c.SweepUnmarked(marked)
	if err != nil {
		return nil, err
	}

	sr := &SweepResult{Removed: notInUse}

	pb := progress.Count(ctx, int64(len(notInUse)), "Removing orphans")
	defer pb.Close()

	for _, p := range notInUse {
		if err := c.removeTree(p, sr); err != nil {
			return nil, err
		}

		pb.Tick()
	}

	return sr, nil
}
