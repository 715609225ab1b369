package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-getter"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/PanterSoft/tsi/pkg/cleanhttp"
	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/data"
	"github.com/PanterSoft/tsi/pkg/fileutils"
	"github.com/PanterSoft/tsi/pkg/progress"
	"github.com/PanterSoft/tsi/pkg/status"
	"github.com/PanterSoft/tsi/pkg/sumfile"
)

const sumAlgo = "b2"

// Fetcher retrieves package sources into <prefix>/sources. Each package
// gets its own directory there, keyed by name-version, so two versions
// of one name never share a tree.
type Fetcher struct {
	cfg *config.Config
	out *status.Output

	logger hclog.Logger
}

func New(cfg *config.Config, out *status.Output) *Fetcher {
	if out == nil {
		out = status.Discard()
	}

	return &Fetcher{cfg: cfg, out: out}
}

func (f *Fetcher) SetLogger(logger hclog.Logger) {
	f.logger = logger
}

func (f *Fetcher) L() hclog.Logger {
	if f.logger == nil {
		return hclog.L()
	}

	return f.logger
}

// Fetch returns the directory holding pkg's source tree, retrieving it
// first unless a previous run already left it in place. force discards
// the cached tree and fetches fresh.
func (f *Fetcher) Fetch(ctx context.Context, pkg *data.PackageManifest, force bool) (string, error) {
	dir := filepath.Join(f.cfg.SourcesDir(), pkg.DirName())

	if _, err := os.Stat(dir); err == nil && !force {
		f.out.Say("Source already exists for %s, skipping fetch", pkg.Name)
		return dir, nil
	}

	if err := os.MkdirAll(f.cfg.SourcesDir(), 0755); err != nil {
		return "", errors.WithStack(err)
	}

	f.out.Banner("Fetching %s", pkg.Name)

	var err error

	switch pkg.Source.Type {
	case "git":
		err = f.fetchGit(ctx, pkg, dir, force)
	case "tarball", "zip":
		err = f.fetchArchive(ctx, pkg, dir, force)
	case "local":
		err = f.fetchLocal(ctx, pkg, dir)
	default:
		err = errors.Errorf("unknown source type %q for package %s", pkg.Source.Type, pkg.Name)
	}

	if err != nil {
		return "", err
	}

	return dir, nil
}

func (f *Fetcher) fetchGit(ctx context.Context, pkg *data.PackageManifest, dir string, force bool) error {
	src := pkg.Source

	if src.URL == "" {
		return errors.Errorf("git source for %s must include url", pkg.Name)
	}

	if force {
		if err := os.RemoveAll(dir); err != nil {
			return errors.WithStack(err)
		}
	}

	cw := f.out.CommandWriter("git")
	defer cw.Close()

	opts := &git.CloneOptions{
		URL:      src.URL,
		Progress: cw,
	}

	switch {
	case src.Commit != "":
		// need history to reach an arbitrary commit, no shallow clone
	case src.Tag != "":
		opts.Depth = 1
		opts.SingleBranch = true
		opts.ReferenceName = plumbing.NewTagReferenceName(src.Tag)
	case src.Branch != "":
		opts.Depth = 1
		opts.SingleBranch = true
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
	default:
		opts.Depth = 1
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		os.RemoveAll(dir)
		return errors.Wrapf(err, "cloning %s", src.URL)
	}

	if src.Commit != "" {
		wt, err := repo.Worktree()
		if err != nil {
			return errors.WithStack(err)
		}

		err = wt.Checkout(&git.CheckoutOptions{
			Hash: plumbing.NewHash(src.Commit),
		})
		if err != nil {
			return errors.Wrapf(err, "checking out %s", src.Commit)
		}
	}

	return nil
}

func (f *Fetcher) fetchArchive(ctx context.Context, pkg *data.PackageManifest, dir string, force bool) error {
	if pkg.Source.URL == "" {
		return errors.Errorf("%s source for %s must include url", pkg.Source.Type, pkg.Name)
	}

	archive, err := f.download(ctx, pkg, force)
	if err != nil {
		return err
	}

	if force {
		if err := os.RemoveAll(dir); err != nil {
			return errors.WithStack(err)
		}
	}

	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	dec := matchDecompressor(archive)
	if dec == nil {
		return errors.Errorf("no decompressor for %s", filepath.Base(archive))
	}

	f.L().Debug("unpacking archive", "archive", archive, "dir", dir)

	if err := dec.Decompress(dir, archive, true, 0); err != nil {
		os.RemoveAll(dir)
		return errors.Wrapf(err, "unpacking %s", filepath.Base(archive))
	}

	return flattenSingleDir(dir)
}

// download fetches the archive into <prefix>/sources, reusing a file
// left by a previous run unless force. The blake2b sum of every fresh
// download is recorded in the sums file and, when the manifest declares
// a checksum, verified against it.
func (f *Fetcher) download(ctx context.Context, pkg *data.PackageManifest, force bool) (string, error) {
	src := pkg.Source

	target := filepath.Join(f.cfg.SourcesDir(), archiveName(pkg))

	if _, err := os.Stat(target); err == nil && !force {
		return target, nil
	}

	f.out.Say("Downloading %s...", src.URL)

	resp, err := cleanhttp.Get(ctx, src.URL)
	if err != nil {
		return "", errors.Wrapf(err, "downloading %s", src.URL)
	}

	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", errors.Errorf("downloading %s: %s", src.URL, resp.Status)
	}

	dst, err := os.Create(target)
	if err != nil {
		return "", errors.WithStack(err)
	}

	defer dst.Close()

	h, _ := blake2b.New256(nil)

	w := io.MultiWriter(dst, h)

	bar := progress.Count(ctx, resp.ContentLength, "Downloading "+pkg.Name)
	defer bar.Close()

	if _, err := io.Copy(w, bar.Reader(resp.Body)); err != nil {
		os.Remove(target)
		return "", errors.Wrapf(err, "downloading %s", src.URL)
	}

	sum := h.Sum(nil)

	if src.Checksum != "" {
		algo, want, err := sumfile.ParseSum(src.Checksum)
		if err != nil {
			return "", errors.Wrapf(err, "checksum for %s", pkg.Name)
		}

		if algo != sumAlgo {
			return "", errors.Errorf("unsupported checksum algo %q for %s", algo, pkg.Name)
		}

		if !bytes.Equal(want, sum) {
			os.Remove(target)
			return "", errors.Errorf("bad sum for %s: got %s, expected %s",
				filepath.Base(target), sumfile.FormatSum(sumAlgo, sum), src.Checksum)
		}
	}

	if err := f.recordSum(filepath.Base(target), sum); err != nil {
		return "", err
	}

	return target, nil
}

func (f *Fetcher) recordSum(entity string, sum []byte) error {
	path := filepath.Join(f.cfg.SourcesDir(), "sums")

	sf, err := sumfile.LoadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := sf.Add(entity, sumAlgo, sum); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(sf.SaveFile(path))
}

func (f *Fetcher) fetchLocal(ctx context.Context, pkg *data.PackageManifest, dir string) error {
	src := pkg.Source

	if src.Path == "" {
		return errors.Errorf("local source for %s must include path", pkg.Name)
	}

	from, err := homedir.Expand(src.Path)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := os.Stat(from); err != nil {
		return errors.Wrapf(err, "local source path for %s", pkg.Name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return errors.WithStack(err)
	}

	return fileutils.CopyTree(ctx, f.L(), from, dir)
}

func archiveName(pkg *data.PackageManifest) string {
	u, err := url.Parse(pkg.Source.URL)
	if err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}

	if pkg.Source.Type == "zip" {
		return pkg.DirName() + ".zip"
	}

	return pkg.DirName() + ".tar.gz"
}

func matchDecompressor(path string) getter.Decompressor {
	var (
		archive     string
		matchingLen int
	)

	for k := range getter.Decompressors {
		if strings.HasSuffix(path, "."+k) && len(k) > matchingLen {
			archive = k
			matchingLen = len(k)
		}
	}

	return getter.Decompressors[archive]
}

// Archives usually wrap everything in a single "name-version/"
// directory. When that is the only entry, hoist its contents so build
// systems find configure and friends at the top.
func flattenSingleDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.WithStack(err)
	}

	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	tmp := dir + ".unwrap"

	if err := os.Rename(filepath.Join(dir, entries[0].Name()), tmp); err != nil {
		return errors.WithStack(err)
	}

	if err := os.Remove(dir); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(os.Rename(tmp, dir))
}
