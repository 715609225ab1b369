package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"

	"github.com/PanterSoft/tsi/pkg/cmd"
	"github.com/PanterSoft/tsi/pkg/config"
	"github.com/PanterSoft/tsi/pkg/gc"
	"github.com/PanterSoft/tsi/pkg/humanize"
	"github.com/PanterSoft/tsi/pkg/ops"
	"github.com/PanterSoft/tsi/pkg/repo"
	"github.com/PanterSoft/tsi/pkg/status"
)

func main() {
	c := cli.NewCLI("tsi", "0.1.0")
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"install": func() (cli.Command, error) {
			return cmd.New(
				"install",
				"Install a package and its dependencies from source",
				installF,
			), nil
		},
		"remove": func() (cli.Command, error) {
			return cmd.New(
				"remove",
				"Remove an installed package",
				removeF,
			), nil
		},
		"list": func() (cli.Command, error) {
			return cmd.New(
				"list",
				"List installed packages",
				listF,
			), nil
		},
		"search": func() (cli.Command, error) {
			return cmd.New(
				"search",
				"Search available packages by name or description",
				searchF,
			), nil
		},
		"info": func() (cli.Command, error) {
			return cmd.New(
				"info",
				"Show package details and install status",
				infoF,
			), nil
		},
		"versions": func() (cli.Command, error) {
			return cmd.New(
				"versions",
				"List available versions for a package",
				versionsF,
			), nil
		},
		"update": func() (cli.Command, error) {
			return cmd.New(
				"update",
				"Update installed packages, refreshing the package repository first",
				updateF,
			), nil
		},
		"build": func() (cli.Command, error) {
			return cmd.New(
				"build",
				"Fetch and build a package without installing it",
				buildF,
			), nil
		},
		"env": func() (cli.Command, error) {
			return cmd.New(
				"env",
				"Output the build environment as shell exports",
				envF,
			), nil
		},
		"gc": func() (cli.Command, error) {
			return cmd.New(
				"gc",
				"Remove orphaned install and build directories",
				gcF,
			), nil
		},
		"setup": func() (cli.Command, error) {
			return cmd.New(
				"setup",
				"Create the prefix layout and default config",
				setupF,
			), nil
		},
		"debug": func() (cli.Command, error) {
			return cmd.New(
				"debug",
				"Dump internals for troubleshooting",
				debugF,
			), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

func openEnv(prefix string) (*ops.InstallEnv, error) {
	cfg, err := config.LoadConfig(prefix)
	if err != nil {
		return nil, err
	}

	return ops.NewInstallEnv(cfg, status.NewOutput(os.Stdout))
}

func applyDebug(debug bool) {
	if !debug {
		return
	}

	hclog.SetDefault(hclog.New(&hclog.LoggerOptions{
		Name:  "tsi",
		Level: hclog.Debug,
	}))
}

func installF(ctx context.Context, opts struct {
	Force     bool   `short:"f" long:"force" description:"reinstall even when already installed"`
	KeepBuild bool   `long:"keep-build" description:"keep the build directory after install"`
	Prefix    string `long:"prefix" description:"use the given directory as the tsi prefix"`
	Debug     bool   `long:"debug" description:"log debug information"`

	Pos struct {
		Package string `positional-arg-name:"name" required:"yes"`
	} `positional-args:"yes"`
}) error {
	applyDebug(opts.Debug)

	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	ienv.Force = opts.Force
	ienv.RetainBuild = opts.KeepBuild

	var pi ops.PackagesInstall

	if err := pi.Install(ctx, ienv, opts.Pos.Package); err != nil {
		if ops.DescribeSpecError(ienv.Output, ienv.Store, opts.Pos.Package, err) {
			return cmd.ErrHandled
		}

		return err
	}

	return nil
}

func removeF(ctx context.Context, opts struct {
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`

	Pos struct {
		Package string `positional-arg-name:"name" required:"yes"`
	} `positional-args:"yes"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	var pr ops.PackageRemove

	return pr.Remove(ienv, opts.Pos.Package)
}

func listF(ctx context.Context, opts struct {
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	var pl ops.PackagesList

	return pl.List(ienv)
}

func searchF(ctx context.Context, opts struct {
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`

	Pos struct {
		Term string `positional-arg-name:"term" required:"yes"`
	} `positional-args:"yes"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	var ps ops.PackagesSearch

	return ps.Search(ienv, opts.Pos.Term)
}

func infoF(ctx context.Context, opts struct {
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`

	Pos struct {
		Package string `positional-arg-name:"name" required:"yes"`
	} `positional-args:"yes"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	var pi ops.PackageInfo

	if err := pi.Show(ienv, opts.Pos.Package); err != nil {
		if ops.DescribeSpecError(ienv.Output, ienv.Store, opts.Pos.Package, err) {
			return cmd.ErrHandled
		}

		return err
	}

	return nil
}

func versionsF(ctx context.Context, opts struct {
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`

	Pos struct {
		Package string `positional-arg-name:"name" required:"yes"`
	} `positional-args:"yes"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	var pv ops.PackageVersions

	if err := pv.Show(ienv, opts.Pos.Package); err != nil {
		if ops.DescribeSpecError(ienv.Output, ienv.Store, opts.Pos.Package, err) {
			return cmd.ErrHandled
		}

		return err
	}

	return nil
}

func updateF(ctx context.Context, opts struct {
	Repo   string `long:"repo" description:"git URL to pull or clone the package repository from"`
	Local  string `long:"local" description:"copy package manifests from a local directory"`
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`

	Pos struct {
		Names []string `positional-arg-name:"name"`
	} `positional-args:"yes"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	if opts.Repo != "" || opts.Local != "" {
		ru := ops.RepoUpdate{URL: opts.Repo, LocalPath: opts.Local}

		if err := ru.Update(ctx, ienv); err != nil {
			return err
		}

		// reopen so the fresh manifests are visible past the store cache
		store, err := repo.Open(ienv.Config.PackagesDir())
		if err != nil {
			return err
		}

		ienv.Store = store
	}

	var pu ops.PackagesUpdate

	return pu.Update(ctx, ienv, opts.Pos.Names)
}

func buildF(ctx context.Context, opts struct {
	Force  bool   `short:"f" long:"force" description:"re-fetch the source even when cached"`
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`
	Debug  bool   `long:"debug" description:"log debug information"`

	Pos struct {
		Package string `positional-arg-name:"name" required:"yes"`
	} `positional-args:"yes"`
}) error {
	applyDebug(opts.Debug)

	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	ienv.Force = opts.Force

	var pb ops.PackagesBuild

	if err := pb.Run(ctx, ienv, opts.Pos.Package); err != nil {
		if ops.DescribeSpecError(ienv.Output, ienv.Store, opts.Pos.Package, err) {
			return cmd.ErrHandled
		}

		return err
	}

	return nil
}

func envF(ctx context.Context, opts struct {
	Direnv bool   `long:"direnv" description:"emit one direnv dump blob instead of shell exports"`
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	es := ops.EnvShow{Direnv: opts.Direnv}

	return es.Show(ienv)
}

func gcF(ctx context.Context, opts struct {
	DryRun bool   `short:"T" long:"dry-run" description:"output what would be removed without removing it"`
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	col, err := gc.NewCollector(ienv.Config, ienv.DB)
	if err != nil {
		return err
	}

	toKeep, err := col.Mark()
	if err != nil {
		return err
	}

	fmt.Println("## Packages Kept")
	for _, p := range toKeep {
		fmt.Println(p)
	}

	if opts.DryRun {
		toRemove, err := col.SweepUnmarked(toKeep)
		if err != nil {
			return err
		}

		fmt.Println("\n## Directories Removed")
		for _, p := range toRemove {
			fmt.Println(p)
		}

		total, err := col.DiskUsage(toRemove)
		if err != nil {
			return err
		}

		sz, unit := humanize.Size(total)

		fmt.Printf("=> Disk Usage: %.2f%s\n", sz, unit)

		return nil
	}

	res, err := col.SweepAndRemove(ctx, toKeep)
	if err != nil {
		return err
	}

	fmt.Println("\n## Directories Removed")
	for _, p := range res.Removed {
		fmt.Println(p)
	}

	sz, unit := humanize.Size(res.BytesRecovered)

	fmt.Printf("\nSpace Recovered: %.2f%s\n", sz, unit)
	fmt.Printf("  Files Removed: %d\n", res.EntriesRemoved)

	return nil
}

func setupF(ctx context.Context, opts struct {
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`
}) error {
	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	var es ops.EnvSetup

	return es.Setup(ienv)
}

func debugF(ctx context.Context, opts struct {
	Trace  bool   `long:"trace" description:"log in trace mode"`
	Prefix string `long:"prefix" description:"use the given directory as the tsi prefix"`

	Pos struct {
		Args []string `positional-arg-name:"what"`
	} `positional-args:"yes"`
}) error {
	level := hclog.Debug

	if opts.Trace {
		level = hclog.Trace
	}

	hclog.SetDefault(hclog.New(&hclog.LoggerOptions{
		Name:  "tsi-debug",
		Level: level,
	}))

	fs := pflag.NewFlagSet("debug", pflag.ContinueOnError)

	var (
		manifest   string
		resolve    string
		dumpDB     bool
		dumpConfig bool
	)

	fs.StringVar(&manifest, "manifest", "", "dump the parsed manifest for a package spec")
	fs.StringVar(&resolve, "resolve", "", "dump the resolved closure and build order for a spec")
	fs.BoolVar(&dumpDB, "db", false, "dump the install database records")
	fs.BoolVar(&dumpConfig, "config", false, "dump the loaded configuration")

	if err := fs.Parse(opts.Pos.Args); err != nil {
		return err
	}

	ienv, err := openEnv(opts.Prefix)
	if err != nil {
		return err
	}

	if manifest != "" {
		sel := &ops.VersionSelect{Store: ienv.Store}

		name, version, err := sel.ParseSpec(manifest)
		if err != nil {
			return err
		}

		pkg, err := sel.Select(name, version)
		if err != nil {
			return err
		}

		spew.Dump(pkg)

		return nil
	}

	if resolve != "" {
		sel := &ops.VersionSelect{Store: ienv.Store}

		name, version, err := sel.ParseSpec(resolve)
		if err != nil {
			return err
		}

		installed, err := ienv.DB.Names()
		if err != nil {
			return err
		}

		res := &ops.DepsResolve{Store: ienv.Store}

		closure, err := res.Resolve(ops.PackageID{Name: name, Version: version}, installed, true)
		if err != nil {
			return err
		}

		var bo ops.BuildOrder

		plan, err := bo.Plan(closure)
		if err != nil {
			return err
		}

		spew.Dump(plan)

		return nil
	}

	if dumpDB {
		recs, err := ienv.DB.ListAll()
		if err != nil {
			return err
		}

		spew.Dump(recs)

		return nil
	}

	if dumpConfig {
		spew.Dump(ienv.Config)
	}

	return nil
}
