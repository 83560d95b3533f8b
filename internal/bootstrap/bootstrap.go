// Package bootstrap finds or creates the build directory before a build:
// when no build file exists yet it detects a Meson or CMake project, makes
// the build directory and runs the generator in it.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ja/internal/console"
	"ja/internal/util"
	"ja/internal/util/deps"
)

// Generator names a build file generator.
type Generator string

const (
	None  Generator = ""
	Meson Generator = "meson"
	CMake Generator = "cmake"
)

// DefaultBuildDir is created next to the project file when -C is not given.
const DefaultBuildDir = "build"

// GeneratorError reports a generator that exited non-zero.
type GeneratorError struct {
	Generator Generator
	Code      int
	Err       error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("%s failed (exit %d)", e.Generator, e.Code)
}

func (e *GeneratorError) Unwrap() error { return e.Err }

// Options control Prepare.
type Options struct {
	// WorkDir is where ja was started. Empty means the current directory.
	WorkDir string
	// Dir is the -C argument.
	Dir string
	// File is the build file name; defaults to build.ninja.
	File    string
	Verbose bool

	Runner util.CmdRunner
	// LookPath resolves a generator binary. Defaults to deps.FindGenerator.
	LookPath func(name string) (string, error)
	// Out receives generator output and verbose command echoes.
	Out    io.Writer
	Styles console.Styles
	Logger *zap.SugaredLogger
}

// Plan is where the build runs.
type Plan struct {
	// BuildDir is the absolute directory the engine runs in.
	BuildDir  string
	Generator Generator
	// Generated is set when the generator ran.
	Generated bool
}

// Prepare resolves the build directory, generating it when needed.
func Prepare(ctx context.Context, opts Options) (Plan, error) {
	opts = withDefaults(opts)
	wd := opts.WorkDir
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return Plan{}, err
		}
	}

	buildDir := opts.Dir
	if buildDir == "" {
		buildDir = DefaultBuildDir
	}
	srcDir := wd
	gen := None
	if !util.Exists(filepath.Join(wd, opts.File)) {
		// An empty directory is taken to be the build directory of its parent.
		if empty, _ := util.IsEmptyDir(wd); opts.Dir == "" && empty {
			buildDir = "."
			srcDir = filepath.Dir(wd)
		}
		gen = detect(srcDir)
	}

	dir := opts.Dir
	if gen != None {
		target := resolve(wd, buildDir)
		if util.IsRegular(target) {
			return Plan{}, fmt.Errorf("can't create directory '%s' because a file with that name exists", buildDir)
		}
		if buildDir != "." {
			if !util.Exists(target) {
				opts.echo("$ mkdir " + util.Quote(buildDir))
				if err := util.EnsureDir(target); err != nil {
					return Plan{}, err
				}
			}
			dir = buildDir
		}
	}

	plan := Plan{BuildDir: wd, Generator: gen}
	if dir != "" {
		plan.BuildDir = resolve(wd, dir)
		opts.echo("$ cd " + util.Quote(dir))
		fi, err := os.Stat(plan.BuildDir)
		if err != nil {
			return Plan{}, err
		}
		if !fi.IsDir() {
			return Plan{}, fmt.Errorf("%s: not a directory", dir)
		}
	}

	if gen != None && !util.Exists(filepath.Join(plan.BuildDir, opts.File)) {
		if err := generate(ctx, opts, gen, plan.BuildDir, srcDir); err != nil {
			return Plan{}, err
		}
		plan.Generated = true
	}
	opts.Logger.Debugw("build directory", "dir", plan.BuildDir, "generator", string(gen), "generated", plan.Generated)
	return plan, nil
}

func withDefaults(opts Options) Options {
	if opts.File == "" {
		opts.File = "build.ninja"
	}
	if opts.Runner == nil {
		opts.Runner = util.ExecRunner{}
	}
	if opts.LookPath == nil {
		opts.LookPath = deps.FindGenerator
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return opts
}

func detect(dir string) Generator {
	switch {
	case util.Exists(filepath.Join(dir, "meson.build")):
		return Meson
	case util.Exists(filepath.Join(dir, "CMakeLists.txt")):
		return CMake
	}
	return None
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func (o Options) echo(line string) {
	if o.Verbose {
		fmt.Fprintln(o.Out, console.Paint(o.Styles.Result, line))
	}
}

func generate(ctx context.Context, opts Options, gen Generator, buildDir, srcDir string) error {
	path, err := opts.LookPath(string(gen))
	if err != nil {
		return err
	}
	src, err := filepath.Rel(buildDir, srcDir)
	if err != nil {
		src = srcDir
	}
	var args []string
	if gen == CMake {
		args = append(args, "-GNinja")
	}
	args = append(args, src)

	spec := util.CmdSpec{Path: path, Args: args, Dir: buildDir, Verbose: opts.Verbose}
	var colorizer *Colorizer
	switch {
	case opts.Verbose:
		spec.Interactive = true
	case gen == CMake:
		colorizer = NewColorizer(opts.Out, opts.Styles)
		spec.StdoutLine = colorizer.Line
		spec.StderrLine = colorizer.Line
	}

	res, err := opts.Runner.Run(ctx, spec)
	if colorizer != nil {
		colorizer.Close()
	}
	if err != nil {
		// Meson is quiet unless it fails.
		if gen == Meson && !opts.Verbose {
			opts.Out.Write(res.Stdout)
			opts.Out.Write(res.Stderr)
		}
		return &GeneratorError{Generator: gen, Code: res.Code, Err: err}
	}
	return nil
}
