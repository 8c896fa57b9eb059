// Package layout derives the install directory hierarchy used by a build run.
//
// Every run is isolated under
//
//	<target>/<name>-<version>/<arch>/<build-type>/
//
// and every repository gets its own source, build and install directories
// below that root. Re-running with the same version, architecture and build
// type reuses the same directories; nothing is ever removed.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

// SetupScriptName is the name the environment script is persisted under
const SetupScriptName = "setup.sh"

// Layout is the install root of one run. It is passed explicitly to every
// component instead of changing the process working directory.
type Layout struct {
	root string
}

// New derives the layout root from the target directory, the core library
// name and version, the architecture and the build type
func New(target, name, version, arch, buildType string) (*Layout, error) {
	if target == "" {
		return nil, fmt.Errorf("install target not specified")
	}

	if arch == "" || buildType == "" {
		return nil, fmt.Errorf("architecture and build type are required")
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve install target: %w", err)
	}

	if version == "" {
		version = "head"
	}

	return &Layout{
		root: filepath.Join(abs, name+"-"+version, arch, buildType),
	}, nil
}

// Root returns the install root directory
func (l *Layout) Root() string {
	return l.root
}

// Source returns the checkout directory of a repository
func (l *Layout) Source(repo string) string {
	return filepath.Join(l.root, repo)
}

// Build returns the cmake binary directory of a repository
func (l *Layout) Build(repo string) string {
	return filepath.Join(l.root, repo, "build")
}

// Install returns the install prefix of a repository
func (l *Layout) Install(repo string) string {
	return filepath.Join(l.root, repo, "install")
}

// Capture returns the path of an output capture file at the install root,
// e.g. Capture("kokkos", "git", "stdout") is <root>/kokkos_git_stdout.txt
func (l *Layout) Capture(repo, tool, stream string) string {
	return filepath.Join(l.root, fmt.Sprintf("%s_%s_%s.txt", repo, tool, stream))
}

// SetupScript returns where the environment script is persisted
func (l *Layout) SetupScript() string {
	return filepath.Join(l.root, SetupScriptName)
}

// Prepare creates the install root and any missing parents. It is safe to
// call repeatedly.
func (l *Layout) Prepare() error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return fmt.Errorf("failed to create install root: %w", err)
	}

	return nil
}
