package layout

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		version     string
		arch        string
		buildType   string
		wantRoot    string
		wantErr     bool
		errContains string
	}{
		{
			name:      "versioned root",
			target:    "/out",
			version:   "3.7.02",
			arch:      "VOLTA70",
			buildType: "Release",
			wantRoot:  "/out/kokkos-3.7.02/VOLTA70/Release",
		},
		{
			name:      "empty version renders as head",
			target:    "/out",
			version:   "",
			arch:      "SKX",
			buildType: "Debug",
			wantRoot:  "/out/kokkos-head/SKX/Debug",
		},
		{
			name:        "missing target",
			arch:        "SKX",
			buildType:   "Debug",
			wantErr:     true,
			errContains: "install target not specified",
		},
		{
			name:        "missing build type",
			target:      "/out",
			arch:        "SKX",
			wantErr:     true,
			errContains: "build type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.target, "kokkos", tt.version, tt.arch, tt.buildType)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.wantRoot), l.Root())
		})
	}
}

func TestNew_RelativeTargetIsResolved(t *testing.T) {
	l, err := New("out", "kokkos", "4.0.00", "AMPERE80", "Release")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(l.Root()))
	assert.True(t, strings.HasSuffix(l.Root(), filepath.Join("out", "kokkos-4.0.00", "AMPERE80", "Release")))
}

func TestRepoPaths(t *testing.T) {
	l, err := New("/out", "kokkos", "3.7.02", "VOLTA70", "Release")
	require.NoError(t, err)

	root := filepath.FromSlash("/out/kokkos-3.7.02/VOLTA70/Release")
	assert.Equal(t, filepath.Join(root, "kokkos-kernels"), l.Source("kokkos-kernels"))
	assert.Equal(t, filepath.Join(root, "kokkos-kernels", "build"), l.Build("kokkos-kernels"))
	assert.Equal(t, filepath.Join(root, "kokkos-kernels", "install"), l.Install("kokkos-kernels"))
	assert.Equal(t, filepath.Join(root, "kokkos_git_stdout.txt"), l.Capture("kokkos", "git", "stdout"))
	assert.Equal(t, filepath.Join(root, "kokkos_cmake_stderr.txt"), l.Capture("kokkos", "cmake", "stderr"))
	assert.Equal(t, filepath.Join(root, "setup.sh"), l.SetupScript())
}

func TestPrepare_Idempotent(t *testing.T) {
	l, err := New(t.TempDir(), "kokkos", "3.7.02", "VOLTA70", "Release")
	require.NoError(t, err)

	require.NoError(t, l.Prepare())

	// Leave something behind to prove a second call does not touch it
	marker := filepath.Join(l.Root(), "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("keep"), 0o644))

	before := snapshot(t, l.Root())
	require.NoError(t, l.Prepare())
	after := snapshot(t, l.Root())

	assert.Equal(t, before, after)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestPrepare_FailsWhenRootIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "kokkos-3.7.02")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	l, err := New(dir, "kokkos", "3.7.02", "SKX", "Release")
	require.NoError(t, err)

	err = l.Prepare()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create install root")
}

func TestPersistSetupScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "env.sh")
	require.NoError(t, os.WriteFile(script, []byte("module load cuda\n"), 0o750))

	l, err := New(filepath.Join(dir, "out"), "kokkos", "3.7.02", "VOLTA70", "Release")
	require.NoError(t, err)
	require.NoError(t, l.Prepare())

	dst, err := l.PersistSetupScript(script)
	require.NoError(t, err)
	assert.Equal(t, l.SetupScript(), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "module load cuda\n", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())

	// Persisting again overwrites in place
	require.NoError(t, os.WriteFile(script, []byte("module load rocm\n"), 0o750))
	_, err = l.PersistSetupScript(script)
	require.NoError(t, err)

	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "module load rocm\n", string(data))
}

func TestCopyFile_OntoItself(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.sh")
	require.NoError(t, os.WriteFile(path, []byte("export A=1\n"), 0o644))

	require.NoError(t, CopyFile(path, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "export A=1\n", string(data))
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFile(filepath.Join(dir, "missing.sh"), filepath.Join(dir, "out.sh"))
	assert.Error(t, err)
}

func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()

	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			out[rel] = "dir"
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)

	return out
}
