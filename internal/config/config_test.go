package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "env.sh")
	require.NoError(t, os.WriteFile(path, []byte("export CUDA_HOME=/opt/cuda\n"), 0o755))
	return path
}

func TestLoad(t *testing.T) {
	script := writeScript(t)

	tests := []struct {
		name        string
		setupViper  func()
		check       func(*testing.T, *Config)
		wantErr     bool
		errContains string
	}{
		{
			name: "load with all defaults",
			setupViper: func() {
				viper.Reset()
				NewLoader().setupViperDefaults()
				viper.Set("target", "/out")
				viper.Set("arch", "VOLTA70")
				viper.Set("setup_script", script)
				viper.Set("build_type", "Release")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/out", cfg.Target)
				assert.Equal(t, "VOLTA70", cfg.Architecture.Name())
				assert.Equal(t, script, cfg.SetupScript)
				assert.Equal(t, DefaultCXXStandard, cfg.CXXStandard)
				assert.Equal(t, DefaultJobs, cfg.Jobs)
				assert.False(t, cfg.SharedLibs)
				assert.False(t, cfg.StrictFetch)
				assert.True(t, cfg.Progress)
				assert.Equal(t, Repo{Enabled: true, URL: DefaultKokkosRepo, Tag: DefaultKokkosTag}, cfg.Kokkos)
				assert.Equal(t, Repo{Enabled: true, URL: DefaultKernelsRepo, Tag: DefaultKernelsTag}, cfg.Kernels)
				assert.Equal(t, Repo{Enabled: true, URL: DefaultToolsRepo, Tag: ""}, cfg.Tools)
			},
		},
		{
			name: "load with custom values",
			setupViper: func() {
				viper.Reset()
				viper.Set("target", "/opt/kokkos")
				viper.Set("arch", "Kokkos_ARCH_VEGA90A")
				viper.Set("setup_script", script)
				viper.Set("build_type", "Debug")
				viper.Set("cxx_standard", "20")
				viper.Set("shared_libs", true)
				viper.Set("jobs", 8)
				viper.Set("strict_fetch", true)
				viper.Set("kokkos.enabled", true)
				viper.Set("kokkos.repo", "git@github.com:me/kokkos.git")
				viper.Set("kokkos.tag", "4.0.00")
				viper.Set("exec.cmake", "/usr/local/bin/cmake")
				viper.Set("log.debug", true)
				viper.Set("log.file", "kbuild.log")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "VEGA90A", cfg.Architecture.Name())
				assert.Equal(t, "20", cfg.CXXStandard)
				assert.True(t, cfg.SharedLibs)
				assert.Equal(t, 8, cfg.Jobs)
				assert.True(t, cfg.StrictFetch)
				assert.Equal(t, "4.0.00", cfg.Kokkos.Tag)
				assert.False(t, cfg.Kernels.Enabled)
				assert.Equal(t, "/usr/local/bin/cmake", cfg.Exec.CMake)
				assert.True(t, cfg.Log.Debug)
				assert.True(t, filepath.IsAbs(cfg.Log.File))
			},
		},
		{
			name: "empty c++ standard gets default",
			setupViper: func() {
				viper.Reset()
				viper.Set("target", "/out")
				viper.Set("arch", "SKX")
				viper.Set("setup_script", script)
				viper.Set("build_type", "Release")
				viper.Set("cxx_standard", "")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultCXXStandard, cfg.CXXStandard)
			},
		},
		{
			name: "missing architecture",
			setupViper: func() {
				viper.Reset()
				viper.Set("target", "/out")
				viper.Set("setup_script", script)
				viper.Set("build_type", "Release")
			},
			wantErr:     true,
			errContains: "architecture not specified",
		},
		{
			name: "invalid c++ standard",
			setupViper: func() {
				viper.Reset()
				viper.Set("target", "/out")
				viper.Set("arch", "SKX")
				viper.Set("setup_script", script)
				viper.Set("build_type", "Release")
				viper.Set("cxx_standard", "c++17")
			},
			wantErr:     true,
			errContains: "invalid c++ standard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupViper()

			cfg, err := Load()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}

	viper.Reset()
}

func TestConfig_Validate(t *testing.T) {
	script := writeScript(t)

	valid := func() *Config {
		return &Config{
			Target:      "/out",
			Arch:        "VOLTA70",
			SetupScript: script,
			BuildType:   "Release",
			CXXStandard: "17",
			Kokkos:      Repo{Enabled: true, URL: DefaultKokkosRepo, Tag: DefaultKokkosTag},
		}
	}

	tests := []struct {
		name        string
		modify      func(*Config)
		wantErr     bool
		errContains string
		checkFields func(*testing.T, *Config)
	}{
		{
			name:    "valid config",
			modify:  func(*Config) {},
			wantErr: false,
			checkFields: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "Kokkos_ARCH_VOLTA70", cfg.Architecture.Flag())
			},
		},
		{
			name:        "missing target",
			modify:      func(c *Config) { c.Target = "" },
			wantErr:     true,
			errContains: "install target not specified",
		},
		{
			name:        "missing build type",
			modify:      func(c *Config) { c.BuildType = "" },
			wantErr:     true,
			errContains: "build type not specified",
		},
		{
			name:        "missing setup script",
			modify:      func(c *Config) { c.SetupScript = "" },
			wantErr:     true,
			errContains: "setup script not specified",
		},
		{
			name:        "setup script does not exist",
			modify:      func(c *Config) { c.SetupScript = filepath.Join(filepath.Dir(script), "nope.sh") },
			wantErr:     true,
			errContains: "setup script not found",
		},
		{
			name:        "setup script is a directory",
			modify:      func(c *Config) { c.SetupScript = filepath.Dir(script) },
			wantErr:     true,
			errContains: "not a regular file",
		},
		{
			name:        "negative jobs",
			modify:      func(c *Config) { c.Jobs = -1 },
			wantErr:     true,
			errContains: "invalid job count",
		},
		{
			name:        "enabled repository without url",
			modify:      func(c *Config) { c.Kernels = Repo{Enabled: true} },
			wantErr:     true,
			errContains: "invalid kokkos-kernels repository",
		},
		{
			name:    "disabled repository is not checked",
			modify:  func(c *Config) { c.Tools = Repo{Enabled: false} },
			wantErr: false,
		},
		{
			name: "relative paths are resolved",
			modify: func(c *Config) {
				c.Target = "out"
				c.Log.File = "kbuild.log"
			},
			wantErr: false,
			checkFields: func(t *testing.T, cfg *Config) {
				assert.True(t, filepath.IsAbs(cfg.Target))
				assert.True(t, filepath.IsAbs(cfg.Log.File))
				assert.True(t, filepath.IsAbs(cfg.SetupScript))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			if tt.checkFields != nil {
				tt.checkFields(t, cfg)
			}
		})
	}
}

func TestConfig_LayoutNaming(t *testing.T) {
	cfg := &Config{Kokkos: Repo{URL: "https://github.com/kokkos/kokkos.git", Tag: "3.7.02"}}
	assert.Equal(t, "kokkos", cfg.LayoutName())
	assert.Equal(t, "3.7.02", cfg.LayoutVersion())

	cfg = &Config{}
	assert.Equal(t, "kokkos", cfg.LayoutName())
	assert.Equal(t, "", cfg.LayoutVersion())
}
