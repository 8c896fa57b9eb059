package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/kbuild/internal/arch"
	"github.com/Norgate-AV/kbuild/internal/source"
)

// Default configuration values
const (
	DefaultKokkosRepo  = "https://github.com/kokkos/kokkos.git"
	DefaultKokkosTag   = "3.7.02"
	DefaultKernelsRepo = "https://github.com/kokkos/kokkos-kernels.git"
	DefaultKernelsTag  = DefaultKokkosTag
	DefaultToolsRepo   = "https://github.com/kokkos/kokkos-tools.git"
	DefaultToolsTag    = ""
	DefaultCXXStandard = "17"
	DefaultJobs        = 0
	DefaultSharedLibs  = false
	DefaultStrictFetch = false
)

// Repo configures one package of the chain
type Repo struct {
	// Run the package's stages
	Enabled bool

	// Git url and tag; an empty tag selects the default branch
	URL string
	Tag string
}

// Target returns the source target of the repository
func (r Repo) Target() (source.Target, error) {
	return source.NewTarget(r.URL, r.Tag)
}

// Executables overrides the tools kbuild runs
type Executables struct {
	Git   string
	Shell string
	CMake string
	Make  string
}

// Log selects verbosity and destination of log output
type Log struct {
	Debug   bool
	Warning bool
	Error   bool
	Quiet   bool
	File    string
}

// Holds the configuration options for kbuild
type Config struct {
	// Base directory for installation
	Target string

	// Architecture identifier, e.g. VOLTA70 or Kokkos_ARCH_VOLTA70
	Arch string
	// Parsed architecture
	Architecture arch.Arch

	// Script sourced before configuring each package
	SetupScript string

	// cmake build type, e.g. Release
	BuildType string

	// C++ standard passed as CMAKE_CXX_STANDARD
	CXXStandard string

	// Build shared instead of static libraries
	SharedLibs bool

	// make parallelism, 0 means unbounded
	Jobs int

	// Abort when a clone fails instead of continuing to the build
	StrictFetch bool

	Kokkos  Repo
	Kernels Repo
	Tools   Repo

	Exec Executables
	Log  Log

	// Show a spinner while stages run
	Progress bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Target:      viper.GetString("target"),
		Arch:        viper.GetString("arch"),
		SetupScript: viper.GetString("setup_script"),
		BuildType:   viper.GetString("build_type"),
		CXXStandard: viper.GetString("cxx_standard"),
		SharedLibs:  viper.GetBool("shared_libs"),
		Jobs:        viper.GetInt("jobs"),
		StrictFetch: viper.GetBool("strict_fetch"),
		Kokkos:      loadRepo("kokkos"),
		Kernels:     loadRepo("kernels"),
		Tools:       loadRepo("tools"),
		Exec: Executables{
			Git:   viper.GetString("exec.git"),
			Shell: viper.GetString("exec.shell"),
			CMake: viper.GetString("exec.cmake"),
			Make:  viper.GetString("exec.make"),
		},
		Log: Log{
			Debug:   viper.GetBool("log.debug"),
			Warning: viper.GetBool("log.warning"),
			Error:   viper.GetBool("log.error"),
			Quiet:   viper.GetBool("log.quiet"),
			File:    viper.GetString("log.file"),
		},
		Progress: viper.GetBool("progress"),
	}

	// Apply defaults if not set
	if cfg.CXXStandard == "" {
		cfg.CXXStandard = DefaultCXXStandard
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadRepo(key string) Repo {
	return Repo{
		Enabled: viper.GetBool(key + ".enabled"),
		URL:     viper.GetString(key + ".repo"),
		Tag:     viper.GetString(key + ".tag"),
	}
}

func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("install target not specified")
	}

	abs, err := filepath.Abs(c.Target)
	if err != nil {
		return fmt.Errorf("invalid install target: %v", err)
	}

	c.Target = abs

	c.Architecture = arch.Parse(c.Arch)
	if c.Architecture.IsZero() {
		return fmt.Errorf("architecture not specified")
	}

	if c.BuildType == "" {
		return fmt.Errorf("build type not specified")
	}

	if err := c.validateSetupScript(); err != nil {
		return err
	}

	if _, err := strconv.Atoi(c.CXXStandard); err != nil {
		return fmt.Errorf("invalid c++ standard: %s", c.CXXStandard)
	}

	if c.Jobs < 0 {
		return fmt.Errorf("invalid job count: %d", c.Jobs)
	}

	for _, r := range []struct {
		name string
		repo Repo
	}{
		{"kokkos", c.Kokkos},
		{"kokkos-kernels", c.Kernels},
		{"kokkos-tools", c.Tools},
	} {
		if !r.repo.Enabled {
			continue
		}

		if _, err := r.repo.Target(); err != nil {
			return fmt.Errorf("invalid %s repository: %w", r.name, err)
		}
	}

	// Resolve log file path
	if c.Log.File != "" {
		abs, err := filepath.Abs(c.Log.File)
		if err != nil {
			return fmt.Errorf("invalid log file path: %v", err)
		}

		c.Log.File = abs
	}

	return nil
}

func (c *Config) validateSetupScript() error {
	if c.SetupScript == "" {
		return fmt.Errorf("setup script not specified")
	}

	abs, err := filepath.Abs(c.SetupScript)
	if err != nil {
		return fmt.Errorf("invalid setup script path: %v", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("setup script not found: %s", abs)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("setup script is not a regular file: %s", abs)
	}

	c.SetupScript = abs
	return nil
}

// LayoutVersion returns the version that names the install root: the core
// library tag
func (c *Config) LayoutVersion() string {
	return c.Kokkos.Tag
}

// LayoutName returns the core library name that prefixes the install root
func (c *Config) LayoutName() string {
	if name := source.RepoName(c.Kokkos.URL); name != "" {
		return name
	}

	return source.RepoName(DefaultKokkosRepo)
}
