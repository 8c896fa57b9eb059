package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys bound one to one to a command flag
var flagKeys = map[string]string{
	"target":              "target",
	"arch":                "arch",
	"setup-script":        "setup_script",
	"build-type":          "build_type",
	"cstd":                "cxx_standard",
	"shared-libs":         "shared_libs",
	"jobs":                "jobs",
	"strict-fetch":        "strict_fetch",
	"kokkos-repo":         "kokkos.repo",
	"kokkos-tag":          "kokkos.tag",
	"kokkos-kernels-repo": "kernels.repo",
	"kokkos-kernels-tag":  "kernels.tag",
	"kokkos-tools-repo":   "tools.repo",
	"kokkos-tools-tag":    "tools.tag",
	"debug":               "log.debug",
	"warning":             "log.warning",
	"error":               "log.error",
	"quiet":               "log.quiet",
	"log-file":            "log.file",
}

// Switches that turn a default-on key off
var negatedKeys = map[string]string{
	"no-kokkos":   "kokkos.enabled",
	"no-kernels":  "kernels.enabled",
	"no-tools":    "tools.enabled",
	"no-progress": "progress",
}

// Loader handles configuration loading from various sources
type Loader struct {
	// ConfigDir holds the global config.<ext>. Empty selects
	// <user config dir>/kbuild.
	ConfigDir string

	// WorkDir is where the search for .kbuild.<ext> starts. Empty selects
	// the process working directory.
	WorkDir string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForBuild loads configuration for the build and plan commands. Later
// sources override earlier ones: defaults, environment, global config, local
// config, flags.
func (l *Loader) LoadForBuild(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("cxx_standard", DefaultCXXStandard)
	viper.SetDefault("shared_libs", DefaultSharedLibs)
	viper.SetDefault("jobs", DefaultJobs)
	viper.SetDefault("strict_fetch", DefaultStrictFetch)
	viper.SetDefault("progress", true)

	viper.SetDefault("kokkos.enabled", true)
	viper.SetDefault("kokkos.repo", DefaultKokkosRepo)
	viper.SetDefault("kokkos.tag", DefaultKokkosTag)
	viper.SetDefault("kernels.enabled", true)
	viper.SetDefault("kernels.repo", DefaultKernelsRepo)
	viper.SetDefault("kernels.tag", DefaultKernelsTag)
	viper.SetDefault("tools.enabled", true)
	viper.SetDefault("tools.repo", DefaultToolsRepo)
	viper.SetDefault("tools.tag", DefaultToolsTag)

	viper.SetEnvPrefix("kbuild")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func (l *Loader) globalDir() string {
	if l.ConfigDir != "" {
		return l.ConfigDir
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "kbuild")
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	path := FindGlobalConfig(l.globalDir())
	if path == "" {
		return
	}

	viper.SetConfigFile(path)
	_ = viper.MergeInConfig()
}

// loadLocalConfig merges the nearest .kbuild.<ext> over the global config
func (l *Loader) loadLocalConfig() {
	dir := l.WorkDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return // silently ignore, config.Load() will handle validation
		}

		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}

	localPath := FindLocalConfig(abs)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}

	for name, key := range negatedKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}

		if off, err := flags.GetBool(name); err == nil {
			viper.Set(key, !off)
		}
	}
}

// AddBuildFlags registers the flags read by LoadForBuild on fs
func AddBuildFlags(fs *pflag.FlagSet) {
	fs.StringP("target", "t", "", "Base directory for the installation")
	fs.StringP("arch", "a", "", "Target architecture, e.g. VOLTA70 or Kokkos_ARCH_VOLTA70")
	fs.StringP("setup-script", "b", "", "Script sourced before configuring each package")
	fs.StringP("build-type", "r", "", "cmake build type, e.g. Release or Debug")

	fs.Bool("no-kokkos", false, "Skip fetching and building kokkos")
	fs.Bool("no-kernels", false, "Skip fetching and building kokkos-kernels")
	fs.Bool("no-tools", false, "Skip fetching kokkos-tools")

	fs.String("kokkos-repo", DefaultKokkosRepo, "kokkos repository url")
	fs.String("kokkos-tag", DefaultKokkosTag, "kokkos tag, empty for the default branch")
	fs.String("kokkos-kernels-repo", DefaultKernelsRepo, "kokkos-kernels repository url")
	fs.String("kokkos-kernels-tag", DefaultKernelsTag, "kokkos-kernels tag, empty for the default branch")
	fs.String("kokkos-tools-repo", DefaultToolsRepo, "kokkos-tools repository url")
	fs.String("kokkos-tools-tag", DefaultToolsTag, "kokkos-tools tag, empty for the default branch")

	fs.StringP("cstd", "c", DefaultCXXStandard, "C++ standard")
	fs.Bool("shared-libs", DefaultSharedLibs, "Build shared libraries")
	fs.IntP("jobs", "j", DefaultJobs, "make parallelism, 0 for unbounded")
	fs.Bool("strict-fetch", DefaultStrictFetch, "Abort when a clone fails")

	fs.Bool("debug", false, "Log debug messages")
	fs.Bool("warning", false, "Log warnings and errors only")
	fs.Bool("error", false, "Log errors only")
	fs.BoolP("quiet", "q", false, "Same as --error")
	fs.String("log-file", "", "Write logs to this file instead of stderr")
	fs.Bool("no-progress", false, "Do not show a spinner while stages run")
}
