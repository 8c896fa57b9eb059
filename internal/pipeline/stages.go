package pipeline

import (
	"github.com/Norgate-AV/kbuild/internal/arch"
	"github.com/Norgate-AV/kbuild/internal/cmake"
	"github.com/Norgate-AV/kbuild/internal/config"
	"github.com/Norgate-AV/kbuild/internal/source"
)

// Kind is what a stage does with its repository
type Kind string

const (
	KindFetch Kind = "fetch"
	KindBuild Kind = "build"
)

// stage is one step of the pipeline after the layout is prepared
type stage struct {
	kind   Kind
	target source.Target
	opts   *cmake.Options // build stages only
}

func (s stage) name() string {
	return string(s.kind) + " " + s.target.Name()
}

// CoreOptions returns the cmake options of the core library stage: the
// fixed flags followed by the architecture profile
func CoreOptions(cfg *config.Config, p arch.Profile) *cmake.Options {
	return cmake.NewOptions().
		SetBool(p.Arch.Flag(), true).
		Set("CMAKE_CXX_STANDARD", cfg.CXXStandard).
		SetBool("CMAKE_POSITION_INDEPENDENT_CODE", true).
		SetBool("BUILD_SHARED_LIBS", cfg.SharedLibs).
		SetBool("CMAKE_CXX_EXTENSIONS", true).
		Set("CMAKE_BUILD_TYPE", cfg.BuildType).
		Merge(p.Core)
}

// KernelsOptions returns the cmake options of the kernels library stage.
// The architecture reaches it through the installed core library, so only
// the profile's kernels fragment is added.
func KernelsOptions(cfg *config.Config, p arch.Profile) *cmake.Options {
	return cmake.NewOptions().
		SetBool("CMAKE_POSITION_INDEPENDENT_CODE", true).
		Set("CMAKE_BUILD_TYPE", cfg.BuildType).
		Set("CMAKE_CXX_STANDARD", cfg.CXXStandard).
		SetBool("BUILD_SHARED_LIBS", cfg.SharedLibs).
		Merge(p.Kernels)
}

// stages lists the enabled stages in execution order
func stages(cfg *config.Config) ([]stage, error) {
	profile := arch.Resolve(cfg.Architecture.Name())

	var out []stage

	if cfg.Kokkos.Enabled {
		t, err := cfg.Kokkos.Target()
		if err != nil {
			return nil, err
		}

		out = append(out,
			stage{kind: KindFetch, target: t},
			stage{kind: KindBuild, target: t, opts: CoreOptions(cfg, profile)},
		)
	}

	if cfg.Kernels.Enabled {
		t, err := cfg.Kernels.Target()
		if err != nil {
			return nil, err
		}

		out = append(out,
			stage{kind: KindFetch, target: t},
			stage{kind: KindBuild, target: t, opts: KernelsOptions(cfg, profile)},
		)
	}

	if cfg.Tools.Enabled {
		t, err := cfg.Tools.Target()
		if err != nil {
			return nil, err
		}

		out = append(out, stage{kind: KindFetch, target: t})
	}

	return out, nil
}
