// Package arch maps a Kokkos architecture identifier to the cmake options
// required to build for that hardware target.
//
// Identifiers are accepted in short form (VOLTA70, AMD_GFX90A) or flag form
// (Kokkos_ARCH_VOLTA70). Any other spelling, such as one with lowercase
// letters or a foreign _ARCH_ prefix, is taken verbatim as the flag name.
// Membership in the known families is an exact set lookup; identifiers
// outside every family are still accepted and only enable their own flag.
package arch

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Norgate-AV/kbuild/internal/cmake"
)

// FlagPrefix is the cmake prefix shared by every architecture option
const FlagPrefix = "Kokkos_ARCH_"

// HIPCompiler is the compiler requested for HIP builds. It is a deferred
// reference, resolved against the setup script's PATH at configure time.
const HIPCompiler = "$(which hipcc)"

// shortForm matches the names that follow FlagPrefix
var shortForm = regexp.MustCompile(`^[A-Z0-9]+(?:_[A-Z0-9]+)*$`)

// Family groups architectures that need the same backend options
type Family string

const (
	FamilyUnknown Family = ""
	FamilyCUDA    Family = "cuda"
	FamilyHIP     Family = "hip"
	FamilyOpenMP  Family = "openmp"
)

var families = map[Family]map[string]string{
	FamilyCUDA: {
		"VOLTA70":  "NVIDIA V100",
		"AMPERE80": "NVIDIA A100",
		"HOPPER90": "NVIDIA H100",
	},
	FamilyHIP: {
		"VEGA90A": "AMD MI250",
		"VEGA908": "AMD MI100",
	},
	FamilyOpenMP: {
		"SKX": "Intel Skylake-X",
	},
}

// Arch is a normalized architecture identifier
type Arch struct {
	name string

	// verbatim flag name, empty for short and flag form identifiers
	flag string
}

// Parse normalizes an identifier. The flag prefix is optional.
func Parse(id string) Arch {
	id = strings.TrimSpace(id)

	if name, ok := strings.CutPrefix(id, FlagPrefix); ok {
		return Arch{name: name}
	}

	if id == "" || (shortForm.MatchString(id) && !strings.Contains(id, "_ARCH_")) {
		return Arch{name: id}
	}

	return Arch{name: id, flag: id}
}

// Name is the short identifier, used for the layout directory
func (a Arch) Name() string {
	return a.name
}

// Flag is the self-named cmake option enabling this architecture
func (a Arch) Flag() string {
	if a.flag != "" {
		return a.flag
	}

	return FlagPrefix + a.name
}

// IsZero reports whether the identifier is empty
func (a Arch) IsZero() bool {
	return a.name == ""
}

// Family returns the family the architecture belongs to, or FamilyUnknown
func (a Arch) Family() Family {
	for fam, members := range families {
		if _, ok := members[a.name]; ok {
			return fam
		}
	}

	return FamilyUnknown
}

// Profile is the architecture dependent part of each stage's configuration
type Profile struct {
	Arch   Arch
	Family Family

	// Core holds the options added to the core library stage: the self-named
	// architecture flag followed by the backend options
	Core *cmake.Options

	// Kernels holds the options added to the kernels library stage
	Kernels *cmake.Options
}

// Resolve returns the profile of an architecture identifier
func Resolve(id string) Profile {
	a := Parse(id)
	p := Profile{
		Arch:    a,
		Family:  a.Family(),
		Core:    cmake.NewOptions(),
		Kernels: cmake.NewOptions(),
	}

	p.Core.SetBool(a.Flag(), true)

	switch p.Family {
	case FamilyCUDA:
		p.Core.SetBool("Kokkos_ENABLE_CUDA", true)
		p.Core.SetBool("Kokkos_ENABLE_CUDA_LAMBDA", true)
		p.Core.SetBool("Kokkos_ENABLE_CUDA_CONSTEXPR", true)
	case FamilyHIP:
		p.Core.SetBool("Kokkos_ENABLE_HIP", true)
		p.Core.Set("CMAKE_CXX_COMPILER", HIPCompiler)
		p.Kernels.Set("CMAKE_CXX_COMPILER", HIPCompiler)
	case FamilyOpenMP:
		p.Core.SetBool("Kokkos_ENABLE_OPENMP", true)
	}

	return p
}

// Known describes one architecture with a dedicated profile
type Known struct {
	Name        string
	Family      Family
	Description string
}

// List returns every architecture with a dedicated profile, sorted by family
// then name
func List() []Known {
	var out []Known
	for fam, members := range families {
		for name, desc := range members {
			out = append(out, Known{Name: name, Family: fam, Description: desc})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}

		return out[i].Name < out[j].Name
	})

	return out
}
