package pipeline

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/kbuild/internal/cmake"
)

// Plan describes what Run would do, without running anything
type Plan struct {
	Root        string        `yaml:"root"`
	Arch        string        `yaml:"arch"`
	Family      string        `yaml:"family,omitempty"`
	BuildType   string        `yaml:"build_type"`
	StrictFetch bool          `yaml:"strict_fetch"`
	Stages      []PlannedStep `yaml:"stages"`
	SetupScript string        `yaml:"setup_script"`
}

// PlannedStep is one stage of a plan
type PlannedStep struct {
	Name    string         `yaml:"name"`
	URL     string         `yaml:"url"`
	Tag     string         `yaml:"tag,omitempty"`
	Source  string         `yaml:"source"`
	Build   string         `yaml:"build,omitempty"`
	Install string         `yaml:"install,omitempty"`
	Options *cmake.Options `yaml:"options,omitempty"`
}

// Plan returns the layout and the stages of the configured run
func (p *Pipeline) Plan() (*Plan, error) {
	l, err := p.Layout()
	if err != nil {
		return nil, err
	}

	planned, err := stages(p.cfg)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Root:        l.Root(),
		Arch:        p.cfg.Architecture.Flag(),
		Family:      string(p.cfg.Architecture.Family()),
		BuildType:   p.cfg.BuildType,
		StrictFetch: p.cfg.StrictFetch,
		Stages:      []PlannedStep{},
		SetupScript: l.SetupScript(),
	}

	for _, s := range planned {
		step := PlannedStep{
			Name:   s.name(),
			URL:    s.target.URL,
			Tag:    s.target.Tag,
			Source: l.Source(s.target.Name()),
		}

		if s.kind == KindBuild {
			step.Build = l.Build(s.target.Name())
			step.Install = l.Install(s.target.Name())
			step.Options = s.opts
		}

		plan.Stages = append(plan.Stages, step)
	}

	return plan, nil
}

// Write renders the plan as YAML
func (pl *Plan) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(pl); err != nil {
		return err
	}

	return enc.Close()
}
