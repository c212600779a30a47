package sequence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/stage"
)

// Version is the program format this package reads.
const Version = "seq.v1"

// Parse decodes and validates a yaml program.
func Parse(data []byte) (Program, error) {
	var prog Program
	if err := yaml.Unmarshal(data, &prog); err != nil {
		return Program{}, fmt.Errorf("decode program: %w", err)
	}
	if prog.Version == "" {
		prog.Version = Version
	}
	if err := prog.Validate(); err != nil {
		return Program{}, err
	}
	return prog, nil
}

// LoadFile reads a yaml program from disk.
func LoadFile(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("read program: %w", err)
	}
	prog, err := Parse(b)
	if err != nil {
		return Program{}, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Validate checks versions, durations, presets, easings and envelope
// targets.
func (prog Program) Validate() error {
	if prog.Version != Version {
		return fmt.Errorf("unsupported program version %q", prog.Version)
	}
	if len(prog.Clips) == 0 {
		return fmt.Errorf("program has no clips")
	}
	for i, c := range prog.Clips {
		where := fmt.Sprintf("clip %d (%s)", i, c.Name)
		if !(c.DurationS > 0) {
			return fmt.Errorf("%s: duration must be positive", where)
		}
		if c.XFadeS < 0 || c.XFadeS > c.DurationS {
			return fmt.Errorf("%s: crossfade must be within the clip", where)
		}
		if c.Preset != "" {
			if _, ok := stage.Preset(c.Preset); !ok {
				return fmt.Errorf("%s: unknown preset %q", where, c.Preset)
			}
		}
		for name, env := range c.Params {
			if !paramTarget(name) {
				return fmt.Errorf("%s: unknown param %q", where, name)
			}
			if err := checkEnvelope(env); err != nil {
				return fmt.Errorf("%s: param %q: %w", where, name, err)
			}
		}
		for name, env := range c.Bools {
			if name != BoolEngage {
				return fmt.Errorf("%s: unknown bool %q", where, name)
			}
			if err := checkEnvelope(env); err != nil {
				return fmt.Errorf("%s: bool %q: %w", where, name, err)
			}
		}
	}
	return nil
}

func paramTarget(name string) bool {
	switch name {
	case ParamScroll, ParamTiltX, ParamTiltY, ParamTiltMagnitude:
		return true
	}
	_, ok := params.Lookup(name)
	return ok
}

func checkEnvelope(env Envelope) error {
	for _, k := range env.Keys {
		if !validEase(k.Ease) {
			return fmt.Errorf("unknown ease %q", k.Ease)
		}
		if !params.Finite(k.T) || !params.Finite(k.V) {
			return fmt.Errorf("non-finite keyframe")
		}
	}
	return nil
}

// Marshal encodes a program as yaml.
func Marshal(prog Program) ([]byte, error) {
	return yaml.Marshal(prog)
}
