// Package tensor decodes flat lists of numeric tokens into model-shaped
// batches.
package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape describes one example as seen by the model.
type Shape struct {
	Timesteps int
	Features  int
	Outputs   int
}

// DefaultShape is the production model's shape: 13 timesteps of one feature
// and a single output.
var DefaultShape = Shape{Timesteps: 13, Features: 1, Outputs: 1}

// InputWidth is the number of values making up one unlabeled example.
func (s Shape) InputWidth() int {
	return s.Timesteps * s.Features
}

// LabeledWidth is the number of values making up one labeled example.
func (s Shape) LabeledWidth() int {
	return s.InputWidth() + s.Outputs
}

// Validate returns an error unless every dimension is at least one.
func (s Shape) Validate() error {
	if s.Timesteps < 1 || s.Features < 1 || s.Outputs < 1 {
		return fmt.Errorf("invalid shape %v: all dimensions must be positive", s)
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d,%d)->%d", s.Timesteps, s.Features, s.Outputs)
}

// Layout is the order in which an example's values are listed.
type Layout int

const (
	// TimestepMajor lists the feature vector of each timestep in turn.
	TimestepMajor Layout = iota
	// FeatureMajor lists each feature across all timesteps in turn.
	FeatureMajor
)

func (l Layout) String() string {
	if l == FeatureMajor {
		return "feature"
	}
	return "timestep"
}

// ParseLayout accepts "timestep" and "feature" (case-insensitive).
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "timestep", "timestep-major":
		return TimestepMajor, nil
	case "feature", "feature-major":
		return FeatureMajor, nil
	default:
		return TimestepMajor, fmt.Errorf("unknown layout %q (expected timestep or feature)", s)
	}
}

// Batch is indexed [example][timestep][feature].
type Batch [][][]float64

// Len returns the number of examples.
func (b Batch) Len() int { return len(b) }

// Flat returns every example flattened timestep-major.
func (b Batch) Flat() [][]float64 {
	out := make([][]float64, len(b))
	for i := range b {
		out[i] = Flatten(b[i])
	}
	return out
}

// CountError reports a value count that is not a positive multiple of the
// per-example width. With AtLeast set, any count of Width or more is valid.
type CountError struct {
	Width   int
	Got     int
	Labeled bool
	AtLeast bool
}

func (e *CountError) Error() string {
	name := "INPUT_SHAPE"
	if e.Labeled {
		name = "INPUT_SHAPE + OUTPUT_SHAPE"
	}
	rule := "a multiple of"
	if e.AtLeast {
		rule = "at least"
	}
	return fmt.Sprintf("Illegal number of arguments: expected <ModelPath> <InputValues>... (Number must be %s %s: %d) got %d", rule, name, e.Width, e.Got)
}

// ParseFloats parses every token as a 64-bit float.
func ParseFloats(tokens []string) ([]float64, error) {
	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q) is not a number: %w", i, tok, err)
		}
		values[i] = v
	}
	return values, nil
}

// Decode splits values into examples of shape.InputWidth() values each.
func Decode(values []float64, shape Shape, layout Layout) (Batch, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	width := shape.InputWidth()
	if len(values) == 0 || len(values)%width != 0 {
		return nil, &CountError{Width: width, Got: len(values)}
	}

	batch := make(Batch, 0, len(values)/width)
	for i := 0; i < len(values); i += width {
		batch = append(batch, example(values[i:i+width], shape, layout))
	}
	return batch, nil
}

// DecodeLabeled splits values into examples followed by shape.Outputs target
// values each.
func DecodeLabeled(values []float64, shape Shape, layout Layout) (Batch, [][]float64, error) {
	if err := shape.Validate(); err != nil {
		return nil, nil, err
	}
	width := shape.LabeledWidth()
	if len(values) == 0 || len(values)%width != 0 {
		return nil, nil, &CountError{Width: width, Got: len(values), Labeled: true}
	}

	n := len(values) / width
	batch := make(Batch, 0, n)
	targets := make([][]float64, 0, n)
	in := shape.InputWidth()
	for i := 0; i < len(values); i += width {
		batch = append(batch, example(values[i:i+in], shape, layout))
		targets = append(targets, append([]float64(nil), values[i+in:i+width]...))
	}
	return batch, targets, nil
}

func example(values []float64, shape Shape, layout Layout) [][]float64 {
	steps := make([][]float64, shape.Timesteps)
	for t := range steps {
		steps[t] = make([]float64, shape.Features)
		for f := range steps[t] {
			if layout == FeatureMajor {
				steps[t][f] = values[f*shape.Timesteps+t]
			} else {
				steps[t][f] = values[t*shape.Features+f]
			}
		}
	}
	return steps
}

// Flatten concatenates the timesteps of one example.
func Flatten(example [][]float64) []float64 {
	n := 0
	for _, step := range example {
		n += len(step)
	}
	flat := make([]float64, 0, n)
	for _, step := range example {
		flat = append(flat, step...)
	}
	return flat
}
