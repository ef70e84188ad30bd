package layer

import (
	"fmt"
)

// SequenceUnroller is a wrapper layer that unrolls a base layer over T time steps.
// Input is the timestep-major flattening of a [T][base.InSize()] sequence.
type SequenceUnroller struct {
	base      Layer
	timeSteps int
	returnSeq bool
	outputBuf []float64
	gradInBuf []float64
	stepGrad  []float64
}

// NewSequenceUnroller wraps base so that one Forward call consumes a whole sequence.
// With returnSeq the outputs of every step are concatenated, otherwise only
// the last step's output is returned.
func NewSequenceUnroller(base Layer, timeSteps int, returnSeq bool) *SequenceUnroller {
	outSize := base.OutSize()
	if returnSeq {
		outSize *= timeSteps
	}

	return &SequenceUnroller{
		base:      base,
		timeSteps: timeSteps,
		returnSeq: returnSeq,
		outputBuf: make([]float64, outSize),
		gradInBuf: make([]float64, timeSteps*base.InSize()),
		stepGrad:  make([]float64, base.OutSize()),
	}
}

func (s *SequenceUnroller) Forward(x []float64) []float64 {
	inSize := s.base.InSize()
	outSize := s.base.OutSize()

	if len(x) != s.timeSteps*inSize {
		panic(fmt.Sprintf("SequenceUnroller: input size mismatch. Expected %d, got %d", s.timeSteps*inSize, len(x)))
	}

	s.base.Reset()

	for t := 0; t < s.timeSteps; t++ {
		out := s.base.Forward(x[t*inSize : (t+1)*inSize])

		if s.returnSeq {
			copy(s.outputBuf[t*outSize:(t+1)*outSize], out)
		} else if t == s.timeSteps-1 {
			copy(s.outputBuf, out)
		}
	}

	return s.outputBuf
}

func (s *SequenceUnroller) Backward(grad []float64) []float64 {
	outSize := s.base.OutSize()
	inSize := s.base.InSize()

	for t := s.timeSteps - 1; t >= 0; t-- {
		switch {
		case s.returnSeq:
			copy(s.stepGrad, grad[t*outSize:(t+1)*outSize])
		case t == s.timeSteps-1:
			copy(s.stepGrad, grad)
		default:
			clear(s.stepGrad)
		}
		dx := s.base.Backward(s.stepGrad)
		copy(s.gradInBuf[t*inSize:(t+1)*inSize], dx)
	}

	return s.gradInBuf
}

func (s *SequenceUnroller) Params() []float64     { return s.base.Params() }
func (s *SequenceUnroller) SetParams(p []float64) { s.base.SetParams(p) }
func (s *SequenceUnroller) Gradients() []float64  { return s.base.Gradients() }
func (s *SequenceUnroller) ClearGradients()       { s.base.ClearGradients() }
func (s *SequenceUnroller) Reset()                { s.base.Reset() }
func (s *SequenceUnroller) InSize() int           { return s.timeSteps * s.base.InSize() }
func (s *SequenceUnroller) OutSize() int {
	if s.returnSeq {
		return s.timeSteps * s.base.OutSize()
	}
	return s.base.OutSize()
}

// Base returns the wrapped layer.
func (s *SequenceUnroller) Base() Layer { return s.base }

// TimeSteps returns the unrolled sequence length.
func (s *SequenceUnroller) TimeSteps() int { return s.timeSteps }

// ReturnSequences reports whether every step's output is returned.
func (s *SequenceUnroller) ReturnSequences() bool { return s.returnSeq }
