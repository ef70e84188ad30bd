package layer

import (
	"math"
	"math/rand"

	"github.com/openefs/prodforecast/internal/activations"
)

// Gate block order inside the weight and bias slices.
const (
	gateInput = iota
	gateForget
	gateCell
	gateOutput
	numGates
)

// LSTM is a Long Short-Term Memory layer that is stepped one time step per
// Forward call. Backward walks the stored steps in reverse (BPTT) and
// carries the hidden and cell gradients between calls.
type LSTM struct {
	inSize  int
	outSize int

	// Layout: [input_gate, forget_gate, cell_gate, output_gate]
	inputWeights     []float64 // 4 * outSize * inSize
	recurrentWeights []float64 // 4 * outSize * outSize
	biases           []float64 // 4 * outSize

	gateAct activations.Activation
	cellAct activations.Activation

	gradInputWeights     []float64
	gradRecurrentWeights []float64
	gradBiases           []float64

	// Per time step state kept for backprop.
	inputs  [][]float64
	preActs [][]float64 // 4 * outSize
	gates   [][]float64 // activated gates, 4 * outSize
	cells   [][]float64
	hiddens [][]float64

	timeStep int
	backStep int

	// Gradients carried from step t+1 to step t.
	dhNext []float64
	dcNext []float64

	outputBuf []float64
	dxBuf     []float64
	dGateBuf  []float64
	dhBuf     []float64
	zeros     []float64
}

// NewLSTM creates a new LSTM layer with Xavier initialized weights.
func NewLSTM(inSize, outSize int) *LSTM {
	inputScale := math.Sqrt(2.0 / float64(inSize+numGates*outSize))
	recurrentScale := math.Sqrt(2.0 / float64(outSize+numGates*outSize))

	inputWeights := make([]float64, numGates*outSize*inSize)
	recurrentWeights := make([]float64, numGates*outSize*outSize)
	biases := make([]float64, numGates*outSize)

	// Deterministic per-shape seed so freshly built models are reproducible.
	rng := rand.New(rand.NewSource(int64(inSize*1000 + outSize*100 + 142)))

	for i := 0; i < numGates*outSize; i++ {
		// forget gate starts open
		if i >= gateForget*outSize && i < (gateForget+1)*outSize {
			biases[i] = 1.0
		}
		for j := 0; j < inSize; j++ {
			inputWeights[i*inSize+j] = rng.Float64()*2*inputScale - inputScale
		}
		for j := 0; j < outSize; j++ {
			recurrentWeights[i*outSize+j] = rng.Float64()*2*recurrentScale - recurrentScale
		}
	}

	return &LSTM{
		inSize:           inSize,
		outSize:          outSize,
		inputWeights:     inputWeights,
		recurrentWeights: recurrentWeights,
		biases:           biases,
		gateAct:          activations.Sigmoid{},
		cellAct:          activations.Tanh{},

		gradInputWeights:     make([]float64, len(inputWeights)),
		gradRecurrentWeights: make([]float64, len(recurrentWeights)),
		gradBiases:           make([]float64, len(biases)),

		dhNext:    make([]float64, outSize),
		dcNext:    make([]float64, outSize),
		outputBuf: make([]float64, outSize),
		dxBuf:     make([]float64, inSize),
		dGateBuf:  make([]float64, numGates*outSize),
		dhBuf:     make([]float64, outSize),
		zeros:     make([]float64, outSize),
	}
}

// Reset resets the LSTM state for a new sequence.
func (l *LSTM) Reset() {
	l.timeStep = 0
	l.backStep = 0
	clear(l.dhNext)
	clear(l.dcNext)
}

// stepBuffer returns the buffer for time step t, growing the store on demand.
func stepBuffer(store *[][]float64, t, size int) []float64 {
	for len(*store) <= t {
		*store = append(*store, make([]float64, size))
	}
	return (*store)[t]
}

func (l *LSTM) prevHidden(t int) []float64 {
	if t == 0 {
		return l.zeros
	}
	return l.hiddens[t-1]
}

func (l *LSTM) prevCell(t int) []float64 {
	if t == 0 {
		return l.zeros
	}
	return l.cells[t-1]
}

// Forward performs a forward pass for one time step.
// x: input vector of length inSize
// Returns: hidden state of length outSize
func (l *LSTM) Forward(x []float64) []float64 {
	t := l.timeStep
	n := l.outSize

	in := stepBuffer(&l.inputs, t, l.inSize)
	pre := stepBuffer(&l.preActs, t, numGates*n)
	gates := stepBuffer(&l.gates, t, numGates*n)
	c := stepBuffer(&l.cells, t, n)
	h := stepBuffer(&l.hiddens, t, n)
	copy(in, x)

	hPrev := l.prevHidden(t)
	cPrev := l.prevCell(t)

	copy(pre, l.biases)
	for i := 0; i < numGates*n; i++ {
		sum := 0.0
		wBase := i * l.inSize
		for j := 0; j < l.inSize; j++ {
			sum += l.inputWeights[wBase+j] * in[j]
		}
		rBase := i * n
		for j := 0; j < n; j++ {
			sum += l.recurrentWeights[rBase+j] * hPrev[j]
		}
		pre[i] += sum
	}

	for i := 0; i < numGates*n; i++ {
		if i/n == gateCell {
			gates[i] = l.cellAct.Activate(pre[i])
		} else {
			gates[i] = l.gateAct.Activate(pre[i])
		}
	}

	// c = f * c_prev + i * g ; h = o * tanh(c)
	for k := 0; k < n; k++ {
		ig := gates[gateInput*n+k]
		fg := gates[gateForget*n+k]
		cg := gates[gateCell*n+k]
		og := gates[gateOutput*n+k]
		c[k] = fg*cPrev[k] + ig*cg
		h[k] = og * math.Tanh(c[k])
	}

	l.timeStep++
	l.backStep = l.timeStep
	clear(l.dhNext)
	clear(l.dcNext)

	copy(l.outputBuf, h)
	return l.outputBuf
}

// Backward performs backpropagation through time for the most recent step
// that has not been backpropagated yet.
// grad: gradient of loss w.r.t. that step's hidden output (length outSize)
// Returns: gradient of loss w.r.t. that step's input (length inSize)
func (l *LSTM) Backward(grad []float64) []float64 {
	t := l.backStep - 1
	if t < 0 {
		clear(l.dxBuf)
		return l.dxBuf
	}
	n := l.outSize

	in := l.inputs[t]
	pre := l.preActs[t]
	gates := l.gates[t]
	c := l.cells[t]
	hPrev := l.prevHidden(t)
	cPrev := l.prevCell(t)

	dh := l.dhBuf
	for k := 0; k < n; k++ {
		dh[k] = grad[k] + l.dhNext[k]
	}

	dGate := l.dGateBuf
	for k := 0; k < n; k++ {
		ig := gates[gateInput*n+k]
		fg := gates[gateForget*n+k]
		cg := gates[gateCell*n+k]
		og := gates[gateOutput*n+k]
		tanhC := math.Tanh(c[k])

		dc := dh[k]*og*(1-tanhC*tanhC) + l.dcNext[k]

		dGate[gateInput*n+k] = dc * cg * l.gateAct.Derivative(pre[gateInput*n+k])
		dGate[gateForget*n+k] = dc * cPrev[k] * l.gateAct.Derivative(pre[gateForget*n+k])
		dGate[gateCell*n+k] = dc * ig * l.cellAct.Derivative(pre[gateCell*n+k])
		dGate[gateOutput*n+k] = dh[k] * tanhC * l.gateAct.Derivative(pre[gateOutput*n+k])

		l.dcNext[k] = dc * fg
	}

	for i := 0; i < numGates*n; i++ {
		dg := dGate[i]
		l.gradBiases[i] += dg
		wBase := i * l.inSize
		for j := 0; j < l.inSize; j++ {
			l.gradInputWeights[wBase+j] += dg * in[j]
		}
		rBase := i * n
		for j := 0; j < n; j++ {
			l.gradRecurrentWeights[rBase+j] += dg * hPrev[j]
		}
	}

	// dL/dx = W_x^T * d_gates
	for j := 0; j < l.inSize; j++ {
		sum := 0.0
		for i := 0; i < numGates*n; i++ {
			sum += l.inputWeights[i*l.inSize+j] * dGate[i]
		}
		l.dxBuf[j] = sum
	}

	// dL/dh_prev = W_h^T * d_gates
	for j := 0; j < n; j++ {
		sum := 0.0
		for i := 0; i < numGates*n; i++ {
			sum += l.recurrentWeights[i*n+j] * dGate[i]
		}
		l.dhNext[j] = sum
	}

	l.backStep--
	return l.dxBuf
}

// Params returns all LSTM parameters flattened (copy).
func (l *LSTM) Params() []float64 {
	params := make([]float64, 0, len(l.inputWeights)+len(l.recurrentWeights)+len(l.biases))
	params = append(params, l.inputWeights...)
	params = append(params, l.recurrentWeights...)
	params = append(params, l.biases...)
	return params
}

// SetParams updates weights and biases from a flattened slice.
func (l *LSTM) SetParams(params []float64) {
	totalInput := len(l.inputWeights)
	totalRecurrent := len(l.recurrentWeights)

	copy(l.inputWeights, params[:totalInput])
	copy(l.recurrentWeights, params[totalInput:totalInput+totalRecurrent])
	copy(l.biases, params[totalInput+totalRecurrent:])
}

// Gradients returns all LSTM gradients flattened (copy).
func (l *LSTM) Gradients() []float64 {
	gradients := make([]float64, 0, len(l.gradInputWeights)+len(l.gradRecurrentWeights)+len(l.gradBiases))
	gradients = append(gradients, l.gradInputWeights...)
	gradients = append(gradients, l.gradRecurrentWeights...)
	gradients = append(gradients, l.gradBiases...)
	return gradients
}

// ClearGradients zeroes out the accumulated gradients.
func (l *LSTM) ClearGradients() {
	clear(l.gradInputWeights)
	clear(l.gradRecurrentWeights)
	clear(l.gradBiases)
}

// InSize returns the input size of the LSTM.
func (l *LSTM) InSize() int {
	return l.inSize
}

// OutSize returns the output size (hidden state) of the LSTM.
func (l *LSTM) OutSize() int {
	return l.outSize
}

// Hidden returns the hidden state after the latest forward step.
func (l *LSTM) Hidden() []float64 {
	return l.outputBuf
}
