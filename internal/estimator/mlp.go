package estimator

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// #region mlp-config
// MLPConfig sizes the network and its Adam optimizer.
type MLPConfig struct {
	Inputs       int
	InputScale   features.Vector // each feature is divided by its scale; 0 leaves it raw
	Hidden       int
	Outputs      int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
}

// DefaultMLPConfig returns a 6 -> 64 -> 64 -> topics network.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{
		Inputs:       features.Arity,
		InputScale:   features.Vector{10, 10, 100, 100, 10000, 2},
		Hidden:       64,
		Outputs:      learner.TopicCount,
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// #endregion mlp-config

// #region mlp
type dense struct {
	w, b           *mat.Dense // w: in x out, b: 1 x out
	mW, vW, mB, vB *mat.Dense
}

func newDense(in, out int, src Source) *dense {
	limit := math.Sqrt(6 / float64(in+out))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (2*src.Float64() - 1) * limit
	}
	return &dense{
		w:  mat.NewDense(in, out, w),
		b:  mat.NewDense(1, out, nil),
		mW: mat.NewDense(in, out, nil),
		vW: mat.NewDense(in, out, nil),
		mB: mat.NewDense(1, out, nil),
		vB: mat.NewDense(1, out, nil),
	}
}

// MLP is a two-hidden-layer ReLU network trained with one Adam step on mean
// squared error per Update. It is not safe for concurrent use; wrap it in a
// Guarded handle.
type MLP struct {
	cfg    MLPConfig
	layers []*dense
	step   int
}

// NewMLP builds a network with Glorot-uniform weights drawn from src.
func NewMLP(cfg MLPConfig, src Source) (*MLP, error) {
	if cfg.Inputs != features.Arity {
		return nil, fmt.Errorf("mlp inputs %d, want %d", cfg.Inputs, features.Arity)
	}
	if cfg.Hidden < 1 || cfg.Outputs < 1 {
		return nil, fmt.Errorf("mlp sizes must be positive: hidden=%d outputs=%d", cfg.Hidden, cfg.Outputs)
	}
	return &MLP{
		cfg: cfg,
		layers: []*dense{
			newDense(cfg.Inputs, cfg.Hidden, src),
			newDense(cfg.Hidden, cfg.Hidden, src),
			newDense(cfg.Hidden, cfg.Outputs, src),
		},
	}, nil
}

// Config returns the network configuration.
func (m *MLP) Config() MLPConfig {
	return m.cfg
}

// Predict runs a forward pass.
func (m *MLP) Predict(ctx context.Context, v features.Vector) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, acts := m.forward(m.input(v))
	return mat.Row(nil, 0, acts[len(acts)-1]), nil
}

// Update takes one Adam step toward target.
func (m *MLP) Update(ctx context.Context, v features.Vector, target []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(target) != m.cfg.Outputs {
		return fmt.Errorf("target length %d, want %d", len(target), m.cfg.Outputs)
	}

	pre, acts := m.forward(m.input(v))
	y := acts[len(acts)-1]

	// d(mean squared error)/dy
	n := float64(m.cfg.Outputs)
	delta := mat.NewDense(1, m.cfg.Outputs, nil)
	for j := 0; j < m.cfg.Outputs; j++ {
		delta.Set(0, j, 2*(y.At(0, j)-target[j])/n)
	}

	m.step++
	for i := len(m.layers) - 1; i >= 0; i-- {
		l := m.layers[i]

		var gW mat.Dense
		gW.Mul(acts[i].T(), delta)
		gB := mat.DenseCopyOf(delta)

		var prev *mat.Dense
		if i > 0 {
			prev = &mat.Dense{}
			prev.Mul(delta, l.w.T())
			z := pre[i-1]
			prev.Apply(func(_, c int, g float64) float64 {
				if z.At(0, c) > 0 {
					return g
				}
				return 0
			}, prev)
		}

		m.adam(l.w, &gW, l.mW, l.vW)
		m.adam(l.b, gB, l.mB, l.vB)
		delta = prev
	}
	return nil
}

func (m *MLP) input(v features.Vector) *mat.Dense {
	x := v.Slice()
	for i, s := range m.cfg.InputScale {
		if s != 0 {
			x[i] /= s
		}
	}
	return mat.NewDense(1, m.cfg.Inputs, x)
}

// forward returns the pre-activations of every layer and the activations
// including the input at index 0.
func (m *MLP) forward(x *mat.Dense) (pre, acts []*mat.Dense) {
	acts = append(acts, x)
	a := x
	for i, l := range m.layers {
		z := &mat.Dense{}
		z.Mul(a, l.w)
		z.Add(z, l.b)
		pre = append(pre, z)
		if i < len(m.layers)-1 {
			r := mat.DenseCopyOf(z)
			r.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, r)
			a = r
		} else {
			a = z
		}
		acts = append(acts, a)
	}
	return pre, acts
}

func (m *MLP) adam(p, g, mo, ve *mat.Dense) {
	b1, b2 := m.cfg.Beta1, m.cfg.Beta2
	c1 := 1 - math.Pow(b1, float64(m.step))
	c2 := 1 - math.Pow(b2, float64(m.step))
	rows, cols := p.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			gv := g.At(r, c)
			mv := b1*mo.At(r, c) + (1-b1)*gv
			vv := b2*ve.At(r, c) + (1-b2)*gv*gv
			mo.Set(r, c, mv)
			ve.Set(r, c, vv)
			p.Set(r, c, p.At(r, c)-m.cfg.LearningRate*(mv/c1)/(math.Sqrt(vv/c2)+m.cfg.Epsilon))
		}
	}
}

// #endregion mlp

// #region snapshot
// ParamCount returns the number of weights and biases.
func (m *MLP) ParamCount() int {
	n := 0
	for _, l := range m.layers {
		r, c := l.w.Dims()
		n += r*c + c
	}
	return n
}

// Snapshot flattens weights and biases layer by layer. Optimizer moments are
// not included.
func (m *MLP) Snapshot() []float64 {
	out := make([]float64, 0, m.ParamCount())
	for _, l := range m.layers {
		out = append(out, l.w.RawMatrix().Data...)
		out = append(out, l.b.RawMatrix().Data...)
	}
	return out
}

// Restore loads parameters produced by Snapshot of a same-shaped network.
func (m *MLP) Restore(params []float64) error {
	if len(params) != m.ParamCount() {
		return fmt.Errorf("restore: %d params, want %d", len(params), m.ParamCount())
	}
	off := 0
	for _, l := range m.layers {
		w := l.w.RawMatrix().Data
		off += copy(w, params[off:off+len(w)])
		b := l.b.RawMatrix().Data
		off += copy(b, params[off:off+len(b)])
	}
	return nil
}

// MarshalBinary encodes the layer sizes followed by the parameters as
// little-endian float64s.
func (m *MLP) MarshalBinary() ([]byte, error) {
	params := m.Snapshot()
	buf := make([]byte, 12+8*len(params))
	binary.LittleEndian.PutUint32(buf[0:], uint32(m.cfg.Inputs))
	binary.LittleEndian.PutUint32(buf[4:], uint32(m.cfg.Hidden))
	binary.LittleEndian.PutUint32(buf[8:], uint32(m.cfg.Outputs))
	for i, p := range params {
		binary.LittleEndian.PutUint64(buf[12+8*i:], math.Float64bits(p))
	}
	return buf, nil
}

// UnmarshalBinary loads parameters written by MarshalBinary. The encoded
// layer sizes must match this network.
func (m *MLP) UnmarshalBinary(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("unmarshal: %d bytes is too short", len(data))
	}
	in := int(binary.LittleEndian.Uint32(data[0:]))
	hidden := int(binary.LittleEndian.Uint32(data[4:]))
	out := int(binary.LittleEndian.Uint32(data[8:]))
	if in != m.cfg.Inputs || hidden != m.cfg.Hidden || out != m.cfg.Outputs {
		return fmt.Errorf("unmarshal: shape %dx%dx%d, want %dx%dx%d",
			in, hidden, out, m.cfg.Inputs, m.cfg.Hidden, m.cfg.Outputs)
	}
	body := data[12:]
	if len(body)%8 != 0 {
		return fmt.Errorf("unmarshal: trailing %d bytes", len(body)%8)
	}
	params := make([]float64, len(body)/8)
	for i := range params {
		params[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[8*i:]))
	}
	return m.Restore(params)
}

// #endregion snapshot
