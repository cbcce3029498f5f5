package domain

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense row-major array of float64 values.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func NewTensor(shape []int, data []float64) (*Tensor, error) {
	t := &Tensor{Shape: slices.Clone(shape), Data: data}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

func Zeros(shape ...int) *Tensor {
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float64, numElements(shape))}
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

func (t *Tensor) Validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("%w: missing shape", ErrInvalidTensor)
	}

	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrInvalidTensor, t.Shape)
		}
	}

	if n := numElements(t.Shape); n != len(t.Data) {
		return fmt.Errorf("%w: shape %v needs %d values, got %d", ErrInvalidTensor, t.Shape, n, len(t.Data))
	}

	return nil
}

func (t *Tensor) SameShape(o *Tensor) bool {
	return slices.Equal(t.Shape, o.Shape)
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{Shape: slices.Clone(t.Shape), Data: slices.Clone(t.Data)}
}

// AlignSequence right-pads with zeros or right-truncates axis 1 of a [batch, sequence, hidden]
// tensor to length target. The receiver is returned as-is when the length already matches.
func (t *Tensor) AlignSequence(target int) (*Tensor, error) {
	if len(t.Shape) != 3 {
		return nil, fmt.Errorf("%w: expected rank 3, got shape %v", ErrInvalidTensor, t.Shape)
	}

	batch, seq, hidden := t.Shape[0], t.Shape[1], t.Shape[2]
	if seq == target {
		return t, nil
	}

	out := Zeros(batch, target, hidden)
	keep := min(seq, target) * hidden

	for b := 0; b < batch; b++ {
		src := t.Data[b*seq*hidden:]
		dst := out.Data[b*target*hidden:]
		copy(dst[:keep], src[:keep])
	}

	return out, nil
}

// BroadcastBatch repeats a batch-1 tensor along axis 0. Any other batch size must already match.
func (t *Tensor) BroadcastBatch(batch int) (*Tensor, bool) {
	if t.Shape[0] == batch {
		return t, true
	}

	if t.Shape[0] != 1 {
		return nil, false
	}

	shape := slices.Clone(t.Shape)
	shape[0] = batch

	data := make([]float64, 0, len(t.Data)*batch)
	for n := 0; n < batch; n++ {
		data = append(data, t.Data...)
	}

	return &Tensor{Shape: shape, Data: data}, true
}

// Scale returns a new tensor with every element multiplied by c.
func (t *Tensor) Scale(c float64) *Tensor {
	out := &Tensor{Shape: slices.Clone(t.Shape), Data: make([]float64, len(t.Data))}
	floats.ScaleTo(out.Data, c, t.Data)

	return out
}

// Lerp interpolates from start towards end by weight. Weight 0 yields start and weight 1 yields
// end bit for bit; the two halves are computed from opposite ends to keep that property.
func Lerp(start, end *Tensor, weight float64) (*Tensor, error) {
	if !start.SameShape(end) || len(start.Data) != len(end.Data) {
		return nil, fmt.Errorf("%w: cannot interpolate %v with %v", ErrInvalidTensor, start.Shape, end.Shape)
	}

	diff := make([]float64, len(start.Data))
	floats.SubTo(diff, end.Data, start.Data)

	out := &Tensor{Shape: slices.Clone(end.Shape), Data: make([]float64, len(end.Data))}
	if weight < 0.5 {
		floats.AddScaledTo(out.Data, start.Data, weight, diff)
	} else {
		floats.AddScaledTo(out.Data, end.Data, -(1-weight), diff)
	}

	return out, nil
}
