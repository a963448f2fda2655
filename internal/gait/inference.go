package gait

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Reconstructor is the inference collaborator of the reconstruction-based
// scoring model: it accepts a fixed-length numeric vector and returns an
// equal-length reconstructed vector.
type Reconstructor interface {
	Reconstruct(x []float64) ([]float64, error)
}

// tanhAutoencoder reconstructs a standardized feature vector through a
// single tanh hidden layer using the weights embedded in a model descriptor.
type tanhAutoencoder struct {
	enc     *mat.Dense
	encBias *mat.VecDense
	dec     *mat.Dense
	decBias *mat.VecDense
	inDim   int
}

// NewTanhAutoencoder builds the descriptor-weight reconstruction path.
func NewTanhAutoencoder(desc *ModelDescriptor) (Reconstructor, error) {
	enc, err := denseFromRows(desc.Encoder)
	if err != nil {
		return nil, fmt.Errorf("encoder weights: %w", err)
	}
	dec, err := denseFromRows(desc.Decoder)
	if err != nil {
		return nil, fmt.Errorf("decoder weights: %w", err)
	}
	hidden, in := enc.Dims()
	out, hidden2 := dec.Dims()
	if hidden != hidden2 {
		return nil, fmt.Errorf("encoder produces %d hidden units but decoder consumes %d", hidden, hidden2)
	}
	if in != out {
		return nil, fmt.Errorf("autoencoder input dimension %d does not match output dimension %d", in, out)
	}
	if len(desc.EncoderBias) != hidden {
		return nil, fmt.Errorf("encoder bias has %d entries, want %d", len(desc.EncoderBias), hidden)
	}
	if len(desc.DecoderBias) != out {
		return nil, fmt.Errorf("decoder bias has %d entries, want %d", len(desc.DecoderBias), out)
	}
	return &tanhAutoencoder{
		enc:     enc,
		encBias: mat.NewVecDense(hidden, append([]float64(nil), desc.EncoderBias...)),
		dec:     dec,
		decBias: mat.NewVecDense(out, append([]float64(nil), desc.DecoderBias...)),
		inDim:   in,
	}, nil
}

func (a *tanhAutoencoder) Reconstruct(x []float64) ([]float64, error) {
	if len(x) != a.inDim {
		return nil, fmt.Errorf("input has %d dimensions, want %d", len(x), a.inDim)
	}
	in := mat.NewVecDense(len(x), append([]float64(nil), x...))

	var hidden mat.VecDense
	hidden.MulVec(a.enc, in)
	hidden.AddVec(&hidden, a.encBias)
	for i := 0; i < hidden.Len(); i++ {
		hidden.SetVec(i, math.Tanh(hidden.AtVec(i)))
	}

	var out mat.VecDense
	out.MulVec(a.dec, &hidden)
	out.AddVec(&out, a.decBias)

	recon := make([]float64, out.Len())
	copy(recon, out.RawVector().Data)
	return recon, nil
}

// projectReconstruct projects z onto the basis directions (rows of basis)
// and reconstructs it back into feature space.
func projectReconstruct(z []float64, basis [][]float64) []float64 {
	k := len(basis)
	n := len(z)
	b, err := denseFromRows(basis)
	if err != nil {
		return make([]float64, n)
	}
	in := mat.NewVecDense(n, append([]float64(nil), z...))

	proj := mat.NewVecDense(k, nil)
	proj.MulVec(b, in)

	var recon mat.VecDense
	recon.MulVec(b.T(), proj)

	out := make([]float64, n)
	copy(out, recon.RawVector().Data)
	return out
}

func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("empty matrix row")
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix: row %d has %d entries, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
