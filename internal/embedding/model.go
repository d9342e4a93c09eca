package embedding

import (
	"context"
	"fmt"
	"math"
)

// Model input and output names at the ONNX boundary.
const (
	InputIDsName      = "input_ids"
	AttentionMaskName = "attention_mask"
	TokenTypeIDsName  = "token_type_ids"
)

// HiddenStates is the per-token model output, row-major with shape [batch, position, hidden].
type HiddenStates struct {
	Data  []float32
	Shape []int64
}

// Model runs the sentence-embedding network on one fixed-shape input.
type Model interface {
	Run(ctx context.Context, inputs ModelInputs) (*HiddenStates, error)
	// HiddenSize returns H when the model declares it, or 0 when it is only known after a run.
	HiddenSize() int
	Close() error
}

// ONNXOptions configures an ONNX Runtime model.
type ONNXOptions struct {
	ModelPath string
	// LibraryPath is the onnxruntime shared library; empty uses the platform default.
	LibraryPath string
	// OutputName selects the hidden-state output; empty uses the model's first output.
	OutputName string
	// HiddenSize is used when the model declares a symbolic hidden dimension.
	HiddenSize int
}

// FuncModel computes hidden states element by element. Used for tests and fixtures.
type FuncModel struct {
	hidden int
	fn     func(position, dim int, inputs ModelInputs) float32
}

// NewFuncModel returns a model whose output at [0][position][dim] is fn(position, dim, inputs).
func NewFuncModel(hiddenSize int, fn func(position, dim int, inputs ModelInputs) float32) *FuncModel {
	return &FuncModel{hidden: hiddenSize, fn: fn}
}

// Run fills a [1, MaxSequenceLength, H] output from fn.
func (m *FuncModel) Run(ctx context.Context, inputs ModelInputs) (*HiddenStates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs.InputIDs) != MaxSequenceLength {
		return nil, fmt.Errorf("input_ids length %d, want %d", len(inputs.InputIDs), MaxSequenceLength)
	}
	data := make([]float32, MaxSequenceLength*m.hidden)
	for j := 0; j < MaxSequenceLength; j++ {
		for h := 0; h < m.hidden; h++ {
			data[j*m.hidden+h] = m.fn(j, h, inputs)
		}
	}
	return &HiddenStates{Data: data, Shape: []int64{1, MaxSequenceLength, int64(m.hidden)}}, nil
}

// HiddenSize returns the configured hidden size.
func (m *FuncModel) HiddenSize() int { return m.hidden }

// Close is a no-op for FuncModel.
func (m *FuncModel) Close() error { return nil }

// NewHashModel returns a deterministic model whose hidden state at each position is derived
// from that position's token id. Its vectors carry no meaning; it lets the pipeline run
// without onnxruntime for demos and tests.
func NewHashModel(hiddenSize int) *FuncModel {
	if hiddenSize <= 0 {
		hiddenSize = 384
	}
	return NewFuncModel(hiddenSize, func(position, dim int, inputs ModelInputs) float32 {
		id := float64(inputs.InputIDs[position] + 1)
		return float32(math.Sin(id*float64(dim+1))*0.1 + 0.01)
	})
}
