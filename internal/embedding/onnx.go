//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXModel runs a sentence-transformer graph through ONNX Runtime. It requires CGO and the
// onnxruntime shared library. Input and output tensors are allocated once; Run is serialized.
type ONNXModel struct {
	session    *ort.AdvancedSession
	hiddenSize int

	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXModel loads the model at opts.ModelPath. The hidden size is read from the model's
// output shape, falling back to opts.HiddenSize when that dimension is symbolic.
func NewONNXModel(opts ONNXOptions) (*ONNXModel, error) {
	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	outputName, hidden, err := resolveOutput(opts)
	if err != nil {
		return nil, err
	}

	seqShape := ort.NewShape(1, int64(MaxSequenceLength))
	m := &ONNXModel{hiddenSize: hidden}
	if m.inputIDsTensor, err = ort.NewEmptyTensor[int64](seqShape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if m.attentionMaskTensor, err = ort.NewEmptyTensor[int64](seqShape); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if m.tokenTypeIDsTensor, err = ort.NewEmptyTensor[int64](seqShape); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outShape := ort.NewShape(1, int64(MaxSequenceLength), int64(hidden))
	if m.outputTensor, err = ort.NewEmptyTensor[float32](outShape); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{InputIDsName, AttentionMaskName, TokenTypeIDsName},
		[]string{outputName},
		[]ort.ArbitraryTensor{m.inputIDsTensor, m.attentionMaskTensor, m.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{m.outputTensor},
		nil,
	)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	m.session = session
	return m, nil
}

func resolveOutput(opts ONNXOptions) (string, int, error) {
	_, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read model outputs: %w", err)
	}
	if len(outputs) == 0 {
		return "", 0, fmt.Errorf("model %s declares no outputs", opts.ModelPath)
	}

	info := outputs[0]
	if opts.OutputName != "" {
		found := false
		for _, o := range outputs {
			if o.Name == opts.OutputName {
				info, found = o, true
				break
			}
		}
		if !found {
			return "", 0, fmt.Errorf("model has no output named %q", opts.OutputName)
		}
	}

	hidden := opts.HiddenSize
	if dims := info.Dimensions; len(dims) == 3 && dims[2] > 0 {
		hidden = int(dims[2])
	} else if len(dims) != 3 {
		return "", 0, fmt.Errorf("%w: output %q has shape %v", ErrMalformedOutput, info.Name, dims)
	}
	if hidden <= 0 {
		return "", 0, fmt.Errorf("output %q has a symbolic hidden size; set model.hidden_size", info.Name)
	}
	return info.Name, hidden, nil
}

// Run copies inputs into the session tensors and returns a copy of the hidden states.
func (m *ONNXModel) Run(ctx context.Context, inputs ModelInputs) (*HiddenStates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, fmt.Errorf("ONNX session closed")
	}
	copy(m.inputIDsTensor.GetData(), inputs.InputIDs)
	copy(m.attentionMaskTensor.GetData(), inputs.AttentionMask)
	copy(m.tokenTypeIDsTensor.GetData(), inputs.TokenTypeIDs)

	if err := m.session.Run(); err != nil {
		return nil, err
	}

	out := m.outputTensor.GetData()
	data := make([]float32, len(out))
	copy(data, out)
	shape := m.outputTensor.GetShape()
	return &HiddenStates{Data: data, Shape: append([]int64(nil), shape...)}, nil
}

// HiddenSize returns the embedding dimension H.
func (m *ONNXModel) HiddenSize() int {
	return m.hiddenSize
}

// Close destroys the session and tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.inputIDsTensor != nil {
		_ = m.inputIDsTensor.Destroy()
		m.inputIDsTensor = nil
	}
	if m.attentionMaskTensor != nil {
		_ = m.attentionMaskTensor.Destroy()
		m.attentionMaskTensor = nil
	}
	if m.tokenTypeIDsTensor != nil {
		_ = m.tokenTypeIDsTensor.Destroy()
		m.tokenTypeIDsTensor = nil
	}
	if m.outputTensor != nil {
		_ = m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	return err
}
