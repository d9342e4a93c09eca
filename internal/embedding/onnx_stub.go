//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ErrONNXUnavailable is returned when the binary was built without CGO.
var ErrONNXUnavailable = errors.New("ONNX model requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXModel stub type when built without CGO (see onnx.go for real implementation).
type ONNXModel struct{}

// NewONNXModel returns an error when built without CGO.
func NewONNXModel(_ ONNXOptions) (*ONNXModel, error) {
	return nil, ErrONNXUnavailable
}

func (m *ONNXModel) Run(_ context.Context, _ ModelInputs) (*HiddenStates, error) {
	return nil, ErrONNXUnavailable
}

func (m *ONNXModel) HiddenSize() int { return 0 }

func (m *ONNXModel) Close() error { return nil }
