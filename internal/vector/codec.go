package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float64Size = 8

// Encode packs x as little-endian IEEE 754 float64 values.
func Encode(x []float64) []byte {
	out := make([]byte, len(x)*float64Size)
	for i, v := range x {
		binary.LittleEndian.PutUint64(out[i*float64Size:(i+1)*float64Size], math.Float64bits(v))
	}
	return out
}

// Decode unpacks bytes written by Encode.
func Decode(b []byte) ([]float64, error) {
	if len(b)%float64Size != 0 {
		return nil, fmt.Errorf("vector: encoded length %d is not a multiple of %d", len(b), float64Size)
	}
	out := make([]float64, len(b)/float64Size)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*float64Size : (i+1)*float64Size]))
	}
	return out, nil
}
