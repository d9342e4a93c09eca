package embedding

// ModelInputs are the three fixed-length buffers fed to the model.
type ModelInputs struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// BuildInputs packs seq into buffers of exactly MaxSequenceLength. Ids beyond the buffer are
// dropped, unused positions hold the padding id 0 and all token types are 0 (single segment).
func BuildInputs(seq TokenSequence) ModelInputs {
	in := ModelInputs{
		InputIDs:      make([]int64, MaxSequenceLength),
		AttentionMask: make([]int64, MaxSequenceLength),
		TokenTypeIDs:  make([]int64, MaxSequenceLength),
	}
	copy(in.InputIDs, seq.IDs)
	valid := seq.ValidLength
	if valid > MaxSequenceLength {
		valid = MaxSequenceLength
	}
	for i := 0; i < valid; i++ {
		in.AttentionMask[i] = 1
	}
	return in
}
