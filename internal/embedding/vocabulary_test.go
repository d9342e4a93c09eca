package embedding

import (
	"errors"
	"strings"
	"testing"
)

func TestParseVocabulary(t *testing.T) {
	v, err := ParseVocabulary(strings.NewReader("[PAD]\n[UNK]\n[CLS]\negg \r\nmilk\n"))
	if err != nil {
		t.Fatalf("ParseVocabulary: %v", err)
	}
	if v.Size() != 5 {
		t.Errorf("Size = %d, want 5", v.Size())
	}
	if v.ID(UnknownToken) != 1 || v.ClassID() != 2 {
		t.Errorf("UNK=%d CLS=%d", v.ID(UnknownToken), v.ClassID())
	}
	if v.ID("egg") != 3 {
		t.Errorf("trailing whitespace not trimmed: egg=%d", v.ID("egg"))
	}
	if v.ID("butter") != 1 {
		t.Errorf("unknown token should map to [UNK], got %d", v.ID("butter"))
	}
}

func TestParseVocabulary_DuplicateLaterWins(t *testing.T) {
	v, err := ParseVocabulary(strings.NewReader("[UNK]\negg\negg\n"))
	if err != nil {
		t.Fatal(err)
	}
	if v.ID("egg") != 2 {
		t.Errorf("egg = %d, want 2", v.ID("egg"))
	}
}

func TestParseVocabulary_MissingUnknown(t *testing.T) {
	_, err := ParseVocabulary(strings.NewReader("[CLS]\negg\n"))
	if !errors.Is(err, ErrMissingUnknownToken) {
		t.Errorf("err = %v, want ErrMissingUnknownToken", err)
	}
}

func TestBuildInputs(t *testing.T) {
	in := BuildInputs(TokenSequence{IDs: []int64{1, 2, 3}, ValidLength: 3})
	for name, buf := range map[string][]int64{
		"input_ids":      in.InputIDs,
		"attention_mask": in.AttentionMask,
		"token_type_ids": in.TokenTypeIDs,
	} {
		if len(buf) != MaxSequenceLength {
			t.Errorf("%s length = %d", name, len(buf))
		}
	}
	for i := 0; i < MaxSequenceLength; i++ {
		wantMask := int64(0)
		if i < 3 {
			wantMask = 1
		}
		if in.AttentionMask[i] != wantMask {
			t.Fatalf("mask[%d] = %d, want %d", i, in.AttentionMask[i], wantMask)
		}
		if i >= 3 && in.InputIDs[i] != 0 {
			t.Fatalf("input_ids[%d] = %d, want padding", i, in.InputIDs[i])
		}
		if in.TokenTypeIDs[i] != 0 {
			t.Fatalf("token_type_ids[%d] = %d", i, in.TokenTypeIDs[i])
		}
	}
}
