package jsonx

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string    `json:"name"`
	Items []string  `json:"items"`
	Vec   []float64 `json:"vec"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sample{Name: "omelette", Items: []string{"egg", "milk"}, Vec: []float64{0.5, -1}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || len(out.Items) != 2 || out.Vec[1] != -1 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestDecode(t *testing.T) {
	var out []sample
	if err := Decode(strings.NewReader(`[{"name":"a"},{"name":"b"}]`), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1].Name != "b" {
		t.Errorf("got %+v", out)
	}
	if err := Decode(strings.NewReader(`{not json`), &out); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestEncode_Indent(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, map[string]int{"b": 2, "a": 1}, "  "); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "\n  \"a\": 1") {
		t.Errorf("expected indented output, got %q", out)
	}
	if strings.Index(out, `"a"`) > strings.Index(out, `"b"`) {
		t.Errorf("expected sorted keys, got %q", out)
	}
}
