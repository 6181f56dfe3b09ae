package analysis

import (
	"testing"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "Here you go:\n```json\n{\"steps\": []}\n```\nLet me know if you need more."
	obj, ok := ExtractJSON(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if _, ok := obj["steps"]; !ok {
		t.Fatal("expected steps key")
	}
}

func TestExtractJSONBraceSpan(t *testing.T) {
	raw := "The workflow contains: {\"steps\": [{\"action\": \"click\"}]} as requested."
	obj, ok := ExtractJSON(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if _, ok := obj["steps"]; !ok {
		t.Fatal("expected steps key")
	}
}

func TestExtractJSONPlainObject(t *testing.T) {
	obj, ok := ExtractJSON(`{"steps": []}`)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if _, ok := obj["steps"]; !ok {
		t.Fatal("expected steps key")
	}
}

func TestExtractJSONRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "not json at all", "```json\nnope\n```"} {
		if _, ok := ExtractJSON(raw); ok {
			t.Fatalf("expected failure for %q", raw)
		}
	}
}

func TestParseSteps(t *testing.T) {
	steps, err := ParseSteps(`{"steps": [{"type": "action", "action": "click", "description": "Click the button", "confidence": 92, "timestampSeconds": 1.5}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
	if steps[0].Action != "click" {
		t.Fatalf("unexpected action %q", steps[0].Action)
	}
	if steps[0].TimestampSeconds == nil || *steps[0].TimestampSeconds != 1.5 {
		t.Fatal("expected timestampSeconds 1.5")
	}
}

func TestParseStepsMissingField(t *testing.T) {
	_, err := ParseSteps(`{"result": "ok"}`)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*ResponseFormatError); !ok {
		t.Fatalf("expected ResponseFormatError, got %T", err)
	}
}

func TestParseStepsNotArray(t *testing.T) {
	_, err := ParseSteps(`{"steps": "none"}`)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestClampConfidence(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{92, 92},
		{0.85, 85},
		{1, 100},
		{-5, 0},
		{150, 100},
		{0, 0},
	}
	for _, tc := range cases {
		if got := clampConfidence(tc.in); got != tc.want {
			t.Errorf("clampConfidence(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
