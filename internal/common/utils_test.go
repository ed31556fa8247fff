package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestPromptOverwrite(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Y\n", true},
		{"y\n", true},
		{"  y  \r\n", true},
		{"y", true},
		{"yes\n", false},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		confirm := PromptOverwrite(strings.NewReader(tt.input), &out)
		if got := confirm("weather_data.csv"); got != tt.want {
			t.Fatalf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "'weather_data.csv' already exists") {
			t.Fatalf("prompt not written, got %q", out.String())
		}
	}
}

func TestHasAny(t *testing.T) {
	if !HasAny("zero_results returned", "empty", "zero_results") {
		t.Fatal("expected match")
	}
	if HasAny("ok", "empty") {
		t.Fatal("unexpected match")
	}
}
