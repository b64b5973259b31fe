package cleanup

import (
	"errors"
	"fmt"
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n[1]\n```", "[1]"},
		{"```\n[1]\n```", "[1]"},
		{"  ```JSON\n[2]\n```  ", "[2]"},
		{"[1]", "[1]"},
		{"```[1]", "[1]"},
		{"[\"``` inside\"]", "[\"``` inside\"]"},
		{"```json\n{\"a\":\"```x\"}\n```", "{\"a\":\"```x\"}"},
	}

	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDataURI(t *testing.T) {
	uri, err := ParseDataURI("data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uri.Metadata != "data:image/png;base64" || uri.Payload != "AAAA" {
		t.Fatalf("unexpected split %+v", uri)
	}

	// only the first comma separates metadata from payload
	uri, err = ParseDataURI("data:text/csv,a,b")
	if err != nil || uri.Metadata != "data:text/csv" || uri.Payload != "a,b" {
		t.Fatalf("unexpected split %+v, %v", uri, err)
	}

	for _, bad := range []string{"", "AAAA", ",AAAA", "data:image/png;base64,", "data:image/png;base64,  "} {
		if _, err := ParseDataURI(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("plain"), KindUnknown},
		{fmt.Errorf("wrapped: %w", &ConfigurationError{MissingKey: true}), KindConfiguration},
		{&ClientProtocolError{Reason: "bad"}, KindClientProtocol},
		{&TerminalExternalError{Status: 400}, KindTerminal},
		{&ExhaustionError{Attempts: 5, Last: &TransientExternalError{Status: 503}}, KindExhausted},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
