package util

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"3", int64(3)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{"true", true},
		{"null", nil},
		{`"42"`, "42"},
		{"red", "red"},
		{"Calle Mayor 1, Madrid", "Calle Mayor 1, Madrid"},
		{"12abc", "12abc"},
		{"1 2", "1 2"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseValue(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseAttributes(t *testing.T) {
	attrs, err := ParseAttributes([]string{"name=gear", "count=3", "note=a=b"})
	if err != nil {
		t.Fatalf("ParseAttributes failed: %v", err)
	}
	want := map[string]any{"name": "gear", "count": int64(3), "note": "a=b"}
	if !reflect.DeepEqual(attrs, want) {
		t.Errorf("Expected %v, got %v", want, attrs)
	}

	for _, bad := range []string{"name", "=value"} {
		if _, err := ParseAttributes([]string{bad}); err == nil {
			t.Errorf("Expected an error for %q", bad)
		}
	}
}

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
}
