package schema

import (
	"strings"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1..6", "1..6", false},
		{"3..18", "3..18", false},
		{"1..", "1..", false},
		{"..20", "..20", false},
		{"-2..2", "-2..2", false},
		{"0.5..1.5", "0.5..1.5", false},
		{"..", "", true},
		{"6..1", "", true},
		{"abc..2", "", true},
		{"1..2..3", "", true},
		{"16", "", true},
	}

	for _, tt := range tests {
		r, err := ParseRange(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && r.String() != tt.want {
			t.Errorf("ParseRange(%q).String() = %q, want %q", tt.in, r.String(), tt.want)
		}
	}
}

func TestRangeCheck(t *testing.T) {
	r, err := ParseRange("3..18")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	for _, ok := range []any{3, 18, 10, float64(3.5), "12"} {
		if err := r.Check(ok); err != nil {
			t.Errorf("Check(%v) = %v, want in range", ok, err)
		}
	}
	for _, bad := range []any{2, 19, float64(18.01), -4} {
		if err := r.Check(bad); err == nil {
			t.Errorf("Check(%v) accepted out-of-range value", bad)
		}
	}
	if err := r.Check("knave"); err == nil || !strings.Contains(err.Error(), "requires a number") {
		t.Errorf("Check on non-number = %v", err)
	}
}

func TestRangeOpenBounds(t *testing.T) {
	atLeast, _ := ParseRange("1..")
	if err := atLeast.Check(999); err != nil {
		t.Errorf("open upper bound rejected 999: %v", err)
	}
	if err := atLeast.Check(0); err == nil {
		t.Error("open upper bound accepted 0")
	}

	atMost, _ := ParseRange("..20")
	if err := atMost.Check(-100); err != nil {
		t.Errorf("open lower bound rejected -100: %v", err)
	}
	if err := atMost.Check(21); err == nil {
		t.Error("open lower bound accepted 21")
	}
}

func TestEnumCheck(t *testing.T) {
	moods := Enum{"brave", "cautious", "reckless"}
	if err := moods.Check("brave"); err != nil {
		t.Errorf("member rejected: %v", err)
	}
	if err := moods.Check("timid"); err == nil {
		t.Error("non-member accepted")
	}

	levels := Enum{1, 2, 3}
	// JSON decoding hands back float64; membership must still hold.
	if err := levels.Check(float64(2)); err != nil {
		t.Errorf("float64(2) rejected by int enum: %v", err)
	}
	if err := levels.Check(4); err == nil {
		t.Error("4 accepted by enum of 1..3")
	}
}

func TestEnumCheckMessage(t *testing.T) {
	e := Enum{"a", "b"}
	err := e.Check("z")
	if err == nil || !strings.Contains(err.Error(), "not in allowed set") {
		t.Errorf("got %v", err)
	}
}
