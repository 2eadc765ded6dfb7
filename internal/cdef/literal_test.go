package cdef

import "testing"

func TestLiteral(t *testing.T) {
	cases := []struct {
		v    float64
		p    Precision
		want string
	}{
		{4, Single, "4.0f"},
		{4, Double, "4.0"},
		{-3, Double, "-3.0"},
		{2.5, Single, "2.5f"},
		{0.1, Single, "0.1f"},
		{0.1, Double, "0.1000000000000000056"},
		{1.0 / 3.0, Single, "0.3333333333f"},
		{1e-5, Single, "1e-05f"},
		{1e20, Double, "100000000000000000000.0"},
	}
	for _, tc := range cases {
		got, err := Literal(tc.v, tc.p)
		if err != nil {
			t.Fatalf("Literal(%v, %s): %v", tc.v, tc.p, err)
		}
		if got != tc.want {
			t.Errorf("Literal(%v, %s) = %q, want %q", tc.v, tc.p, got, tc.want)
		}
	}
}

func TestParsePrecision(t *testing.T) {
	for in, want := range map[string]Precision{"": Single, "single": Single, "FLOAT": Single, " double ": Double} {
		got, err := ParsePrecision(in)
		if err != nil || got != want {
			t.Errorf("ParsePrecision(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePrecision("half"); err == nil {
		t.Fatalf("ParsePrecision(half) succeeded")
	}
}

func TestIsIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"coeffs": true, "_x1": true, "LOWPASS_TAPS": true,
		"": false, "1x": false, "a-b": false, "static": false, "név": false,
	} {
		if got := IsIdentifier(s); got != want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestBodyWriterNoBlankLine(t *testing.T) {
	w := newBodyWriter(Options{Pack: true, LineLength: 4}, 2)
	w.WriteValue("123456.0f", false)
	w.WriteValue("1.0f", true)
	got := string(w.Bytes())
	want := "    123456.0f,\n    1.0f\n"
	if got != want {
		t.Fatalf("body = %q, want %q", got, want)
	}
}
