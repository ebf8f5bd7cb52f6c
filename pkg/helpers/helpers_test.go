package helpers

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{10, "10.0"},
		{0, "0.0"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{123.456, "123.456"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.in); got != c.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	orig := []byte{0xde, 0xad, 0xbe, 0xef}
	encoded := BytesToHex(orig)
	if encoded != "deadbeef" {
		t.Fatalf("unexpected hex encoding: %s", encoded)
	}
	decoded, err := HexToBytes(encoded)
	if err != nil {
		t.Fatalf("HexToBytes: %v", err)
	}
	if string(decoded) != string(orig) {
		t.Fatalf("round trip mismatch: got %x want %x", decoded, orig)
	}
}
