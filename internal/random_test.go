package internal

import "testing"

func TestRandomAlphanumericUsesAlphabet(t *testing.T) {
	s, err := RandomAlphanumeric(512)
	if err != nil {
		t.Fatalf("RandomAlphanumeric failed: %v", err)
	}
	if len(s) != 512 || !IsAlphanumeric(s) {
		t.Fatalf("unexpected output %q", s)
	}
}

func TestIsAlphanumeric(t *testing.T) {
	if !IsAlphanumeric(Alphanumeric) {
		t.Fatal("alphabet must validate")
	}
	for _, bad := range []string{"a b", "a_b", "a-b", "ü"} {
		if IsAlphanumeric(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
