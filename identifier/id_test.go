package identifier

import "testing"

func TestV4_VersionAndVariant(t *testing.T) {
	for i := 0; i < 32; i++ {
		id, err := V4()
		if err != nil {
			t.Fatalf("V4: %v", err)
		}
		version := id[6] >> 4
		if version != 4 {
			t.Fatalf("version nibble = %d, want 4", version)
		}
		variant := id[8] >> 6
		if variant != 0b10 {
			t.Fatalf("variant bits = %02b, want 10", variant)
		}
	}
}

func TestV5_Deterministic(t *testing.T) {
	ns := MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	a := V5(ns, []byte("astarte"))
	b := V5(ns, []byte("astarte"))
	if a != b {
		t.Fatalf("V5 not deterministic: %v != %v", a, b)
	}

	c := V5(ns, []byte("other"))
	if a == c {
		t.Fatal("V5 of different data produced identical identifiers")
	}

	version := a[6] >> 4
	if version != 5 {
		t.Fatalf("version nibble = %d, want 5", version)
	}
	variant := a[8] >> 6
	if variant != 0b10 {
		t.Fatalf("variant bits = %02b, want 10", variant)
	}
}

func TestString_RoundTrip(t *testing.T) {
	ns := MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	id := V5(ns, []byte("round-trip"))

	s := id.String()
	if len(s) != 36 {
		t.Fatalf("String length = %d, want 36", len(s))
	}
	for _, pos := range [4]int{8, 13, 18, 23} {
		if s[pos] != '-' {
			t.Fatalf("expected hyphen at %d, got %q", pos, s[pos])
		}
	}

	got, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	if got != id {
		t.Fatalf("round trip mismatch: %v != %v", got, id)
	}
}

func TestBase64URL_Form(t *testing.T) {
	ns := MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	id := V5(ns, []byte("b64"))
	s := id.Base64URL()
	if len(s) != 22 {
		t.Fatalf("Base64URL length = %d, want 22", len(s))
	}
	for _, c := range s {
		if c == '+' || c == '/' || c == '=' {
			t.Fatalf("Base64URL contains standard-alphabet or padding char: %q", s)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"too-short",
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8x",
		"6ba7b8109dad-11d1-80b4-00c04fd430c8Z",
		"zzzzzzzz-9dad-11d1-80b4-00c04fd430c8",
		"6ba7b810x9dad-11d1-80b4-00c04fd430c8",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", c)
		}
	}
}

func TestMustParse_PanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for invalid input")
		}
	}()
	MustParse("not-a-uuid")
}
