package watch

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"user", "user", true},
		{"human", "user", true},
		{"assistant", "assistant", true},
		{"system", "system", true},
		{"unknown", "", false},
		{"", "", false},
		{"thinking", "", false},
	}
	for _, c := range cases {
		got, ok := ParseRole(c.in)
		if ok != c.ok || string(got) != c.want {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseUUIDOrDeriveStable(t *testing.T) {
	a := ParseUUIDOrDerive("aider", "session-123")
	b := ParseUUIDOrDerive("aider", "session-123")
	if a != b {
		t.Fatalf("expected stable derivation, got %s != %s", a, b)
	}

	c := ParseUUIDOrDerive("aider", "session-456")
	if a == c {
		t.Fatal("expected different native ids to derive different uuids")
	}
}

func TestParseUUIDOrDerivePassesThroughValidUUID(t *testing.T) {
	valid := "550e8400-e29b-41d4-a716-446655440000"
	got := ParseUUIDOrDerive("claude-code", valid)
	if got.String() != valid {
		t.Fatalf("expected passthrough of valid uuid, got %s", got)
	}
}

func TestShouldDescend(t *testing.T) {
	cases := map[string]bool{
		".git":         false,
		"node_modules": false,
		"src":          true,
		".aider":       true,
		".hidden":      false,
	}
	for name, want := range cases {
		if got := ShouldDescend(name); got != want {
			t.Errorf("ShouldDescend(%q) = %v, want %v", name, got, want)
		}
	}
}
