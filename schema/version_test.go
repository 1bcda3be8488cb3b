package schema

import "testing"

func TestParseVersionRoundTrip(t *testing.T) {
	v, err := ParseVersion("1.2.3")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	if v != (Version{Major: 1, Minor: 2, Patch: 3}) {
		t.Fatalf("ParseVersion = %+v", v)
	}
	if v.String() != "1.2.3" {
		t.Fatalf("String = %q", v.String())
	}
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	for _, s := range []string{"1.2", "1.2.3.4", "a.b.c", ""} {
		if _, err := ParseVersion(s); err == nil {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestCompatibleRequiresSameMajorMinor(t *testing.T) {
	runtime := Version{Major: 1, Minor: 0, Patch: 5}
	if (Version{Major: 2, Minor: 0, Patch: 5}).Compatible(runtime) {
		t.Fatalf("different major must not be compatible")
	}
	if (Version{Major: 1, Minor: 1, Patch: 5}).Compatible(runtime) {
		t.Fatalf("different minor must not be compatible")
	}
}

func TestCompatibleStableMinorAllowsTrailingPatch(t *testing.T) {
	runtime := Version{Major: 1, Minor: 0, Patch: 5}
	if !(Version{Major: 1, Minor: 0, Patch: 3}).Compatible(runtime) {
		t.Fatalf("file patch trailing runtime patch on a stable (even) minor must be compatible")
	}
	if (Version{Major: 1, Minor: 0, Patch: 6}).Compatible(runtime) {
		t.Fatalf("file patch ahead of runtime patch must not be compatible")
	}
}

func TestCompatibleUnstableMinorRequiresExactPatch(t *testing.T) {
	runtime := Version{Major: 1, Minor: 1, Patch: 5}
	if !(Version{Major: 1, Minor: 1, Patch: 5}).Compatible(runtime) {
		t.Fatalf("exact patch match on an unstable (odd) minor must be compatible")
	}
	if (Version{Major: 1, Minor: 1, Patch: 4}).Compatible(runtime) {
		t.Fatalf("trailing patch on an unstable (odd) minor must not be compatible")
	}
}
