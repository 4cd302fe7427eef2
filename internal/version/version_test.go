package version

import "testing"

func TestString(t *testing.T) {
	origV, origSHA, origBuilt := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = origV, origSHA, origBuilt }()

	Version, GitSHA, BuildTime = "1.2.3", "abc123", "2026-01-02"
	if got, want := String(), "hyperion 1.2.3 (abc123, built 2026-01-02)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
