package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldVersion, oldSHA := Version, GitSHA
	t.Cleanup(func() { Version, GitSHA = oldVersion, oldSHA })
	Version, GitSHA = "1.2.3", "abc123"

	got := String()
	for _, want := range []string{"1.2.3", "sdk 1.16.0", "api 16", "commit abc123"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
