package testutil

import (
	"os"
	"testing"
)

// ChangeWorkingDirectory switches to dir for the rest of the test.
func ChangeWorkingDirectory(t *testing.T, dir string) {
	t.Helper()

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Fatalf("failed to restore original directory: %v", err)
		}
	})
}
