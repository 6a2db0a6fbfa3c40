// Package testutil holds the golden-file helpers formatter tests compare
// their rendered output against.
package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

var update = flag.Bool("update", false, "update golden files")

// CompareGolden diffs actual against the stored golden file. Running the
// tests with -update rewrites the file from the current output instead.
func CompareGolden(t *testing.T, goldenPath string, actual string) {
	t.Helper()

	if *update {
		writeGolden(t, goldenPath, []byte(actual))
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("read golden file %s: %v", goldenPath, err)
	}
	if actual != string(expected) {
		t.Errorf("output differs from %s\nexpected:\n%s\nactual:\n%s", goldenPath, expected, actual)
	}
}

// CompareGoldenSlice is CompareGolden for a string slice; the golden file
// stores a JSON array.
func CompareGoldenSlice(t *testing.T, goldenPath string, actual []string) {
	t.Helper()

	if *update {
		data, err := json.Marshal(actual)
		if err != nil {
			t.Fatalf("marshal golden slice: %v", err)
		}
		writeGolden(t, goldenPath, data)
		return
	}

	content, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("read golden file %s: %v", goldenPath, err)
	}
	var expected []string
	if err := json.Unmarshal(content, &expected); err != nil {
		t.Fatalf("parse golden file %s: %v", goldenPath, err)
	}
	if !slices.Equal(actual, expected) {
		t.Errorf("output differs from %s\nexpected: %v\nactual: %v", goldenPath, expected, actual)
	}
}

func writeGolden(t *testing.T, goldenPath string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		t.Fatalf("create golden dir for %s: %v", goldenPath, err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		t.Fatalf("update golden file %s: %v", goldenPath, err)
	}
	t.Logf("updated golden file: %s", goldenPath)
}
