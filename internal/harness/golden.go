package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes the scenario at path and compares the result
// snapshot against a golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, path string) {
	t.Helper()

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}

	snapshot, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	snapshot = append(snapshot, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
}
