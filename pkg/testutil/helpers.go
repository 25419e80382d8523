// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/lead-impact/internal/impact"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the impact if found, nil otherwise.
func FindScenario(results []impact.Impact, name string) *impact.Impact {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}
