package utils

import (
	"testing"
)

func TestToProperCase(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Single word", "pending", "Pending"},
		{"Snake case", "no_show", "No Show"},
		{"Kebab case", "follow-up", "Follow Up"},
		{"Already proper", "Completed", "Completed"},
		{"Upper case", "CANCELLED", "Cancelled"},
		{"Extra separators", "__no__show__", "No Show"},
		{"Prompt", "delete?", "Delete?"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToProperCase(tt.input)
			if result != tt.expected {
				t.Errorf("ToProperCase(%q) = %q; expected %q", tt.input, result, tt.expected)
			}
		})
	}
}
