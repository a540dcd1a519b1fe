package privacy

import "testing"

func TestMaskEmail(t *testing.T) {
	testCases := []struct {
		email    string
		expected string
	}{
		{"alice@example.com", "a***e@example.com"},
		{"ab@example.com", "**@example.com"},
		{"a@example.com", "*@example.com"},
		{"no-at-sign", "n********n"},
	}

	for _, tc := range testCases {
		t.Run(tc.email, func(t *testing.T) {
			if got := MaskEmail(tc.email); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestMaskName(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{"Alice Adams", "A*********s"},
		{"Bob", "B*b"},
		{"Al", "**"},
		{"A", "*"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskName(tc.name); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}
