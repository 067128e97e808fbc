package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(212) 555-0123", "+12125550123"},
		{"212-555-0123", "+12125550123"},
		{"+1 212 555 0123", "+12125550123"},
		{"  +12125550123  ", "+12125550123"},
		{"", ""},
		{"   ", ""},
		{"not a number", "not a number"},
		{"123", "123"}, // too short to be valid, returned as-is
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
