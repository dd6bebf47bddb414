package catalog

import "testing"

func TestSizeFromName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"combined label wins over its parts", "Midi Dress (size XS-S)", "(size XS-S)"},
		{"plain extra small", "Wrap Dress (size XS)", "(size XS)"},
		{"plain small", "Slip Dress (size S)", "(size S)"},
		{"medium", "Maxi Dress (size M)", "(size M)"},
		{"large", "Tea Dress (size L)", "(size L)"},
		{"extra large", "Shift Dress (size XL)", "(size XL)"},
		{"no recognized label", "Silk Scarf", ""},
		{"unrecognized label stays untagged", "Gown (size XXL)", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SizeFromName(tc.in); got != tc.want {
				t.Fatalf("SizeFromName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
