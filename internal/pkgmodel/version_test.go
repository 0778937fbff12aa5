package pkgmodel

import "testing"

func TestCompareVersion(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.1.0", "1.0.0", true},
		{"1.0.0", "1.1.0", false},
		{"1.0.0", "1.0.0", false},
		{"2.0.0", "1.9.9", true},
		{"1.0.10", "1.0.9", true},
		{"1.0.9", "1.0.10", false},
		{"1.0", "1.0.0", false},
		{"1.0.1", "1.0", true},
		{"1.0.0-beta", "1.0.0-alpha", true},
		{"0.0.0", "0.0.0", false},
	}
	for _, c := range cases {
		if got := CompareVersion(c.a, c.b); got != c.want {
			t.Errorf("CompareVersion(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareVersionAntisymmetric(t *testing.T) {
	pairs := [][2]string{
		{"1.2.3", "1.2.4"},
		{"1.0.0", "1.0.0"},
		{"2.0", "1.9.9.9"},
		{"1.0.0-rc1", "1.0.0-rc2"},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		if CompareVersion(a, b) && CompareVersion(b, a) {
			t.Errorf("compare(%q,%q) and compare(%q,%q) both true", a, b, b, a)
		}
	}
}
