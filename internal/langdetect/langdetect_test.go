package langdetect

import "testing"

func TestDetect(t *testing.T) {
	d := New()
	cases := []struct {
		text string
		code string
		name string
	}{
		{"Bessie Coleman was an early American civil aviator and the first African-American woman to hold a pilot license.", "en", "English"},
		{"Bessie Coleman war eine amerikanische Pilotin und die erste afroamerikanische Frau mit einer Fluglizenz.", "de", "German"},
		{"Bessie Coleman était une aviatrice américaine et la première femme afro-américaine à obtenir un brevet de pilote.", "fr", "French"},
	}
	for _, tc := range cases {
		got, ok := d.Detect(tc.text)
		if !ok {
			t.Errorf("no language detected for %q", tc.text)
			continue
		}
		if got.Code != tc.code || got.Name != tc.name {
			t.Errorf("Detect = %+v, want %s/%s", got, tc.code, tc.name)
		}
	}
}

func TestDetect_Blank(t *testing.T) {
	if _, ok := New().Detect("   \n"); ok {
		t.Error("blank text should not be detected")
	}
}
