package diff

import "testing"

func TestIdAtLeast(t *testing.T) {
	cases := []struct {
		name             string
		newID, currentID string
		want             bool
	}{
		{"empty current always newer", "5", "", true},
		{"exact duplicate dropped", "5", "5", false},
		{"numeric greater is newer", "6", "5", true},
		{"numeric lesser is not newer", "4", "5", false},
		{"opaque non-numeric differing is newer", "cursor-b", "cursor-a", true},
		{"opaque non-numeric exact match dropped", "cursor-a", "cursor-a", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := idAtLeast(c.newID, c.currentID); got != c.want {
				t.Fatalf("idAtLeast(%q, %q) = %v, want %v", c.newID, c.currentID, got, c.want)
			}
		})
	}
}
