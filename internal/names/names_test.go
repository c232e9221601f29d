package names

import (
	"testing"
	"time"
)

func TestSetName(t *testing.T) {
	if got := SetName("A2b"); got != "Shining Revelry" {
		t.Fatalf("SetName(A2b) = %q", got)
	}
	if got := SetName("ZZ"); got != "ZZ" {
		t.Fatalf("unknown code should fall back to itself, got %q", got)
	}
}

func TestSetForPack(t *testing.T) {
	cases := map[string]string{
		"Charizard":    "A1",
		"Mew":          "A1a",
		"MegaGyarados": "B1",
		"  Eevee  ":    "A3b",
		"NotAPack":     "",
	}
	for pack, want := range cases {
		if got := SetForPack(pack); got != want {
			t.Errorf("SetForPack(%q) = %q, want %q", pack, got, want)
		}
	}
}

func TestSplitRarity(t *testing.T) {
	cases := []struct {
		in, name, rarity string
	}{
		{"Pikachu (2S)", "Pikachu", "Super / Special Rare"},
		{"Mewtwo (CR)", "Mewtwo", "Crown Rare"},
		{"Snorlax (XX)", "Snorlax", "XX"},
		{"Bulbasaur", "Bulbasaur", ""},
		{"Mr. Mime (1D)", "Mr. Mime", "Common"},
	}
	for _, tc := range cases {
		name, rarity := SplitRarity(tc.in)
		if name != tc.name || rarity != tc.rarity {
			t.Errorf("SplitRarity(%q) = (%q, %q), want (%q, %q)", tc.in, name, rarity, tc.name, tc.rarity)
		}
	}
}

func TestAccountAge(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	if got := AccountAge("20260101000000", now); got != 9 {
		t.Fatalf("AccountAge = %d, want 9", got)
	}
	if got := AccountAge("Account Unknown", now); got != 0 {
		t.Fatalf("non-timestamp name should age 0, got %d", got)
	}
}
