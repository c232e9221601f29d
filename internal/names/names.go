package names

import (
	"strings"
	"time"
)

// SetNames maps set codes to their display names.
var SetNames = map[string]string{
	"A1":  "Genetic Apex",
	"A1a": "Mythical Island",
	"A2":  "Space-Time Smackdown",
	"A2a": "Triumphant Light",
	"A2b": "Shining Revelry",
	"A3":  "Celestial Guardians",
	"A3a": "Extradimensional Crisis",
	"A3b": "Eevee Grove",
	"A4":  "Wisdom of Sea and Sky",
	"A4a": "Secluded Springs",
	"A4b": "Deluxe Pack Ex",
	"B1":  "Mega Rising",
	"B1a": "Crimson Blaze",
	"B2":  "Fantastical Parade",
	"P-A": "Promo A",
	"P-B": "Promo B",
}

// Rarity codes as they appear in card names, e.g. "Pikachu (2S)".
var RarityNames = map[string]string{
	"1D": "Common",
	"2D": "Uncommon",
	"3D": "Rare",
	"4D": "Double Rare",
	"1S": "Illustration Rare",
	"2S": "Super / Special Rare",
	"3S": "Immersive",
	"CR": "Crown Rare",
}

// packSets maps exporter pack names to set codes. The exporter labels packs
// by their cover Pokemon, not by set code.
var packSets = map[string]string{
	"Charizard":      "A1",
	"Mewtwo":         "A1",
	"Pikachu":        "A1",
	"Mew":            "A1a",
	"Palkia":         "A2",
	"Dialga":         "A2",
	"Arceus":         "A2a",
	"Shining":        "A2b",
	"Lunala":         "A3",
	"Solgaleo":       "A3",
	"Buzzwole":       "A3a",
	"Eevee":          "A3b",
	"HoOh":           "A4",
	"Lugia":          "A4",
	"Springs":        "A4a",
	"Deluxe":         "A4b",
	"Deluxe Pack Ex": "A4b",
	"Mega Rising":    "B1",
	"MegaBlaziken":   "B1",
	"MegaGyarados":   "B1",
	"MegaAltaria":    "B1",
	"CrimsonBlaze":   "B1a",
	"Parade":         "B2",
}

// SetName returns the display name for a set code, falling back to the code.
func SetName(code string) string {
	if name, ok := SetNames[code]; ok {
		return name
	}
	return code
}

// SetForPack translates an exporter pack name into a set code. Returns the
// empty string when the pack name is unknown.
func SetForPack(pack string) string {
	return packSets[strings.TrimSpace(pack)]
}

// SplitRarity extracts a trailing "(code)" rarity annotation from a card
// name. Returns the bare name and the rarity display name; the rarity is
// empty when the name carries no annotation.
func SplitRarity(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	open := strings.LastIndex(trimmed, "(")
	if open < 0 || !strings.HasSuffix(trimmed, ")") {
		return trimmed, ""
	}
	code := trimmed[open+1 : len(trimmed)-1]
	bare := strings.TrimSpace(trimmed[:open])
	if display, ok := RarityNames[code]; ok {
		return bare, display
	}
	return bare, code
}

// accountNameFormat is the timestamp layout exporter-generated account names
// follow (e.g. "20251206235802").
const accountNameFormat = "20060102150405"

// AccountAge returns the age in days of a timestamp-formatted account name,
// or 0 when the name does not encode a timestamp.
func AccountAge(name string, now time.Time) int {
	created, err := time.Parse(accountNameFormat, strings.TrimSpace(name))
	if err != nil {
		return 0
	}
	days := int(now.Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
