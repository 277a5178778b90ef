// Package nameparse decomposes raw POS product names of the form
//
//	[Brewery - ]Name (Style[. ABV x%][, OG y%][, IBU z])[ (modifier)]
//
// into structured attributes. Parsing is heuristic and total: malformed
// fragments degrade to zero values, never to an error.
package nameparse

import (
	"strings"

	"beersync/internal"
	"beersync/internal/util"
)

// Flag is one product attribute as the POS reports it, e.g. the bottling
// type flag ("Розлив" = "Да").
type Flag struct {
	Name  string
	Value string
}

// Modification is one characteristic of a size variant, e.g. container
// name ("Тара" = "бутылка 0,5").
type Modification struct {
	Name  string
	Value string
}

// Input carries the raw name plus the ancillary POS fields that refine
// the parse.
type Input struct {
	RawName          string
	PathName         string
	Flags            []Flag
	Modifications    []Modification
	ExplicitCapacity *float64
}

// Trailing annotations the POS appends to variant names. Stripped before
// the style block is located.
var modifierSuffixes = []string{
	"(бутылка)",
	"(банка)",
	"(ж/б)",
	"(0,3)",
	"(0,33)",
	"(0,45)",
	"(0,5)",
	"(0,75)",
	"(1)",
	"(1,5)",
}

// yesToken is the localized affirmative the POS uses for boolean flags.
const yesToken = "да"

// containerAttr names the size-variant characteristic carrying the
// container description.
const containerAttr = "Тара"

var containerVolumes = map[string]float64{
	"бутылка 0,33": 0.33,
	"бутылка 0,45": 0.45,
	"бутылка 0,5":  0.5,
	"бутылка 0,75": 0.75,
	"бутылка 1":    1.0,
	"банка 0,33":   0.33,
	"банка 0,45":   0.45,
	"банка 0,5":    0.5,
	"банка 1":      1.0,
}

var kindKeywords = []struct {
	kind   internal.BeverageKind
	tokens []string
}{
	{internal.KindCider, []string{"cider", "сидр"}},
	{internal.KindMead, []string{"mead", "медовуха"}},
	{internal.KindKombucha, []string{"kombucha", "комбуча"}},
	{internal.KindLemonade, []string{"lemonade", "лимонад"}},
}

// Parse is a pure function of its input: identical inputs always yield
// identical attributes.
func Parse(in Input) internal.ParsedName {
	fullName := stripModifiers(in.RawName)
	remainder, additionalInfo := splitAdditionalInfo(fullName)

	parsed := internal.ParsedName{
		Kind:  classifyKind(additionalInfo),
		Style: styleOf(additionalInfo),
	}
	parsed.ABV, parsed.OG, parsed.IBU = numericAttributes(additionalInfo)
	parsed.IsAlco = parsed.ABV > 1.0

	parsed.Brewery, parsed.Name = splitBreweryName(remainder, in.PathName)
	parsed.IsDraft = draftFlag(in.Flags)
	parsed.Capacity = capacityOf(in)

	return parsed
}

func stripModifiers(raw string) string {
	name := strings.TrimSpace(raw)
	for {
		trimmed := false
		for _, suffix := range modifierSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSpace(strings.TrimSuffix(name, suffix))
				trimmed = true
			}
		}
		if !trimmed {
			return name
		}
	}
}

// splitAdditionalInfo extracts the trailing parenthetical block, keeping
// any parens nested inside it, e.g. "Lager (India Pale Lager)".
func splitAdditionalInfo(fullName string) (remainder, additionalInfo string) {
	name := strings.TrimSpace(fullName)
	if !strings.HasSuffix(name, ")") {
		return name, ""
	}

	runes := []rune(name)
	depth := 0
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return strings.TrimSpace(string(runes[:i])), string(runes[i+1 : len(runes)-1])
			}
		}
	}
	// Unbalanced parens: treat the whole name as the remainder.
	return name, ""
}

func classifyKind(additionalInfo string) internal.BeverageKind {
	if additionalInfo == "" {
		return internal.KindOther
	}
	for _, kw := range kindKeywords {
		for _, token := range kw.tokens {
			if util.ContainsFold(additionalInfo, token) {
				return kw.kind
			}
		}
	}
	return internal.KindBeer
}

func styleOf(additionalInfo string) string {
	style, _, _ := strings.Cut(additionalInfo, ". ")
	return style
}

func numericAttributes(additionalInfo string) (abv, og float64, ibu int) {
	_, rest, found := strings.Cut(additionalInfo, ". ")
	if !found {
		return 0, 0, 0
	}
	// Fields are separated by comma-space; a bare comma inside a field is a
	// decimal marker ("ABV 7,5%") and must stay with its number.
	for _, field := range strings.Split(rest, ", ") {
		switch {
		case util.ContainsFold(field, "abv"):
			abv = util.ParseNumber(field)
		case util.ContainsFold(field, "og"):
			og = util.ParseNumber(field)
		case util.ContainsFold(field, "ibu"):
			ibu = int(util.ParseNumber(field))
		}
	}
	return abv, og, ibu
}

func splitBreweryName(remainder, pathName string) (brewery, name string) {
	if strings.Count(remainder, " - ") == 1 {
		brewery, name, _ = strings.Cut(remainder, " - ")
		return brewery, name
	}

	// No usable delimiter: the folder hierarchy names the brewery.
	if pathName != "" {
		segments := strings.Split(pathName, "/")
		brewery = segments[len(segments)-1]
	}
	return brewery, remainder
}

// draftFlag is true only when the bottling-type flag is present, which
// the POS reports as exactly two attribute entries with the first one
// affirmative. The common packaged case has no flags at all.
func draftFlag(flags []Flag) bool {
	if len(flags) != 2 {
		return false
	}
	return strings.EqualFold(flags[0].Value, yesToken)
}

func capacityOf(in Input) float64 {
	if in.ExplicitCapacity != nil {
		return *in.ExplicitCapacity
	}
	for _, mod := range in.Modifications {
		if mod.Name != containerAttr {
			continue
		}
		if liters, ok := containerVolumes[strings.ToLower(strings.TrimSpace(mod.Value))]; ok {
			return liters
		}
	}
	return 0.0
}
