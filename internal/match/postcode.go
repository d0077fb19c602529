package match

import (
	"regexp"
	"strings"
)

// outwardRe captures the area letters of a UK postcode outward code
// (1-2 alphabetic followed by 1-2 numeric).
var outwardRe = regexp.MustCompile(`^([A-Z]{1,2})[0-9]{1,2}`)

// postcodeRe finds full UK postcodes embedded in free text, e.g. charge
// particulars.
var postcodeRe = regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9][0-9A-Z]?\s?[0-9][A-Z]{2}\b`)

// NormalizePostcode uppercases and strips all whitespace so "SW1A 1AA" and
// "sw1a1aa" compare equal.
func NormalizePostcode(pc string) string {
	return strings.ToUpper(strings.Join(strings.Fields(pc), ""))
}

// PostcodeEqual compares two postcodes ignoring case and whitespace.
func PostcodeEqual(a, b string) bool {
	na := NormalizePostcode(a)
	return na != "" && na == NormalizePostcode(b)
}

// ContainsPostcode reports whether pc matches any entry in postcodes.
func ContainsPostcode(postcodes []string, pc string) bool {
	for _, p := range postcodes {
		if PostcodeEqual(p, pc) {
			return true
		}
	}
	return false
}

// InPostcodeAreas reports whether the postcode's area letters (the alphabetic
// prefix of the outward code) belong to the given area list. Used to decide
// whether a metro-specific register is worth querying at all.
func InPostcodeAreas(pc string, areas []string) bool {
	m := outwardRe.FindStringSubmatch(NormalizePostcode(pc))
	if m == nil {
		return false
	}
	for _, a := range areas {
		if strings.EqualFold(a, m[1]) {
			return true
		}
	}
	return false
}

// ExtractPostcodes pulls every UK postcode out of free text.
func ExtractPostcodes(text string) []string {
	return postcodeRe.FindAllString(text, -1)
}

// AnyInPostcodeAreas reports whether any of the postcodes falls in the areas.
func AnyInPostcodeAreas(postcodes, areas []string) bool {
	for _, pc := range postcodes {
		if InPostcodeAreas(pc, areas) {
			return true
		}
	}
	return false
}
