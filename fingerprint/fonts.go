// Package fingerprint – font set derivation.
//
// The installed-font list is one of the highest-entropy fingerprint surfaces
// and one of the most location-correlated: an identity egressing from Tokyo
// without CJK fonts, or a "business ISP" machine without an office suite, is
// inconsistent.  Font sets are therefore built by rule from the geographic
// descriptor: a per-country base set, plus additive sets keyed on ISP and
// organization keywords, plus a richer developer set in major tech-hub
// cities.  The result is labelled with one of several graduated variants so
// operators can see at a glance how rich a given fingerprint's set is.
package fingerprint

import (
	"sort"
	"strings"
)

// Graduated font-set variant labels, poorest to richest.
const (
	FontVariantBase     = "base"
	FontVariantOffice   = "office"
	FontVariantTechHub  = "techhub"
	FontVariantEnriched = "enriched" // office + tech hub combined
)

// fontBaseSets maps ISO country codes to the fonts essentially guaranteed on
// consumer machines in that region.  The key set deliberately matches
// localeTable: a country we cannot derive fonts for is a country we cannot
// derive a consistent fingerprint for at all.
var fontBaseSets = map[string][]string{
	"US": fontsWestern,
	"CA": fontsWestern,
	"GB": fontsWestern,
	"AU": fontsWestern,
	"DE": fontsWestern,
	"FR": fontsWestern,
	"NL": fontsWestern,
	"ES": fontsWestern,
	"IT": fontsWestern,
	"PL": fontsCentralEuropean,
	"BR": fontsWestern,
	"MX": fontsWestern,
	"JP": fontsJapanese,
	"KR": fontsKorean,
	"IN": fontsIndic,
	"SG": fontsChinese,
}

var fontsWestern = []string{
	"Arial", "Arial Black", "Comic Sans MS", "Courier New", "Georgia",
	"Impact", "Segoe UI", "Tahoma", "Times New Roman", "Trebuchet MS",
	"Verdana",
}

var fontsCentralEuropean = append([]string{
	"Lato",
}, fontsWestern...)

var fontsJapanese = append([]string{
	"MS Gothic", "MS Mincho", "Meiryo", "Yu Gothic",
}, fontsWestern...)

var fontsKorean = append([]string{
	"Batang", "Gulim", "Malgun Gothic",
}, fontsWestern...)

var fontsChinese = append([]string{
	"Microsoft YaHei", "SimHei", "SimSun",
}, fontsWestern...)

var fontsIndic = append([]string{
	"Mangal", "Nirmala UI",
}, fontsWestern...)

// fontsOffice is added when the ISP or organization looks like a business
// line: machines on corporate networks overwhelmingly carry an office suite.
var fontsOffice = []string{
	"Calibri", "Cambria", "Candara", "Consolas", "Constantia", "Corbel",
}

// businessKeywords mark an ISP/organization string as a business line.
var businessKeywords = []string{
	"business", "enterprise", "corporate", "corp", "datacenter", "hosting",
}

// fontsTechHub is added in major technology-hub cities, where developer
// tooling (and the fonts it installs) is dramatically over-represented.
var fontsTechHub = []string{
	"Fira Code", "JetBrains Mono", "Roboto", "Source Code Pro", "Ubuntu Mono",
}

// techHubCities is the city-tier table used by both font and hardware
// derivation.  Lowercased for case-insensitive matching.
var techHubCities = map[string]bool{
	"san francisco": true,
	"san jose":      true,
	"seattle":       true,
	"new york":      true,
	"austin":        true,
	"boston":        true,
	"london":        true,
	"berlin":        true,
	"amsterdam":     true,
	"paris":         true,
	"tokyo":         true,
	"seoul":         true,
	"bangalore":     true,
	"bengaluru":     true,
	"singapore":     true,
	"toronto":       true,
}

// deriveFonts builds the font set for a location.  Returns ok=false when the
// country has no base set; the caller translates that into a
// MissingGeographicDataError rather than substituting a generic set.
func deriveFonts(country, city, isp, organization string) (fonts []string, variant string, ok bool) {
	base, ok := fontBaseSets[strings.ToUpper(country)]
	if !ok {
		return nil, "", false
	}

	fonts = append(fonts, base...)
	business := isBusinessLine(isp) || isBusinessLine(organization)
	hub := techHubCities[strings.ToLower(city)]

	if business {
		fonts = append(fonts, fontsOffice...)
	}
	if hub {
		fonts = append(fonts, fontsTechHub...)
	}

	switch {
	case business && hub:
		variant = FontVariantEnriched
	case business:
		variant = FontVariantOffice
	case hub:
		variant = FontVariantTechHub
	default:
		variant = FontVariantBase
	}

	// Browsers enumerate fonts in a stable order; so do we.
	sort.Strings(fonts)
	return fonts, variant, true
}

// isBusinessLine reports whether name contains a business-line keyword.
func isBusinessLine(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range businessKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
