// Package fingerprint – hardware class derivation.
package fingerprint

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Hardware derivation starts from a mid-range consumer baseline and nudges
// it by what the network says about the machine behind it: business and
// datacenter lines skew toward workstations, DSL lines toward older
// machines, large modern ASNs toward newer hardware, and wealthy countries
// and tech-hub cities toward more of everything.  The result is clamped to
// the ranges real browsers report.
const (
	baselineMemoryGB = 8
	baselineCores    = 4

	minMemoryGB = 4
	maxMemoryGB = 32
	minCores    = 2
	maxCores    = 16
)

// lowEndKeywords mark an ISP as a legacy consumer line.
var lowEndKeywords = []string{"dsl", "adsl", "dial", "dialup", "wimax"}

// tierOneCountries get a hardware bump: average consumer machines there are
// simply newer.
var tierOneCountries = map[string]bool{
	"US": true, "CA": true, "GB": true, "DE": true, "FR": true,
	"NL": true, "JP": true, "KR": true, "AU": true, "SG": true,
}

// deriveHardware computes the emulated machine class from the network
// descriptor fields.  The caller has already verified the descriptor is
// present; this function never fabricates when fields are empty – empty
// ISP/organization simply contribute no adjustment.
func deriveHardware(country, city, isp, organization string, asn int) Hardware {
	mem := baselineMemoryGB
	cores := baselineCores

	switch {
	case isBusinessLine(isp) || isBusinessLine(organization):
		mem += 8
		cores += 4
	case isLowEndLine(isp):
		mem -= 4
		cores -= 2
	}

	// ASN magnitude: very large ASNs were allocated recently and correlate
	// with modern infrastructure; very low ASNs are legacy allocations.
	switch {
	case asn >= 100000:
		mem += 4
		cores += 2
	case asn > 0 && asn < 1000:
		mem -= 2
		cores--
	}

	if tierOneCountries[strings.ToUpper(country)] {
		mem += 4
		cores += 2
	}
	if techHubCities[strings.ToLower(city)] {
		mem += 4
		cores += 2
	}

	return Hardware{
		MemoryGB: clamp(mem, minMemoryGB, maxMemoryGB),
		Cores:    clamp(cores, minCores, maxCores),
	}
}

// isLowEndLine reports whether the ISP name indicates legacy consumer access.
func isLowEndLine(isp string) bool {
	lower := strings.ToLower(isp)
	for _, kw := range lowEndKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// regionPublicPrefixes maps a coarse region to /8 prefixes commonly routed
// there.  The generated public address only has to be regionally plausible;
// it is never required to be globally unique or routable.
var regionPublicPrefixes = map[string][]int{
	"NA":   {24, 66, 73, 98, 173},
	"EU":   {62, 81, 92, 109, 178},
	"APAC": {1, 14, 101, 118, 203},
	"SA":   {177, 179, 186, 200},
}

// countryRegion maps country codes to the region key used for public-address
// generation.  Countries outside the table fall back to "EU" style prefixes,
// which is acceptable because the address only needs regional plausibility
// and the country was already validated against the font/locale tables.
var countryRegion = map[string]string{
	"US": "NA", "CA": "NA", "MX": "NA",
	"GB": "EU", "DE": "EU", "FR": "EU", "NL": "EU", "ES": "EU",
	"IT": "EU", "PL": "EU",
	"JP": "APAC", "KR": "APAC", "IN": "APAC", "SG": "APAC", "AU": "APAC",
	"BR": "SA",
}

// deriveWebRTC generates the addresses leaked through WebRTC ICE gathering:
// a fresh private-range local address and a regionally plausible public one.
// Both are generated per call so two fingerprints never share them.
func deriveWebRTC(country string) WebRTC {
	local := fmt.Sprintf("192.168.%d.%d", rand.IntN(4), 2+rand.IntN(250))

	region, ok := countryRegion[strings.ToUpper(country)]
	if !ok {
		region = "EU"
	}
	prefixes := regionPublicPrefixes[region]
	first := prefixes[rand.IntN(len(prefixes))]
	public := fmt.Sprintf("%d.%d.%d.%d", first, rand.IntN(256), rand.IntN(256), 2+rand.IntN(250))

	return WebRTC{LocalIP: local, PublicIP: public}
}
