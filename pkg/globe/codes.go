package globe

import (
	"strings"

	"github.com/biter777/countries"
)

// CountryCount is the size of the country table. It is a power of two so
// the color table can be sampled as a one dimensional texture.
const CountryCount = 256

// Padding is the code of the unused slots at the end of the table.
const Padding = "NULL"

// CountryCodes is the fixed ordering of country codes. An entry's index is
// its slot in the color table and the red channel of its picking color, so
// the order must never change.
var CountryCodes = [CountryCount]string{
	"A1", "A2", "O1", "AD", "AE", "AF", "AG", "AI", "AL", "AM", "AO", "AP",
	"AQ", "AR", "AS", "AT", "AU", "AW", "AX", "AZ", "BA", "BB", "BD", "BE",
	"BF", "BG", "BH", "BI", "BJ", "BL", "BM", "BN", "BO", "BQ", "BR", "BS",
	"BT", "BV", "BW", "BY", "BZ", "CA", "CC", "CD", "CF", "CG", "CH", "CI",
	"CK", "CL", "CM", "CN", "CO", "CR", "CU", "CV", "CW", "CX", "CY", "CZ",
	"DE", "DJ", "DK", "DM", "DO", "DZ", "EC", "EE", "EG", "EH", "ER", "ES",
	"ET", "EU", "FI", "FJ", "FK", "FM", "FO", "FR", "GA", "GB", "GD", "GE",
	"GF", "GG", "GH", "GI", "GL", "GM", "GN", "GP", "GQ", "GR", "GS", "GT",
	"GU", "GW", "GY", "HK", "HM", "HN", "HR", "HT", "HU", "ID", "IE", "IL",
	"IM", "IN", "IO", "IQ", "IR", "IS", "IT", "JE", "JM", "JO", "JP", "KE",
	"KG", "KH", "KI", "KM", "KN", "KP", "KR", "KW", "KY", "KZ", "LA", "LB",
	"LC", "LI", "LK", "LR", "LS", "LT", "LU", "LV", "LY", "MA", "MC", "MD",
	"ME", "MF", "MG", "MH", "MK", "ML", "MM", "MN", "MO", "MP", "MQ", "MR",
	"MS", "MT", "MU", "MV", "MW", "MX", "MY", "MZ", "NA", "NC", "NE", "NF",
	"NG", "NI", "NL", "NO", "NP", "NR", "NU", "NZ", "OM", "PA", "PE", "PF",
	"PG", "PH", "PK", "PL", "PM", "PN", "PR", "PS", "PT", "PW", "PY", "QA",
	"RE", "RO", "RS", "RU", "RW", "SA", "SB", "SC", "SD", "SE", "SG", "SH",
	"SI", "SJ", "SK", "SL", "SM", "SN", "SO", "SR", "SS", "ST", "SV", "SX",
	"SY", "SZ", "TC", "TD", "TF", "TG", "TH", "TJ", "TK", "TL", "TM", "TN",
	"TO", "TR", "TT", "TV", "TW", "TZ", "UA", "UG", "UM", "US", "UY", "UZ",
	"VA", "VC", "VE", "VG", "VI", "VN", "VU", "WF", "WS", "YE", "YT", "ZA",
	"ZM", "ZW", "NULL", "NULL",
}

var countryIndex = func() map[string]int {
	m := make(map[string]int, CountryCount)
	for i, cc := range CountryCodes {
		if cc == Padding {
			continue
		}
		m[cc] = i
	}
	return m
}()

// CountryIndex returns the table slot of a country code.
func CountryIndex(cc string) (int, bool) {
	i, ok := countryIndex[strings.ToUpper(cc)]
	return i, ok
}

// Non ISO codes used by GeoIP databases.
var extensionNames = map[string]string{
	"A1": "Anonymous Proxy",
	"A2": "Satellite Provider",
	"O1": "Other Country",
	"AP": "Asia/Pacific Region",
	"EU": "Europe",
}

// CountryName returns a display name for a country code, or the code itself
// when it is not known.
func CountryName(cc string) string {
	cc = strings.ToUpper(cc)
	if name, ok := extensionNames[cc]; ok {
		return name
	}
	c := countries.ByName(cc)
	if c == countries.Unknown {
		return cc
	}
	name := c.String()
	if idx := strings.Index(name, " ("); idx != -1 {
		name = name[:idx]
	}
	return name
}
