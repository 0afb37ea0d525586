package universe

import "strings"

// Continent names used as region labels.
const (
	RegionAfrica       = "Africa"
	RegionAsia         = "Asia"
	RegionEurope       = "Europe"
	RegionNorthAmerica = "North America"
	RegionSouthAmerica = "South America"
	RegionOceania      = "Oceania"
	RegionUnknown      = "Unknown"
)

var countryRegions = map[string]string{
	"united states":  RegionNorthAmerica,
	"usa":            RegionNorthAmerica,
	"canada":         RegionNorthAmerica,
	"mexico":         RegionNorthAmerica,
	"bermuda":        RegionNorthAmerica,
	"panama":         RegionNorthAmerica,
	"puerto rico":    RegionNorthAmerica,
	"brazil":         RegionSouthAmerica,
	"argentina":      RegionSouthAmerica,
	"chile":          RegionSouthAmerica,
	"colombia":       RegionSouthAmerica,
	"peru":           RegionSouthAmerica,
	"uruguay":        RegionSouthAmerica,
	"united kingdom": RegionEurope,
	"ireland":        RegionEurope,
	"france":         RegionEurope,
	"germany":        RegionEurope,
	"netherlands":    RegionEurope,
	"belgium":        RegionEurope,
	"luxembourg":     RegionEurope,
	"switzerland":    RegionEurope,
	"austria":        RegionEurope,
	"italy":          RegionEurope,
	"spain":          RegionEurope,
	"portugal":       RegionEurope,
	"greece":         RegionEurope,
	"sweden":         RegionEurope,
	"norway":         RegionEurope,
	"denmark":        RegionEurope,
	"finland":        RegionEurope,
	"poland":         RegionEurope,
	"jersey":         RegionEurope,
	"guernsey":       RegionEurope,
	"cyprus":         RegionEurope,
	"russia":         RegionEurope,
	"israel":         RegionAsia,
	"china":          RegionAsia,
	"hong kong":      RegionAsia,
	"taiwan":         RegionAsia,
	"japan":          RegionAsia,
	"south korea":    RegionAsia,
	"india":          RegionAsia,
	"singapore":      RegionAsia,
	"indonesia":      RegionAsia,
	"malaysia":       RegionAsia,
	"thailand":       RegionAsia,
	"philippines":    RegionAsia,
	"macau":          RegionAsia,
	"saudi arabia":   RegionAsia,
	"turkey":         RegionAsia,
	"south africa":   RegionAfrica,
	"nigeria":        RegionAfrica,
	"egypt":          RegionAfrica,
	"kenya":          RegionAfrica,
	"morocco":        RegionAfrica,
	"australia":      RegionOceania,
	"new zealand":    RegionOceania,

	"united arab emirates": RegionAsia,
}

// RegionForCountry maps a country name to its continent.
func RegionForCountry(country string) string {
	if r, ok := countryRegions[strings.ToLower(strings.TrimSpace(country))]; ok {
		return r
	}
	return RegionUnknown
}
