package sources

const (
	RISLiveURL = "wss://ris-live.ripe.net/v1/ws/?client=github.com/sudorandom/bgp-globe"

	ASNNamesURL     = "https://thyme.apnic.net/current/data-used-autnums"
	WorldGeoJSONURL = "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_110m_admin_0_countries.geojson"

	CityDominanceMetaURL = "https://map.kmcd.dev/data/city-dominance/meta.json"
	CityDominanceDataURL = "https://map.kmcd.dev/data/city-dominance/%d.json"

	GoogleGeofeedURL = "https://www.gstatic.com/ipranges/cloud_geofeed"

	APNICDelegatedURL   = "https://ftp.apnic.net/stats/apnic/delegated-apnic-latest"
	RIPEDelegatedURL    = "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-latest"
	AFRINICDelegatedURL = "https://ftp.afrinic.net/pub/stats/afrinic/delegated-afrinic-latest"
	LACNICDelegatedURL  = "https://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-latest"
	ARINDelegatedURL    = "https://ftp.arin.net/pub/stats/arin/delegated-arin-extended-latest"
)
