package sources

import "net/netip"

// BeaconPrefixes are RIPE routing beacons and anchors. Their scheduled
// flapping says nothing about real routing activity.
var BeaconPrefixes = map[netip.Prefix]bool{
	netip.MustParsePrefix("84.205.65.0/24"):     true, // Beacon, RRC01
	netip.MustParsePrefix("84.205.81.0/24"):     true, // Anchor, RRC01
	netip.MustParsePrefix("84.205.67.0/24"):     true, // Beacon, RRC03
	netip.MustParsePrefix("84.205.64.0/24"):     true, // Beacon (Anycast), RRC00, RRC25
	netip.MustParsePrefix("84.205.80.0/24"):     true, // Anchor (Anycast), RRC00, RRC25
	netip.MustParsePrefix("84.205.69.0/24"):     true, // Beacon (Anycast), RRC04, 05, 07, 10, 13, 18, 20, 21, 22, 26
	netip.MustParsePrefix("84.205.85.0/24"):     true, // Anchor (Anycast), RRC04, 05, 07, 10, 13, 18, 20, 21, 22, 26
	netip.MustParsePrefix("84.205.70.0/24"):     true, // Beacon (Anycast), RRC06, RRC23
	netip.MustParsePrefix("84.205.86.0/24"):     true, // Anchor (Anycast), RRC06, RRC23
	netip.MustParsePrefix("84.205.75.0/24"):     true, // Beacon (Anycast), RRC11, RRC14, RRC16
	netip.MustParsePrefix("84.205.91.0/24"):     true, // Anchor (Anycast), RRC11, RRC14, RRC16
	netip.MustParsePrefix("84.205.82.0/24"):     true, // Beacon (Anycast), RRC19
	netip.MustParsePrefix("84.205.83.0/24"):     true, // Anchor, RRC03
	netip.MustParsePrefix("84.205.76.0/24"):     true, // Beacon, RRC12
	netip.MustParsePrefix("84.205.92.0/24"):     true, // Anchor, RRC12
	netip.MustParsePrefix("84.205.88.0/24"):     true, // Anchor, Anycast AFRINIC
	netip.MustParsePrefix("93.175.153.0/24"):    true, // Beacon, Anycast LACNIC
	netip.MustParsePrefix("93.175.152.0/24"):    true, // Anchor, Anycast LACNIC
	netip.MustParsePrefix("93.175.154.0/25"):    true, // Anchor, Long Prefix
	netip.MustParsePrefix("93.175.154.128/28"):  true, // Anchor, Long Prefix
	netip.MustParsePrefix("84.205.66.0/24"):     true, // Beacon, Fast Paced
	netip.MustParsePrefix("93.175.146.0/24"):    true, // RPKI Valid
	netip.MustParsePrefix("93.175.147.0/24"):    true, // RPKI Invalid
	netip.MustParsePrefix("2001:7fb:fe01::/48"): true, // Beacon, RRC01
	netip.MustParsePrefix("2001:7fb:fe03::/48"): true, // Beacon, RRC03
}

func IsBeaconPrefix(p netip.Prefix) bool {
	return BeaconPrefixes[p.Masked()]
}
