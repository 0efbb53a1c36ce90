package comps

// RateTable maps an ISO currency code to its approximate USD conversion
// rate. It is a static, versionable table injected from configuration, not a
// live FX feed; comparables only need rough parity across markets.
type RateTable map[string]float64

// DefaultRates mirrors the shipped configuration defaults.
func DefaultRates() RateTable {
	return RateTable{
		"USD": 1.0,
		"CAD": 0.74,
		"EUR": 1.08,
		"GBP": 1.27,
		"AUD": 0.66,
	}
}

// Normalize converts a price to the reference currency. Unknown currencies
// pass through unchanged rather than dropping the listing.
func (r RateTable) Normalize(price float64, currency string) float64 {
	if rate, ok := r[currency]; ok {
		return price * rate
	}
	return price
}

// Apply fills PriceUSD for every listing.
func (r RateTable) Apply(listings []Listing) {
	for i := range listings {
		listings[i].PriceUSD = r.Normalize(listings[i].Price, listings[i].Currency)
	}
}
