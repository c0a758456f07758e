package oddsapi

import "strings"

// Operation names one of the upstream calls the client can make.
type Operation string

const (
	OpSports Operation = "sports"
	OpOdds   Operation = "odds"
	OpScores Operation = "scores"
	OpUsage  Operation = "usage"
)

// Operations lists every supported operation in a stable order.
func Operations() []Operation {
	return []Operation{OpSports, OpOdds, OpScores, OpUsage}
}

// ParseOperation resolves a case-insensitive operation name.
func ParseOperation(s string) (Operation, bool) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Operations() {
		if op == known {
			return op, true
		}
	}
	return "", false
}

const (
	DefaultSport      = "basketball_nba"
	DefaultRegions    = "us"
	DefaultMarkets    = "h2h,spreads"
	DefaultOddsFormat = "decimal"
	DefaultDateFormat = "iso"
	DefaultDaysFrom   = 1
)

// Defaults fill in any parameter a caller leaves empty. Values are sent as-is;
// the remote API is the only validator.
type Defaults struct {
	SportKey   string
	Regions    string
	Markets    string
	OddsFormat string
	DateFormat string
	// DaysFrom is nil when unset; zero and negative values are kept.
	DaysFrom *int
}

// NewDefaults returns the stock defaults: NBA, US books, moneyline and spreads,
// decimal odds, ISO dates, one day of scores.
func NewDefaults() Defaults {
	return Defaults{
		SportKey:   DefaultSport,
		Regions:    DefaultRegions,
		Markets:    DefaultMarkets,
		OddsFormat: DefaultOddsFormat,
		DateFormat: DefaultDateFormat,
		DaysFrom:   Int(DefaultDaysFrom),
	}
}

// merge overlays the set fields of d onto base.
func (d Defaults) merge(base Defaults) Defaults {
	base.SportKey = firstNonEmpty(d.SportKey, base.SportKey)
	base.Regions = firstNonEmpty(d.Regions, base.Regions)
	base.Markets = firstNonEmpty(d.Markets, base.Markets)
	base.OddsFormat = firstNonEmpty(d.OddsFormat, base.OddsFormat)
	base.DateFormat = firstNonEmpty(d.DateFormat, base.DateFormat)
	if d.DaysFrom != nil {
		base.DaysFrom = Int(*d.DaysFrom)
	}
	return base
}

// SportsParams configures ListSports.
type SportsParams struct {
	// APIKey overrides the client credential for this call.
	APIKey string
	// All includes out-of-season sports. nil means true.
	All *bool
}

// OddsParams configures GetOdds. Empty fields take the client defaults.
type OddsParams struct {
	APIKey     string
	SportKey   string
	Regions    string // uk | us | eu | au, comma delimited
	Markets    string // h2h | spreads | totals | outrights, comma delimited
	OddsFormat string // decimal | american
	DateFormat string // iso | unix
}

// QuotaCost counts markets x regions over the explicitly set fields only.
// Client.QuotaCost applies the client defaults first and is what the request
// is billed upstream.
func (p OddsParams) QuotaCost() int {
	return countList(p.Markets) * countList(p.Regions)
}

// ScoresParams configures GetScores.
type ScoresParams struct {
	APIKey   string
	SportKey string
	// DaysFrom is sent untouched, zero included; the API accepts 1-3. nil
	// means the client default.
	DaysFrom   *int
	DateFormat string
}

// UsageParams configures GetUsage.
type UsageParams struct {
	APIKey string
}

// Bool returns a pointer to b, handy for SportsParams.All.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n, handy for ScoresParams.DaysFrom.
func Int(n int) *int { return &n }

func countList(s string) int {
	n := 0
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// firstNonEmpty returns the first value that is not blank, unmodified.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
