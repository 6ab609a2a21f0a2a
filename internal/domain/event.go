package domain

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	ethAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	ipv4Pattern       = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)
	countryPattern    = regexp.MustCompile(`^[a-zA-Z]{2}$`)
)

// FiatLeg represents the fiat side of a payment event
type FiatLeg struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CardCountry string          `json:"card_country"`
	GeoSignal   string          `json:"geo_signal"` // IP literal or 2-letter country code
}

// Valid reports whether the leg carries every field the fiat analyzer needs.
// Validation failures are not errors at the analysis boundary; the analyzer
// maps them to a fixed high-risk fallback instead.
func (l FiatLeg) Valid() bool {
	if l.Amount.Sign() <= 0 {
		return false
	}
	if l.Currency == "" || len(l.CardCountry) != 2 || l.GeoSignal == "" {
		return false
	}
	return true
}

// GeoSignalIsIP reports whether the geo signal is an IPv4 literal rather
// than a country code.
func (l FiatLeg) GeoSignalIsIP() bool {
	return IsValidIP(l.GeoSignal)
}

// CryptoLeg represents the crypto side of a payment event
type CryptoLeg struct {
	Address  string          `json:"address"`
	Currency string          `json:"currency"` // Token symbol (ETH, USDC, ...)
	Amount   decimal.Decimal `json:"amount"`
}

// Valid reports whether the address and amount are well formed.
func (l CryptoLeg) Valid() bool {
	if !IsValidAddress(l.Address) {
		return false
	}
	if l.Currency == "" {
		return false
	}
	return l.Amount.Sign() > 0
}

// RiskEvent is a payment event submitted for risk scoring.
// At least one leg must be present.
type RiskEvent struct {
	Fiat   *FiatLeg   `json:"fiat,omitempty"`
	Crypto *CryptoLeg `json:"crypto,omitempty"`
}

// HasLeg reports whether the event carries at least one leg.
func (e RiskEvent) HasLeg() bool {
	return e.Fiat != nil || e.Crypto != nil
}

// IsValidAddress reports whether s is a 0x-prefixed 40-hex-char address.
func IsValidAddress(s string) bool {
	return ethAddressPattern.MatchString(s)
}

// IsValidIP reports whether s is a well-formed dotted-quad IPv4 literal.
func IsValidIP(s string) bool {
	m := ipv4Pattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	for _, octet := range m[1:] {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// IsCountryCode reports whether s looks like a 2-letter country code.
func IsCountryCode(s string) bool {
	return countryPattern.MatchString(s)
}
