package domain

// AddressCategory classifies a flagged blockchain address
type AddressCategory string

const (
	AddressCategoryMixer   AddressCategory = "mixer"
	AddressCategoryDarknet AddressCategory = "darknet"
	AddressCategoryScam    AddressCategory = "scam"
)

// AddressRiskEntry is one flagged address with its base risk.
// Entries are immutable after startup.
type AddressRiskEntry struct {
	Address  string          `json:"address"`
	Category AddressCategory `json:"category"`
	BaseRisk float64         `json:"base_risk"`
}

// ListTier distinguishes increased-monitoring from call-for-action jurisdictions
type ListTier string

const (
	ListTierGrey  ListTier = "grey"
	ListTierBlack ListTier = "black"
)

// JurisdictionEntry is one listed country with its risk weight.
// Entries are immutable after startup.
type JurisdictionEntry struct {
	CountryCode string   `json:"country_code"`
	ListTier    ListTier `json:"list_tier"`
	RiskWeight  float64  `json:"risk_weight"`
}
