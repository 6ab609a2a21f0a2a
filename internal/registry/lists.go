package registry

import "github.com/banking/fraud-detection/internal/domain"

// Built-in risk lists, used when no Postgres or S3 list source is configured.
// These are illustrative entries; production deployments load curated lists
// from an external source at startup.

// Base risks per address category.
const (
	MixerBaseRisk   = 0.9
	DarknetBaseRisk = 1.0
	ScamBaseRisk    = 0.85
)

// Risk weights per jurisdiction tier.
const (
	GreyListRiskWeight  = 0.7
	BlackListRiskWeight = 1.0
)

var defaultMixerAddresses = []string{
	"0x8589427373d6d84e98730d7795d8f6f8731fda16",
	"0x722122df12d4e14e13ac3b6895a86e84145b6967",
	"0xd90e2f925da726b50c4ed8d0fb90ad053324f31b",
	"0xd96f2b1c14db8458374d9aca76e26c3d18364307",
	"0x4736dcf1b7a3d580672cce6e7c65cd5cc9cfba9d",
	"0x169ad27a470d064dede56a2d3ff727986b15d52b",
	"0x0836222f2b2b24a3f36f98668ed8f0b38d1a872f",
	"0xf67721a2d8f736e75a49fdd7fad2e31d8676542a",
	"0x9ad122c22b14202b4490edaf288fdb3c7cb3ff5e",
}

var defaultDarknetAddresses = []string{
	"0x3cbded43efdaf0fc77b9c55f6fc9988fcc9b757d",
	"0x2c7f66c0e2c62c6386a9b526a6cf546577d9d865",
	"0x33f4f55f3a427f2f1d1c2f11bbc2fd06a3ea9f46",
	"0xbc830d54ed5e9e26d3a30d71a1e8dc6d42860345",
	"0x67fa2c06c9c6d4332f330e14a66bdf1873ef3d2b",
	"0x9cb4b8297548f3be359f7ddf4302af6d2288e08f",
}

var defaultScamAddresses = []string{
	"0x1446d6a152245d26f79082202bcd8a8a34967f4b",
	"0x9e4c14403d7d9a499dc5d293f486926b7876b1a6",
	"0x3f17f1962b36e491b30a40b2405849e597ba5fb5",
	"0x4686a963fad842745afd3c45e622dfefd201a73a",
	"0x8c9b261faef3b3c2e64ab5e58e04615f8c788099",
}

// FATF grey list (jurisdictions under increased monitoring).
var defaultGreyListCountries = []string{
	"AL", "BB", "BF", "BI", "BW", "CF", "DZ", "ES", "GH", "HT",
	"JM", "JO", "KH", "MA", "ML", "MU", "MZ", "NG", "PK", "PA",
	"SD", "SN", "SY", "TR", "UG", "YE", "ZW",
}

// FATF black list (call for action).
var defaultBlackListCountries = []string{"KP", "IR"}

// DefaultAddressEntries returns the compiled-in flagged-address list.
func DefaultAddressEntries() []domain.AddressRiskEntry {
	var entries []domain.AddressRiskEntry
	for _, addr := range defaultMixerAddresses {
		entries = append(entries, domain.AddressRiskEntry{
			Address:  addr,
			Category: domain.AddressCategoryMixer,
			BaseRisk: MixerBaseRisk,
		})
	}
	for _, addr := range defaultDarknetAddresses {
		entries = append(entries, domain.AddressRiskEntry{
			Address:  addr,
			Category: domain.AddressCategoryDarknet,
			BaseRisk: DarknetBaseRisk,
		})
	}
	for _, addr := range defaultScamAddresses {
		entries = append(entries, domain.AddressRiskEntry{
			Address:  addr,
			Category: domain.AddressCategoryScam,
			BaseRisk: ScamBaseRisk,
		})
	}
	return entries
}

// DefaultJurisdictionEntries returns the compiled-in FATF lists.
func DefaultJurisdictionEntries() []domain.JurisdictionEntry {
	var entries []domain.JurisdictionEntry
	for _, code := range defaultGreyListCountries {
		entries = append(entries, domain.JurisdictionEntry{
			CountryCode: code,
			ListTier:    domain.ListTierGrey,
			RiskWeight:  GreyListRiskWeight,
		})
	}
	for _, code := range defaultBlackListCountries {
		entries = append(entries, domain.JurisdictionEntry{
			CountryCode: code,
			ListTier:    domain.ListTierBlack,
			RiskWeight:  BlackListRiskWeight,
		})
	}
	return entries
}
