// Package registry holds the static risk lists the analyzers match against:
// flagged blockchain addresses (mixers, darknet markets, known scams) and
// FATF-style jurisdiction lists. Lists are loaded once at process start and
// never change afterwards, so lookups need no synchronization.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banking/fraud-detection/internal/domain"
	"go.uber.org/zap"
)

// Registry answers address and jurisdiction risk lookups.
// Address matching is case-insensitive (keys held lowercase); country
// matching is case-insensitive (keys held uppercase).
type Registry struct {
	addresses     map[string]domain.AddressRiskEntry
	jurisdictions map[string]domain.JurisdictionEntry
}

// New builds a registry from loaded lists. A registry with no usable entries
// is a startup failure: a scoring service running with empty lists would
// silently pass every direct-hit check.
func New(addresses []domain.AddressRiskEntry, jurisdictions []domain.JurisdictionEntry, logger *zap.Logger) (*Registry, error) {
	if len(addresses) == 0 && len(jurisdictions) == 0 {
		return nil, errors.New("no risk list entries loaded")
	}

	addrMap := make(map[string]domain.AddressRiskEntry, len(addresses))
	for _, entry := range addresses {
		if !domain.IsValidAddress(entry.Address) {
			return nil, fmt.Errorf("malformed address in risk list: %q", entry.Address)
		}
		entry.Address = strings.ToLower(entry.Address)
		addrMap[entry.Address] = entry
	}

	jurMap := make(map[string]domain.JurisdictionEntry, len(jurisdictions))
	for _, entry := range jurisdictions {
		if !domain.IsCountryCode(entry.CountryCode) {
			return nil, fmt.Errorf("malformed country code in jurisdiction list: %q", entry.CountryCode)
		}
		entry.CountryCode = strings.ToUpper(entry.CountryCode)
		jurMap[entry.CountryCode] = entry
	}

	logger.Info("Risk registry loaded",
		zap.Int("addresses", len(addrMap)),
		zap.Int("jurisdictions", len(jurMap)),
	)

	return &Registry{
		addresses:     addrMap,
		jurisdictions: jurMap,
	}, nil
}

// LookupAddress returns the risk entry for a flagged address, if any.
func (r *Registry) LookupAddress(addr string) (domain.AddressRiskEntry, bool) {
	entry, ok := r.addresses[strings.ToLower(addr)]
	return entry, ok
}

// IsMixer reports whether the address belongs to a known mixer service.
func (r *Registry) IsMixer(addr string) bool {
	entry, ok := r.addresses[strings.ToLower(addr)]
	return ok && entry.Category == domain.AddressCategoryMixer
}

// LookupJurisdiction returns the list entry for a country code, if any.
func (r *Registry) LookupJurisdiction(code string) (domain.JurisdictionEntry, bool) {
	entry, ok := r.jurisdictions[strings.ToUpper(code)]
	return entry, ok
}
