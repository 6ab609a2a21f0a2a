package registry

import (
	"testing"

	"github.com/banking/fraud-detection/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsEmptyLists(t *testing.T) {
	_, err := New(nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewRejectsMalformedEntries(t *testing.T) {
	_, err := New(
		[]domain.AddressRiskEntry{{Address: "not-an-address", Category: domain.AddressCategoryMixer, BaseRisk: 0.9}},
		nil,
		zap.NewNop(),
	)
	assert.Error(t, err)

	_, err = New(
		nil,
		[]domain.JurisdictionEntry{{CountryCode: "USA", ListTier: domain.ListTierGrey, RiskWeight: 0.7}},
		zap.NewNop(),
	)
	assert.Error(t, err)
}

func TestLookupAddressIsCaseInsensitive(t *testing.T) {
	reg, err := New(
		[]domain.AddressRiskEntry{{
			Address:  "0x722122DF12D4e14e13Ac3b6895a86e84145b6967",
			Category: domain.AddressCategoryMixer,
			BaseRisk: MixerBaseRisk,
		}},
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	entry, ok := reg.LookupAddress("0x722122df12d4e14e13ac3b6895a86e84145b6967")
	require.True(t, ok)
	assert.Equal(t, domain.AddressCategoryMixer, entry.Category)
	assert.Equal(t, MixerBaseRisk, entry.BaseRisk)

	_, ok = reg.LookupAddress("0x0000000000000000000000000000000000000000")
	assert.False(t, ok)
}

func TestIsMixerMatchesCategoryOnly(t *testing.T) {
	reg, err := New(
		[]domain.AddressRiskEntry{
			{Address: "0x722122df12d4e14e13ac3b6895a86e84145b6967", Category: domain.AddressCategoryMixer, BaseRisk: MixerBaseRisk},
			{Address: "0x1446d6a152245d26f79082202bcd8a8a34967f4b", Category: domain.AddressCategoryScam, BaseRisk: ScamBaseRisk},
		},
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	assert.True(t, reg.IsMixer("0x722122DF12D4E14E13AC3B6895A86E84145B6967"))
	assert.False(t, reg.IsMixer("0x1446d6a152245d26f79082202bcd8a8a34967f4b"))
}

func TestLookupJurisdictionIsCaseInsensitive(t *testing.T) {
	reg, err := New(nil, DefaultJurisdictionEntries(), zap.NewNop())
	require.NoError(t, err)

	entry, ok := reg.LookupJurisdiction("ng")
	require.True(t, ok)
	assert.Equal(t, domain.ListTierGrey, entry.ListTier)

	entry, ok = reg.LookupJurisdiction("KP")
	require.True(t, ok)
	assert.Equal(t, domain.ListTierBlack, entry.ListTier)

	_, ok = reg.LookupJurisdiction("US")
	assert.False(t, ok)
}

func TestDefaultListsLoad(t *testing.T) {
	reg, err := New(DefaultAddressEntries(), DefaultJurisdictionEntries(), zap.NewNop())
	require.NoError(t, err)

	entry, ok := reg.LookupAddress("0x3cbded43efdaf0fc77b9c55f6fc9988fcc9b757d")
	require.True(t, ok)
	assert.Equal(t, domain.AddressCategoryDarknet, entry.Category)
	assert.Equal(t, DarknetBaseRisk, entry.BaseRisk)
}
