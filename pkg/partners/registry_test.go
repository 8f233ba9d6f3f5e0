package partners

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryDedupesAndOrders(t *testing.T) {
	r := NewRegistry([]string{"Buyer", "", "Seller", "Buyer", "Notary"})

	assert.Equal(t, []string{"Buyer", "Seller", "Notary"}, r.Names())
	assert.Equal(t, "Buyer", r.Current())
	assert.Equal(t, 3, r.Len())
}

func TestAddGeneratesOrdinalNames(t *testing.T) {
	r := NewRegistry([]string{"Buyer"})

	added, err := r.Add("")
	require.NoError(t, err)
	assert.Equal(t, "Partner 2", added)

	added, err = r.Add("")
	require.NoError(t, err)
	assert.Equal(t, "Partner 3", added)
}

func TestAddRejectsDuplicates(t *testing.T) {
	r := NewRegistry([]string{"Buyer"})

	_, err := r.Add("Buyer")
	assert.Error(t, err)
}

func TestAddFirstPartnerBecomesCurrent(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, "", r.Current())

	added, err := r.Add("Buyer")
	require.NoError(t, err)
	assert.Equal(t, "Buyer", added)
	assert.Equal(t, "Buyer", r.Current())
}

func TestRenamePreservesOrderAndCurrent(t *testing.T) {
	r := NewRegistry([]string{"Buyer", "Seller"})
	require.NoError(t, r.SetCurrent("Seller"))

	require.NoError(t, r.Rename("Seller", "Vendor"))
	assert.Equal(t, []string{"Buyer", "Vendor"}, r.Names())
	assert.Equal(t, "Vendor", r.Current())
}

func TestRenameRejectsCollisionsAndUnknown(t *testing.T) {
	r := NewRegistry([]string{"Buyer", "Seller"})

	assert.Error(t, r.Rename("Buyer", "Seller"))
	assert.Error(t, r.Rename("Buyer", ""))
	assert.Error(t, r.Rename("Nobody", "Someone"))

	// Renaming to itself is a no-op, not a collision
	assert.NoError(t, r.Rename("Buyer", "Buyer"))
}

func TestRemoveMovesCurrentToFirst(t *testing.T) {
	r := NewRegistry([]string{"Buyer", "Seller", "Notary"})
	require.NoError(t, r.SetCurrent("Buyer"))

	require.NoError(t, r.Remove("Buyer"))
	assert.Equal(t, []string{"Seller", "Notary"}, r.Names())
	assert.Equal(t, "Seller", r.Current())
}

func TestRemoveLastPartnerLeavesEmptyRoster(t *testing.T) {
	r := NewRegistry([]string{"Buyer"})

	require.NoError(t, r.Remove("Buyer"))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "", r.Current())
	assert.Equal(t, "", r.First())
}

func TestSetCurrentRejectsUnknown(t *testing.T) {
	r := NewRegistry([]string{"Buyer"})
	assert.Error(t, r.SetCurrent("Seller"))
}

func TestColorsAssignedByOrdinal(t *testing.T) {
	r := NewRegistry([]string{"Buyer", "Seller"})
	colors := r.Colors()

	require.Len(t, colors, 2)
	assert.NotEqual(t, colors["Buyer"], colors["Seller"])

	// Color follows the ordinal, so removing the first entry shifts them
	require.NoError(t, r.Remove("Buyer"))
	assert.Equal(t, colors["Buyer"], r.Colors()["Seller"])
}
