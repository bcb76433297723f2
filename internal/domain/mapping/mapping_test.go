package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErpCodeMapping(t *testing.T) {
	vendorID := uuid.New()

	t.Run("creates active mapping", func(t *testing.T) {
		m, err := NewErpCodeMapping(vendorID, TypeUnit, "KGM", "kg", "Kilogram")
		require.NoError(t, err)
		assert.True(t, m.IsActive)
		assert.Equal(t, "kg", m.RestoCode)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		_, err := NewErpCodeMapping(uuid.Nil, TypeUnit, "KGM", "kg", "")
		assert.Error(t, err)

		_, err = NewErpCodeMapping(vendorID, Type("COLOR"), "KGM", "kg", "")
		assert.Error(t, err)

		_, err = NewErpCodeMapping(vendorID, TypeUnit, "", "kg", "")
		assert.Error(t, err)

		_, err = NewErpCodeMapping(vendorID, TypeUnit, "KGM", "", "")
		assert.Error(t, err)
	})
}

func TestErpCodeMapping_Update(t *testing.T) {
	m, _ := NewErpCodeMapping(uuid.New(), TypeVat, "TVA20", "vat-20", "TVA 20%")
	m.Deactivate()
	require.False(t, m.IsActive)

	err := m.Update("vat-20-std", "TVA 20% standard")
	require.NoError(t, err)
	assert.Equal(t, "vat-20-std", m.RestoCode)
	assert.True(t, m.IsActive, "update reactivates the mapping")

	assert.Error(t, m.Update("", ""))
}

func TestType_Required(t *testing.T) {
	assert.True(t, TypeUnit.Required())
	assert.True(t, TypeVat.Required())
	assert.False(t, TypeFamily.Required())
	assert.False(t, TypeSubfamily.Required())
}

func TestCacheKey(t *testing.T) {
	vendorID := uuid.MustParse("3f1d8a2e-5c4b-4e9f-8a7d-1b2c3d4e5f60")
	key := CacheKey(vendorID, TypeUnit, "KGM")
	assert.Equal(t, "3f1d8a2e-5c4b-4e9f-8a7d-1b2c3d4e5f60:UNIT:KGM", key)

	// distinct types never collide
	assert.NotEqual(t, key, CacheKey(vendorID, TypeVat, "KGM"))
}
