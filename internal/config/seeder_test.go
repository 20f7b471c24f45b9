package config

import (
	"testing"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeederIsIdempotent(t *testing.T) {
	db := testdb.New(t)
	seeder := NewSeeder(db, zap.NewNop())

	require.NoError(t, seeder.Run())
	require.NoError(t, seeder.Run())

	var venues, memberships, txns int64
	db.Model(&models.Venue{}).Count(&venues)
	db.Model(&models.Membership{}).Count(&memberships)
	db.Model(&models.Transaction{}).Count(&txns)
	assert.Equal(t, int64(3), venues)
	assert.Equal(t, int64(2), memberships)
	assert.Equal(t, int64(3), txns)

	var m models.Membership
	require.NoError(t, db.Where("id = ?", "sgv-basic-1").First(&m).Error)
	assert.Equal(t, "150.75", m.Balance.StringFixed(2))
}
