package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes-backend/models"
)

func TestGetAdminMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	_, err := f.personnel.Create(ctx, models.Input{NaturalKey: "9", Name: "Z", Status: "pensiun"})
	require.NoError(t, err)
	_, err = f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)

	summaries, err := NewAdminService(f.personnel, f.users).GetAdminMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	p := summaries[0]
	assert.Equal(t, "personnel", p.Variant)
	assert.Equal(t, int64(4), p.TotalRecord)
	assert.Equal(t, int64(1), p.Linked)
	assert.Equal(t, map[string]int64{"aktif": 3, "pensiun": 1}, p.ByStatus)

	u := summaries[1]
	assert.Equal(t, "users", u.Variant)
	assert.Zero(t, u.TotalRecord)
	assert.Empty(t, u.ByStatus)
}
