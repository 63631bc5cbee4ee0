package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes-backend/models"
)

func TestLinkAndResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	rec, err := f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)
	require.NotNil(t, rec.ChatIdentity)
	assert.Equal(t, "1001", *rec.ChatIdentity)

	got, err := f.identity.Resolve(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", got.Name)

	_, err = f.identity.Resolve(ctx, "2002")
	assert.ErrorIs(t, err, models.ErrUnlinked)
}

func TestLinkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	first, err := f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)
	second, err := f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestLinkRejectsHandleOwnedByAnotherRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)

	_, err = f.identity.Link(ctx, "198502152012022002", "1001")
	assert.ErrorIs(t, err, models.ErrIdentityTaken)

	siti, err := f.personnel.GetByNaturalKey(ctx, "198502152012022002")
	require.NoError(t, err)
	assert.Nil(t, siti.ChatIdentity)
}

func TestLinkUnknownKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.identity.Link(context.Background(), "000", "1001")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.identity.Link(context.Background(), "  ", "1001")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRelinkRecordMovesHandle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)
	_, err = f.identity.Link(ctx, "198001012010011001", "1002")
	require.NoError(t, err)

	_, err = f.identity.Resolve(ctx, "1001")
	assert.ErrorIs(t, err, models.ErrUnlinked)
	got, err := f.identity.Resolve(ctx, "1002")
	require.NoError(t, err)
	assert.Equal(t, "198001012010011001", got.NaturalKey)
}

func TestUnlink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.identity.Link(ctx, "198001012010011001", "1001")
	require.NoError(t, err)

	rec, err := f.identity.Unlink(ctx, "1001")
	require.NoError(t, err)
	assert.Nil(t, rec.ChatIdentity)

	_, err = f.identity.Unlink(ctx, "1001")
	assert.ErrorIs(t, err, models.ErrUnlinked)
}
