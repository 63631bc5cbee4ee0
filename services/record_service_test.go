package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes-backend/models"
	"hermes-backend/store"
)

func TestSearchByNameFragment(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	got, err := f.personnel.Search(context.Background(), SearchCriteria{NameFragment: "ahmad"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ahmad Dhani", got[0].Name)
	assert.Equal(t, "199003202015031003", got[0].NaturalKey)
}

func TestSearchPrefersNameOverStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	_, err := f.personnel.Create(ctx, models.Input{NaturalKey: "9", Name: "Ahmad Pensiun", Status: "pensiun"})
	require.NoError(t, err)

	got, err := f.personnel.Search(ctx, SearchCriteria{NameFragment: "ahmad", Status: "pensiun"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.personnel.Search(ctx, SearchCriteria{Status: "pensiun"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ahmad Pensiun", got[0].Name)

	got, err = f.personnel.Search(ctx, SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestSearchFoldsNonASCIINames(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	_, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "ÉLISE Putri"})
	require.NoError(t, err)

	for _, fragment := range []string{"ÉLISE", "élise"} {
		got, err := svc.Search(ctx, SearchCriteria{NameFragment: fragment})
		require.NoError(t, err)
		require.Len(t, got, 1, fragment)
		assert.Equal(t, "ÉLISE Putri", got[0].Name)
	}
}

func TestSearchByMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	rec, err := f.personnel.Create(ctx, models.Input{NaturalKey: "9", Name: "Dewi", Status: "pensiun", Metadata: map[string]any{"golongan": "IV/a"}})
	require.NoError(t, err)

	got, err := f.personnel.Search(ctx, SearchCriteria{MetaKey: "golongan", MetaValue: "IV/a", Status: models.DefaultStatus})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)

	got, err = f.personnel.Search(ctx, SearchCriteria{NameFragment: "budi", MetaKey: "golongan", MetaValue: "IV/a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Budi Santoso", got[0].Name)

	_, err = f.users.Search(ctx, SearchCriteria{MetaKey: "golongan", MetaValue: "IV/a"})
	assert.ErrorIs(t, err, models.ErrUnsupported)
}

func TestCreateDefaultsStatus(t *testing.T) {
	rec, err := newFixture(t).personnel.Create(context.Background(), models.Input{NaturalKey: " 123 ", Name: " X "})
	require.NoError(t, err)
	assert.Equal(t, "123", rec.NaturalKey)
	assert.Equal(t, "X", rec.Name)
	require.NotNil(t, rec.Status)
	assert.Equal(t, "aktif", *rec.Status)
}

func TestCreateValidation(t *testing.T) {
	svc := newFixture(t).users

	_, err := svc.Create(context.Background(), models.Input{Name: "Tanpa UUID"})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "UUID and nama are required")

	_, err = svc.Create(context.Background(), models.Input{NaturalKey: "u1", Name: "   "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Create(context.Background(), models.Input{NaturalKey: "u1", Name: "A", BirthDate: "01-02-1990"})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "tanggal_lahir")
}

func TestCreateRejectsOverlongColumns(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel

	cases := []struct {
		name string
		in   models.Input
		want string
	}{
		{"nip", models.Input{NaturalKey: strings.Repeat("1", 51), Name: "A"}, "nip must be at most 50 characters"},
		{"nama", models.Input{NaturalKey: "1", Name: strings.Repeat("a", 256)}, "nama must be at most 255 characters"},
		{"telepon", models.Input{NaturalKey: "1", Name: "A", Phone: strings.Repeat("8", 51)}, "telepon must be at most 50 characters"},
		{"ig_uname", models.Input{NaturalKey: "1", Name: "A", Instagram: strings.Repeat("x", 101)}, "ig_uname must be at most 100 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			require.ErrorIs(t, err, models.ErrValidation)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	// Limits count characters, not bytes.
	rec, err := svc.Create(ctx, models.Input{NaturalKey: "2", Name: strings.Repeat("é", 255), Address: strings.Repeat("jl. ", 200)})
	require.NoError(t, err)
	assert.Len(t, []rune(rec.Name), 255)

	_, err = svc.Update(ctx, rec.ID, models.Input{NaturalKey: "2", Name: "B", Rank: strings.Repeat("k", 101)})
	require.ErrorIs(t, err, models.ErrValidation)
	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rank)
}

func TestCreateDuplicateKey(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	_, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "A"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.Input{NaturalKey: "1", Name: "B"})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	a, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "A", Metadata: map[string]any{"k": "v"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, models.Input{NaturalKey: "2", Name: "B"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, a.ID, models.Input{NaturalKey: "2", Name: "A"})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)

	// A rename into a taken key leaves both records as they were.
	still, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", still.NaturalKey)
	assert.Equal(t, map[string]any{"k": "v"}, still.Metadata)
	owner, err := svc.GetByNaturalKey(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "B", owner.Name)

	got, err := svc.Update(ctx, a.ID, models.Input{NaturalKey: "1", Name: "A2", Rank: "Mayor"})
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Name)
	assert.Equal(t, "Mayor", *got.Rank)
	assert.Empty(t, got.Metadata)

	_, err = svc.Update(ctx, a.ID+100, models.Input{NaturalKey: "x", Name: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Update(ctx, a.ID, models.Input{NaturalKey: "1"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDeleteThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	rec, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, rec.ID))
	_, err = svc.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, rec.ID), models.ErrNotFound)
}

func TestUpdateFieldLeavesOthers(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	rec, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "A", Phone: "0811", Instagram: "a.ig"})
	require.NoError(t, err)

	got, err := svc.UpdateField(ctx, rec.ID, models.FieldPhone, "0822")
	require.NoError(t, err)
	assert.Equal(t, "0822", *got.Phone)
	assert.Equal(t, "a.ig", *got.Instagram)
	assert.Equal(t, "A", got.Name)

	_, err = svc.UpdateField(ctx, rec.ID, models.FieldChatIdentity, "1")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.UpdateField(ctx, rec.ID, models.FieldJoinDate, "kemarin")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.UpdateField(ctx, rec.ID+100, models.FieldPhone, "1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.UpdateField(ctx, rec.ID, models.FieldPhone, strings.Repeat("8", 51))
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "telepon must be at most 50 characters")
	_, err = svc.UpdateField(ctx, rec.ID, models.FieldTikTok, strings.Repeat("t", 101))
	assert.ErrorIs(t, err, models.ErrValidation)

	got, err = svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "0822", *got.Phone)
	assert.Nil(t, got.TikTok)
}

func TestSetMetadataPreservesOtherKeys(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	rec, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "A", Metadata: map[string]any{"a": 1, "b": "x"}})
	require.NoError(t, err)

	got, err := svc.SetMetadata(ctx, rec.ID, "b", "y")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": json.Number("1"), "b": "y"}, got.Metadata)

	got, err = svc.SetMetadata(ctx, rec.ID, "c", map[string]any{"nested": true})
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), got.Metadata["a"])
	assert.Equal(t, map[string]any{"nested": true}, got.Metadata["c"])
}

func TestMetadataIntegersSurviveRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newFixture(t).personnel
	rec, err := svc.Create(ctx, models.Input{NaturalKey: "1", Name: "A", Metadata: map[string]any{"nik": json.Number("9007199254740993")}})
	require.NoError(t, err)

	got, err := svc.SetMetadata(ctx, rec.ID, "kk", json.Number("9007199254740995"))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), got.Metadata["nik"])
	assert.Equal(t, json.Number("9007199254740995"), got.Metadata["kk"])

	found, err := svc.Search(ctx, SearchCriteria{MetaKey: "nik", MetaValue: json.Number("9007199254740993")})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rec.ID, found[0].ID)
}

// racingStore answers every pre-check as if the key were free, then fails
// the write with a unique violation, as when a concurrent writer wins.
type racingStore struct {
	store.Store
	existing *models.Record
}

func (s *racingStore) Variant() models.Variant { return models.Personnel }

func (s *racingStore) GetByNaturalKey(context.Context, string) (*models.Record, error) {
	return nil, nil
}

func (s *racingStore) GetByID(context.Context, int64) (*models.Record, error) {
	return s.existing, nil
}

func (s *racingStore) Create(context.Context, models.Input) (*models.Record, error) {
	return nil, fmt.Errorf("%w: duplicate key value violates unique constraint", models.ErrConflict)
}

func (s *racingStore) Replace(context.Context, int64, models.Input) (*models.Record, error) {
	return nil, fmt.Errorf("%w: duplicate key value violates unique constraint", models.ErrConflict)
}

func TestConcurrentKeyClaimIsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	log, _ := logtest.NewNullLogger()
	svc := NewRecordService(&racingStore{existing: &models.Record{ID: 1, NaturalKey: "1", Name: "A"}}, log)

	_, err := svc.Create(ctx, models.Input{NaturalKey: "2", Name: "B"})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "nip 2")

	_, err = svc.Update(ctx, 1, models.Input{NaturalKey: "2", Name: "A"})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
}
