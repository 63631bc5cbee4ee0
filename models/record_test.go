package models

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRecordMarshalJSONUsesVariantKey(t *testing.T) {
	rec := Record{
		ID:         7,
		NaturalKey: "198001012010011001",
		KeyField:   Personnel.KeyField,
		Name:       "Budi Santoso",
		Phone:      strPtr("0811"),
		CreatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), `{"nip":"198001012010011001","id":7,`), string(raw))

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Budi Santoso", out["nama"])
	assert.Equal(t, "0811", out["telepon"])
	assert.Nil(t, out["email"])
	assert.Equal(t, map[string]any{}, out["additional_data"])
	assert.NotContains(t, out, "NaturalKey")
	assert.NotContains(t, out, "uuid")
}

func TestRecordSetAndValue(t *testing.T) {
	var rec Record
	rec.Set(FieldInstagram, strPtr("budi.s"))
	rec.Set(FieldName, strPtr("Budi"))
	rec.Set(FieldName, nil)

	assert.Equal(t, "budi.s", *rec.Value(FieldInstagram))
	assert.Equal(t, "Budi", *rec.Value(FieldName))
	assert.Nil(t, rec.Value(FieldYouTube))

	rec.Set(FieldInstagram, nil)
	assert.Nil(t, rec.Instagram)
}

func TestLookupVariant(t *testing.T) {
	v, ok := LookupVariant("users")
	require.True(t, ok)
	assert.Equal(t, "uuid", v.KeyField)

	_, ok = LookupVariant("admins")
	assert.False(t, ok)
}

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, ErrDuplicateKey, ErrConflict)
	assert.ErrorIs(t, ErrIdentityTaken, ErrConflict)
	assert.NotErrorIs(t, ErrIdentityTaken, ErrDuplicateKey)

	err := Invalid("nip %s", "kosong")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: nip kosong", err.Error())
}

func TestInputLimitsMatchColumns(t *testing.T) {
	typ := reflect.TypeOf(Input{})
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		tag := sf.Tag.Get("validate")
		if !strings.Contains(tag, "max=") {
			continue
		}
		want := Field(sf.Tag.Get("json")).MaxLen()
		if sf.Name == "NaturalKey" {
			want = KeyMaxLen
		}
		assert.Contains(t, strings.Split(tag, ","), "max="+strconv.Itoa(want), sf.Name)
	}

	for _, f := range ColumnFields {
		if f.MaxLen() == 0 || f == FieldBirthDate || f == FieldJoinDate {
			continue
		}
		sf, ok := typ.FieldByNameFunc(func(name string) bool {
			field, _ := typ.FieldByName(name)
			return field.Tag.Get("json") == f.Column()
		})
		require.True(t, ok, f)
		assert.Contains(t, sf.Tag.Get("validate"), "max=", f)
	}
}
