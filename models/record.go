package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// DefaultStatus is applied when a record is written without a status.
const DefaultStatus = "aktif"

// Record is a personnel or user entry. The natural key is serialized under
// the variant's key field (nip or uuid), see MarshalJSON.
type Record struct {
	ID         int64  `json:"id"`
	NaturalKey string `json:"-"`
	KeyField   string `json:"-"`

	Name      string  `json:"nama"`
	Title     *string `json:"jabatan"`
	Unit      *string `json:"unit_kerja"`
	Email     *string `json:"email"`
	Phone     *string `json:"telepon"`
	Address   *string `json:"alamat"`
	BirthDate *string `json:"tanggal_lahir"`
	JoinDate  *string `json:"tanggal_masuk"`
	Status    *string `json:"status"`
	Rank      *string `json:"pangkat"`
	Rayon     *string `json:"rayon"`
	Instagram *string `json:"ig_uname"`
	Facebook  *string `json:"fb_uname"`
	TikTok    *string `json:"tt_uname"`
	X         *string `json:"x_uname"`
	YouTube   *string `json:"yt_uname"`

	Metadata     map[string]any `json:"additional_data"`
	ChatIdentity *string        `json:"telegram_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON writes the natural key first, under the variant's key name.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	body, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	keyField := r.KeyField
	if keyField == "" {
		keyField = "natural_key"
	}
	head, err := json.Marshal(map[string]string{keyField: r.NaturalKey})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(head[:len(head)-1])
	buf.WriteByte(',')
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// Value returns the current value of a field, or nil when unset.
func (r *Record) Value(f Field) *string {
	switch f {
	case FieldName:
		name := r.Name
		return &name
	case FieldChatIdentity:
		return r.ChatIdentity
	}
	if p := r.slot(f); p != nil {
		return *p
	}
	return nil
}

// Set writes a field in memory. A nil value clears optional fields.
func (r *Record) Set(f Field, v *string) {
	switch f {
	case FieldName:
		if v != nil {
			r.Name = *v
		}
		return
	case FieldChatIdentity:
		r.ChatIdentity = v
		return
	}
	if p := r.slot(f); p != nil {
		*p = v
	}
}

func (r *Record) slot(f Field) **string {
	switch f {
	case FieldTitle:
		return &r.Title
	case FieldUnit:
		return &r.Unit
	case FieldEmail:
		return &r.Email
	case FieldPhone:
		return &r.Phone
	case FieldAddress:
		return &r.Address
	case FieldBirthDate:
		return &r.BirthDate
	case FieldJoinDate:
		return &r.JoinDate
	case FieldStatus:
		return &r.Status
	case FieldRank:
		return &r.Rank
	case FieldRayon:
		return &r.Rayon
	case FieldInstagram:
		return &r.Instagram
	case FieldFacebook:
		return &r.Facebook
	case FieldTikTok:
		return &r.TikTok
	case FieldX:
		return &r.X
	case FieldYouTube:
		return &r.YouTube
	}
	return nil
}

// Input carries the caller-writable fields of a create or full replace.
// Empty optional strings are stored as NULL. The max tags mirror
// Field.MaxLen and KeyMaxLen.
type Input struct {
	NaturalKey string         `json:"-" validate:"required,max=50"`
	Name       string         `json:"nama" validate:"required,max=255"`
	Title      string         `json:"jabatan" validate:"max=255"`
	Unit       string         `json:"unit_kerja" validate:"max=255"`
	Email      string         `json:"email" validate:"max=255"`
	Phone      string         `json:"telepon" validate:"max=50"`
	Address    string         `json:"alamat"`
	BirthDate  string         `json:"tanggal_lahir" validate:"omitempty,datetime=2006-01-02"`
	JoinDate   string         `json:"tanggal_masuk" validate:"omitempty,datetime=2006-01-02"`
	Status     string         `json:"status" validate:"max=50"`
	Rank       string         `json:"pangkat" validate:"max=100"`
	Rayon      string         `json:"rayon" validate:"max=100"`
	Instagram  string         `json:"ig_uname" validate:"max=100"`
	Facebook   string         `json:"fb_uname" validate:"max=100"`
	TikTok     string         `json:"tt_uname" validate:"max=100"`
	X          string         `json:"x_uname" validate:"max=100"`
	YouTube    string         `json:"yt_uname" validate:"max=100"`
	Metadata   map[string]any `json:"additional_data"`
}

// Value returns the input value for one of the ColumnFields.
func (in *Input) Value(f Field) string {
	switch f {
	case FieldName:
		return in.Name
	case FieldTitle:
		return in.Title
	case FieldUnit:
		return in.Unit
	case FieldEmail:
		return in.Email
	case FieldPhone:
		return in.Phone
	case FieldAddress:
		return in.Address
	case FieldBirthDate:
		return in.BirthDate
	case FieldJoinDate:
		return in.JoinDate
	case FieldStatus:
		return in.Status
	case FieldRank:
		return in.Rank
	case FieldRayon:
		return in.Rayon
	case FieldInstagram:
		return in.Instagram
	case FieldFacebook:
		return in.Facebook
	case FieldTikTok:
		return in.TikTok
	case FieldX:
		return in.X
	case FieldYouTube:
		return in.YouTube
	}
	return ""
}
