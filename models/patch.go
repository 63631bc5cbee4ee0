package models

// Field names a writable record column. The string value is the column name.
type Field string

const (
	FieldName         Field = "nama"
	FieldTitle        Field = "jabatan"
	FieldUnit         Field = "unit_kerja"
	FieldEmail        Field = "email"
	FieldPhone        Field = "telepon"
	FieldAddress      Field = "alamat"
	FieldBirthDate    Field = "tanggal_lahir"
	FieldJoinDate     Field = "tanggal_masuk"
	FieldStatus       Field = "status"
	FieldRank         Field = "pangkat"
	FieldRayon        Field = "rayon"
	FieldInstagram    Field = "ig_uname"
	FieldFacebook     Field = "fb_uname"
	FieldTikTok       Field = "tt_uname"
	FieldX            Field = "x_uname"
	FieldYouTube      Field = "yt_uname"
	FieldChatIdentity Field = "telegram_id"
)

// ColumnFields lists, in storage order, the fields written by a full
// replace. The natural key, metadata and chat identity are handled apart.
var ColumnFields = []Field{
	FieldName,
	FieldTitle,
	FieldUnit,
	FieldEmail,
	FieldPhone,
	FieldAddress,
	FieldBirthDate,
	FieldJoinDate,
	FieldStatus,
	FieldRank,
	FieldRayon,
	FieldInstagram,
	FieldFacebook,
	FieldTikTok,
	FieldX,
	FieldYouTube,
}

// Column returns the storage column of the field.
func (f Field) Column() string { return string(f) }

// KeyMaxLen bounds the natural key column.
const KeyMaxLen = 50

// fieldMaxLen follows the original tables; zero means unbounded text.
var fieldMaxLen = map[Field]int{
	FieldName:         255,
	FieldTitle:        255,
	FieldUnit:         255,
	FieldEmail:        255,
	FieldPhone:        50,
	FieldAddress:      0,
	FieldBirthDate:    10,
	FieldJoinDate:     10,
	FieldStatus:       50,
	FieldRank:         100,
	FieldRayon:        100,
	FieldInstagram:    100,
	FieldFacebook:     100,
	FieldTikTok:       100,
	FieldX:            100,
	FieldYouTube:      100,
	FieldChatIdentity: 64,
}

// MaxLen returns the longest value, in characters, the field's column
// holds. Zero means unbounded.
func (f Field) MaxLen() int { return fieldMaxLen[f] }

// Patchable reports whether the field may appear in a Patch.
func (f Field) Patchable() bool {
	if f == FieldChatIdentity {
		return true
	}
	for _, c := range ColumnFields {
		if c == f {
			return true
		}
	}
	return false
}

// Patch is a partial update: only fields that were Set or Cleared are
// written, everything else is left untouched. A cleared field is written
// as NULL.
type Patch struct {
	order  []Field
	values map[Field]*string
}

// NewPatch returns an empty patch.
func NewPatch() *Patch {
	return &Patch{values: make(map[Field]*string)}
}

// Set writes value into field f.
func (p *Patch) Set(f Field, value string) *Patch {
	v := value
	p.put(f, &v)
	return p
}

// Clear writes NULL into field f.
func (p *Patch) Clear(f Field) *Patch {
	p.put(f, nil)
	return p
}

func (p *Patch) put(f Field, v *string) {
	if p.values == nil {
		p.values = make(map[Field]*string)
	}
	if _, seen := p.values[f]; !seen {
		p.order = append(p.order, f)
	}
	p.values[f] = v
}

// Fields returns the touched fields in the order they were first set.
func (p *Patch) Fields() []Field {
	if p == nil {
		return nil
	}
	out := make([]Field, len(p.order))
	copy(out, p.order)
	return out
}

// Get returns the new value for f and whether f is part of the patch.
func (p *Patch) Get(f Field) (*string, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[f]
	return v, ok
}

// Empty reports whether the patch touches no field.
func (p *Patch) Empty() bool {
	return p == nil || len(p.order) == 0
}

// Validate rejects fields that cannot be patched and an empty name.
func (p *Patch) Validate() error {
	for _, f := range p.Fields() {
		if !f.Patchable() {
			return Invalid("field %q cannot be updated", f)
		}
		if f == FieldName {
			if v, _ := p.Get(f); v == nil || *v == "" {
				return Invalid("nama must not be empty")
			}
		}
	}
	return nil
}
