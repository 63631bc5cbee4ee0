package models

// Variant describes one kind of directory record. Personnel and users share
// the same shape and differ only in table, natural key and schema flags.
type Variant struct {
	Name        string // route segment, e.g. "personnel"
	Table       string
	KeyField    string // natural key column and json name
	Noun        string // used in user-facing messages
	HasMetadata bool   // additional_data column present
}

var (
	Personnel = Variant{
		Name:        "personnel",
		Table:       "personnel",
		KeyField:    "nip",
		Noun:        "Personnel",
		HasMetadata: true,
	}

	Users = Variant{
		Name:     "users",
		Table:    "users",
		KeyField: "uuid",
		Noun:     "User",
	}
)

// LookupVariant finds a built-in variant by its route name.
func LookupVariant(name string) (Variant, bool) {
	switch name {
	case Personnel.Name:
		return Personnel, true
	case Users.Name:
		return Users, true
	}
	return Variant{}, false
}
