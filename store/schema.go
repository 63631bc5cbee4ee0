package store

import (
	"fmt"
	"strings"

	"hermes-backend/models"
)

// selectColumns is the column order every SQL read scans in.
func selectColumns(v models.Variant) []string {
	cols := []string{"id", v.KeyField}
	for _, f := range models.ColumnFields {
		cols = append(cols, f.Column())
	}
	cols = append(cols, models.FieldChatIdentity.Column())
	if v.HasMetadata {
		cols = append(cols, "additional_data")
	}
	return append(cols, "created_at", "updated_at")
}

// schemaStatements returns the DDL creating the table and indexes of v.
func (d dialect) schemaStatements(v models.Variant) []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", v.Table)
	fmt.Fprintf(&b, "  id %s,\n", d.pkType)
	fmt.Fprintf(&b, "  %s %s NOT NULL UNIQUE,\n", v.KeyField, d.textType(models.KeyMaxLen))
	for _, f := range models.ColumnFields {
		switch f {
		case models.FieldName:
			fmt.Fprintf(&b, "  %s %s NOT NULL,\n", f.Column(), d.textType(f.MaxLen()))
		case models.FieldStatus:
			fmt.Fprintf(&b, "  %s %s DEFAULT '%s',\n", f.Column(), d.textType(f.MaxLen()), models.DefaultStatus)
		default:
			fmt.Fprintf(&b, "  %s %s,\n", f.Column(), d.textType(f.MaxLen()))
		}
	}
	fmt.Fprintf(&b, "  %s %s UNIQUE,\n", models.FieldChatIdentity.Column(), d.textType(models.FieldChatIdentity.MaxLen()))
	if v.HasMetadata {
		fmt.Fprintf(&b, "  additional_data %s NOT NULL DEFAULT '{}',\n", d.jsonType)
	}
	fmt.Fprintf(&b, "  created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,\n", d.timeType)
	fmt.Fprintf(&b, "  updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP\n", d.timeType)
	b.WriteString(")")

	return []string{
		b.String(),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_nama ON %s (LOWER(nama))", v.Table, v.Table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (status)", v.Table, v.Table),
	}
}
