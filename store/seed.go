package store

import (
	"context"
	"errors"

	"hermes-backend/models"
)

// SamplePersonnel are the demo rows loaded by `initdb --seed`.
var SamplePersonnel = []models.Input{
	{
		NaturalKey: "198001012010011001",
		Name:       "Budi Santoso",
		Title:      "Kepala Bagian",
		Unit:       "IT Department",
		Email:      "budi.santoso@hermes.id",
		Phone:      "081234567890",
		Status:     models.DefaultStatus,
	},
	{
		NaturalKey: "198502152012022002",
		Name:       "Siti Nurhaliza",
		Title:      "Staff",
		Unit:       "HR Department",
		Email:      "siti.nurhaliza@hermes.id",
		Phone:      "081234567891",
		Status:     models.DefaultStatus,
	},
	{
		NaturalKey: "199003202015031003",
		Name:       "Ahmad Dhani",
		Title:      "Manager",
		Unit:       "Finance Department",
		Email:      "ahmad.dhani@hermes.id",
		Phone:      "081234567892",
		Status:     models.DefaultStatus,
	},
}

// Seed inserts rows whose natural key is not taken yet and reports how many
// were inserted.
func Seed(ctx context.Context, s Store, rows []models.Input) (int, error) {
	inserted := 0
	for _, in := range rows {
		_, err := s.Create(ctx, in)
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, models.ErrConflict):
		default:
			return inserted, err
		}
	}
	return inserted, nil
}
