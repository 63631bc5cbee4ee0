package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"hermes-backend/models"
	"hermes-backend/store"
)

// SearchCriteria selects a listing. The name fragment wins over a metadata
// match, which wins over the status filter.
type SearchCriteria struct {
	NameFragment string
	MetaKey      string
	MetaValue    any
	Status       string
}

// RecordService validates and guards writes to one variant's store.
type RecordService struct {
	store    store.Store
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewRecordService(s store.Store, log logrus.FieldLogger) *RecordService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RecordService{
		store:    s,
		validate: validate,
		log:      log.WithField("variant", s.Variant().Name),
	}
}

func (s *RecordService) Variant() models.Variant {
	return s.store.Variant()
}

// Store exposes the underlying store for the identity registry.
func (s *RecordService) Store() store.Store {
	return s.store
}

// Get returns the record or ErrNotFound.
func (s *RecordService) Get(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

// GetByNaturalKey returns the record owning key or ErrNotFound.
func (s *RecordService) GetByNaturalKey(ctx context.Context, key string) (*models.Record, error) {
	rec, err := s.store.GetByNaturalKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

func (s *RecordService) Search(ctx context.Context, c SearchCriteria) ([]models.Record, error) {
	switch {
	case c.NameFragment != "":
		return s.store.SearchByName(ctx, c.NameFragment)
	case c.MetaKey != "":
		return s.store.FindByMetadata(ctx, c.MetaKey, c.MetaValue)
	case c.Status != "":
		return s.store.ListByStatus(ctx, c.Status)
	default:
		return s.store.List(ctx)
	}
}

func (s *RecordService) Create(ctx context.Context, in models.Input) (*models.Record, error) {
	in = normalize(in)
	if err := s.check(in); err != nil {
		return nil, err
	}

	existing, err := s.store.GetByNaturalKey(ctx, in.NaturalKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, s.duplicate(in.NaturalKey)
	}

	rec, err := s.store.Create(ctx, in)
	if errors.Is(err, models.ErrConflict) {
		return nil, s.duplicate(in.NaturalKey)
	}
	if err != nil {
		s.log.WithError(err).Error("Gagal membuat data")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"id": rec.ID, "key": rec.NaturalKey}).Info("Data baru dibuat")
	return rec, nil
}

// Update fully replaces record id. The chat identity is left as is.
func (s *RecordService) Update(ctx context.Context, id int64, in models.Input) (*models.Record, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in = normalize(in)
	if err := s.check(in); err != nil {
		return nil, err
	}

	if in.NaturalKey != existing.NaturalKey {
		owner, err := s.store.GetByNaturalKey(ctx, in.NaturalKey)
		if err != nil {
			return nil, err
		}
		if owner != nil && owner.ID != id {
			return nil, s.duplicate(in.NaturalKey)
		}
	}

	rec, err := s.store.Replace(ctx, id, in)
	if errors.Is(err, models.ErrConflict) {
		return nil, s.duplicate(in.NaturalKey)
	}
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.WithError(err).WithField("id", id).Error("Gagal memperbarui data")
		}
		return nil, err
	}

	s.log.WithField("id", id).Info("Data diperbarui")
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("id", id).Error("Gagal menghapus data")
		return err
	}
	s.log.WithField("id", id).Info("Data dihapus")
	return nil
}

// UpdateField writes a single field and leaves every other field untouched.
// The chat identity is owned by the identity registry and rejected here.
func (s *RecordService) UpdateField(ctx context.Context, id int64, field models.Field, value string) (*models.Record, error) {
	if field == models.FieldChatIdentity || !field.Patchable() {
		return nil, models.Invalid("field %q cannot be updated", field)
	}
	switch field {
	case models.FieldBirthDate, models.FieldJoinDate:
		if err := s.validate.Var(value, "datetime=2006-01-02"); err != nil {
			return nil, models.Invalid("%s must use the YYYY-MM-DD format", field)
		}
	}
	if n := field.MaxLen(); n > 0 {
		if err := s.validate.Var(value, "max="+strconv.Itoa(n)); err != nil {
			return nil, models.Invalid("%s must be at most %d characters", field, n)
		}
	}
	return s.patch(ctx, id, models.NewPatch().Set(field, value))
}

// SetMetadata merges one key into the record's additional_data.
func (s *RecordService) SetMetadata(ctx context.Context, id int64, key string, value any) (*models.Record, error) {
	if err := s.store.PatchMetadataKey(ctx, id, key, value); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *RecordService) patch(ctx context.Context, id int64, p *models.Patch) (*models.Record, error) {
	rec, err := s.store.Patch(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"id": id, "fields": p.Fields()}).Info("Data diperbarui sebagian")
	return rec, nil
}

func (s *RecordService) duplicate(key string) error {
	return fmt.Errorf("%w: %s %s", models.ErrDuplicateKey, s.Variant().KeyField, key)
}

// check runs the struct validation and renders failures with column names.
func (s *RecordService) check(in models.Input) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.Invalid("%v", err)
	}

	keyField := s.Variant().KeyField
	if hasRequiredFailure(verrs) {
		return models.Invalid("%s and nama are required", strings.ToUpper(keyField))
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		col := fe.Field()
		if col == "NaturalKey" {
			col = keyField
		}
		switch fe.Tag() {
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", col, fe.Param()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must use the YYYY-MM-DD format", col))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", col, fe.Tag()))
		}
	}
	return models.Invalid("%s", strings.Join(msgs, ", "))
}

func hasRequiredFailure(verrs validator.ValidationErrors) bool {
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return true
		}
	}
	return false
}

func normalize(in models.Input) models.Input {
	in.NaturalKey = strings.TrimSpace(in.NaturalKey)
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = models.DefaultStatus
	}
	if in.Metadata == nil {
		in.Metadata = map[string]any{}
	}
	return in
}
