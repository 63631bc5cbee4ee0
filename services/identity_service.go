package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"hermes-backend/models"
	"hermes-backend/store"
)

// IdentityService links chat identities to records. A chat identity points
// at no more than one record and a record holds no more than one chat
// identity; the unique column on the store is the final guard.
type IdentityService struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewIdentityService(s store.Store, log logrus.FieldLogger) *IdentityService {
	return &IdentityService{
		store: s,
		log:   log.WithField("variant", s.Variant().Name),
	}
}

// Link attaches handle to the record owning naturalKey and returns it.
// Linking a handle to the record it already points at is a no-op.
func (s *IdentityService) Link(ctx context.Context, naturalKey, handle string) (*models.Record, error) {
	naturalKey = strings.TrimSpace(naturalKey)
	if naturalKey == "" {
		return nil, models.Invalid("%s is required", s.store.Variant().KeyField)
	}
	if handle == "" {
		return nil, models.Invalid("chat identity is required")
	}

	target, err := s.store.GetByNaturalKey(ctx, naturalKey)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s %s unknown", models.ErrNotFound, s.store.Variant().KeyField, naturalKey)
	}

	holder, err := s.store.GetByChatIdentity(ctx, handle)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.NaturalKey != target.NaturalKey {
		return nil, models.ErrIdentityTaken
	}
	if target.ChatIdentity != nil && *target.ChatIdentity == handle {
		return target, nil
	}

	rec, err := s.store.Patch(ctx, target.ID, models.NewPatch().Set(models.FieldChatIdentity, handle))
	if errors.Is(err, models.ErrConflict) {
		return nil, models.ErrIdentityTaken
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"id": rec.ID, "chat_identity": handle}).Info("Akun chat berhasil ditautkan")
	return rec, nil
}

// Resolve returns the record linked to handle or ErrUnlinked.
func (s *IdentityService) Resolve(ctx context.Context, handle string) (*models.Record, error) {
	rec, err := s.store.GetByChatIdentity(ctx, handle)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, models.ErrUnlinked
	}
	return rec, nil
}

// Unlink detaches handle from its record.
func (s *IdentityService) Unlink(ctx context.Context, handle string) (*models.Record, error) {
	rec, err := s.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	rec, err = s.store.Patch(ctx, rec.ID, models.NewPatch().Clear(models.FieldChatIdentity))
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"id": rec.ID, "chat_identity": handle}).Info("Tautan akun chat dilepas")
	return rec, nil
}
