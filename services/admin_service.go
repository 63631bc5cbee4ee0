package services

import (
	"context"
	"fmt"
)

// VariantSummary is the admin dashboard view of one variant.
type VariantSummary struct {
	Variant     string           `json:"variant"`
	TotalRecord int64            `json:"total_records"`
	Linked      int64            `json:"linked_chat_identities"`
	ByStatus    map[string]int64 `json:"by_status"`
}

// AdminService aggregates counts across the record services.
type AdminService struct {
	records []*RecordService
}

func NewAdminService(records ...*RecordService) *AdminService {
	return &AdminService{records: records}
}

// GetAdminMetrics counts records, linked identities and statuses per variant.
func (s *AdminService) GetAdminMetrics(ctx context.Context) ([]VariantSummary, error) {
	summaries := make([]VariantSummary, 0, len(s.records))
	for _, svc := range s.records {
		all, err := svc.Search(ctx, SearchCriteria{})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", svc.Variant().Name, err)
		}

		sum := VariantSummary{
			Variant:     svc.Variant().Name,
			TotalRecord: int64(len(all)),
			ByStatus:    map[string]int64{},
		}
		for _, rec := range all {
			if rec.ChatIdentity != nil {
				sum.Linked++
			}
			status := "-"
			if rec.Status != nil {
				status = *rec.Status
			}
			sum.ByStatus[status]++
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}
