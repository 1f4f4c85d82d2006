package repository

import (
	"alertaid-backend/internal/domain"
	"sync"
)

const DefaultReportHistory = 20

// InMemoryReportRepository keeps the last few run reports, oldest first.
type InMemoryReportRepository struct {
	reports []domain.RunReport
	limit   int
	mu      sync.RWMutex
}

func NewInMemoryReportRepository(limit int) *InMemoryReportRepository {
	if limit <= 0 {
		limit = DefaultReportHistory
	}
	return &InMemoryReportRepository{
		reports: []domain.RunReport{},
		limit:   limit,
	}
}

func (r *InMemoryReportRepository) SaveReport(report domain.RunReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report)
	if over := len(r.reports) - r.limit; over > 0 {
		r.reports = append([]domain.RunReport(nil), r.reports[over:]...)
	}
}

// GetReports returns a copy so callers can serialize without holding the lock.
// Nested slices are shared; reports are never mutated after SaveReport.
func (r *InMemoryReportRepository) GetReports() []domain.RunReport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.RunReport, len(r.reports))
	copy(result, r.reports)
	return result
}
