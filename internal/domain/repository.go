package domain

import "context"

// TokenStore keeps the registered device tokens in insertion order.
type TokenStore interface {
	// AddIfAbsent stores token unless it is already present. It reports
	// whether the token was added. The change is persisted before returning.
	AddIfAbsent(ctx context.Context, token string) (bool, error)
	// List returns a snapshot of all tokens.
	List(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// ReportRepository keeps the most recent run reports.
type ReportRepository interface {
	SaveReport(report RunReport)
	GetReports() []RunReport
}
