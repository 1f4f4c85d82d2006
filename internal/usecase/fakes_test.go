package usecase

import (
	"context"
	"sync"

	"alertaid-backend/internal/domain"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.PushMessage
	fail map[string]error
}

func (f *fakeNotifier) Send(_ context.Context, msg domain.PushMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if err := f.fail[msg.To]; err != nil {
		return "", err
	}
	return `{"data":{"status":"ok"}}`, nil
}

func (f *fakeNotifier) messages() []domain.PushMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PushMessage(nil), f.sent...)
}

type fakeStore struct {
	tokens []string
	err    error
}

func (s *fakeStore) AddIfAbsent(_ context.Context, token string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, t := range s.tokens {
		if t == token {
			return false, nil
		}
	}
	s.tokens = append(s.tokens, token)
	return true, nil
}

func (s *fakeStore) List(context.Context) ([]string, error) {
	return append([]string(nil), s.tokens...), s.err
}

func (s *fakeStore) Count(context.Context) (int, error) { return len(s.tokens), s.err }

func (s *fakeStore) Close() error { return nil }

type fakeWeather struct {
	snapshot domain.WeatherSnapshot
	err      error
}

func (f fakeWeather) Current(context.Context) (domain.WeatherSnapshot, error) {
	return f.snapshot, f.err
}

type fakeQuake struct {
	event *domain.Earthquake
	err   error
}

func (f fakeQuake) Latest(context.Context) (*domain.Earthquake, error) {
	return f.event, f.err
}

type memReports struct{ reports []domain.RunReport }

func (m *memReports) SaveReport(r domain.RunReport)  { m.reports = append(m.reports, r) }
func (m *memReports) GetReports() []domain.RunReport { return m.reports }
