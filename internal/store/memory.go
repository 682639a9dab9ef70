package store

import (
	"context"
	"sync"
)

// MemoryStore keeps submissions in process memory. Contents are lost on
// restart.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  []Submission
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, in NewSubmission) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := Submission{
		ID:          s.nextID,
		Name:        in.Name,
		Email:       in.Email,
		Business:    cloneString(in.Business),
		Message:     in.Message,
		SubmittedAt: in.SubmittedAt,
	}
	s.nextID++
	s.items = append(s.items, sub)
	return copySubmission(sub), nil
}

func (s *MemoryStore) ListSubmissions(ctx context.Context) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Submission, len(s.items))
	for i, sub := range s.items {
		out[i] = copySubmission(sub)
	}
	return out, nil
}

func (s *MemoryStore) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.items {
		if sub.ID == id {
			return copySubmission(sub), nil
		}
	}
	return Submission{}, ErrNotFound
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func copySubmission(sub Submission) Submission {
	sub.Business = cloneString(sub.Business)
	return sub
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
