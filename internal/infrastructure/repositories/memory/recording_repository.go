package memory

import (
	"context"
	"sort"
	"sync"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
)

type MemoryRecordingRepository struct {
	recordings map[string]*domain.Recording
	mu         sync.RWMutex
}

func NewMemoryRecordingRepository() ports.RecordingRepository {
	return &MemoryRecordingRepository{
		recordings: make(map[string]*domain.Recording),
	}
}

func (r *MemoryRecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *rec
	r.recordings[rec.ID] = &clone
	return nil
}

func (r *MemoryRecordingRepository) GetByID(ctx context.Context, id string) (*domain.Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.recordings[id]
	if !exists {
		return nil, domain.ErrRecordingNotFound
	}

	clone := *rec
	return &clone, nil
}

func (r *MemoryRecordingRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.recordings[id]; !exists {
		return domain.ErrRecordingNotFound
	}

	delete(r.recordings, id)
	return nil
}

func (r *MemoryRecordingRepository) List(ctx context.Context, deviceID domain.DeviceID, limit, offset int) ([]*domain.Recording, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Recording
	for _, rec := range r.recordings {
		if rec.DeviceID != deviceID {
			continue
		}
		clone := *rec
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []*domain.Recording{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
