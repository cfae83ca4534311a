package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
)

type MemoryCommandRepository struct {
	commands map[domain.CommandID]*domain.Command
	// order preserves global creation order so pending listings are FIFO.
	order []domain.CommandID
	mu    sync.RWMutex
}

func NewMemoryCommandRepository() ports.CommandRepository {
	return &MemoryCommandRepository{
		commands: make(map[domain.CommandID]*domain.Command),
	}
}

func (r *MemoryCommandRepository) Create(ctx context.Context, cmd *domain.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *cmd
	r.commands[cmd.ID] = &clone
	r.order = append(r.order, cmd.ID)
	return nil
}

func (r *MemoryCommandRepository) GetByID(ctx context.Context, id domain.CommandID) (*domain.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, exists := r.commands[id]
	if !exists {
		return nil, domain.ErrCommandNotFound
	}

	clone := *cmd
	return &clone, nil
}

func (r *MemoryCommandRepository) Update(ctx context.Context, cmd *domain.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.ID]; !exists {
		return domain.ErrCommandNotFound
	}

	clone := *cmd
	r.commands[cmd.ID] = &clone
	return nil
}

func (r *MemoryCommandRepository) ListPending(ctx context.Context, deviceID domain.DeviceID) ([]*domain.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Command
	for _, id := range r.order {
		cmd := r.commands[id]
		if cmd != nil && cmd.DeviceID == deviceID && cmd.Status == domain.CommandPending {
			clone := *cmd
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *MemoryCommandRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Command
	for _, id := range r.order {
		cmd := r.commands[id]
		if cmd != nil && cmd.Status == domain.CommandPending && cmd.CreatedAt.Before(cutoff) {
			clone := *cmd
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *MemoryCommandRepository) ListByDevice(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Command
	for _, cmd := range r.commands {
		if cmd.DeviceID != deviceID {
			continue
		}
		if status != "" && cmd.Status != status {
			continue
		}
		clone := *cmd
		matched = append(matched, &clone)
	}
	// Newest first for history listings.
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset >= total {
		return []*domain.Command{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
