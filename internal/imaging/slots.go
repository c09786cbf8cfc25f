package imaging

import (
	"context"
	"sync"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/metrics"
)

const (
	// SlotIdleTTL is how long a slot with no activity is kept
	SlotIdleTTL = 2 * time.Hour

	// SlotCleanupInterval is how often idle slots are dropped
	SlotCleanupInterval = 5 * time.Minute
)

// ImageNormalizer is what Slots needs from a Normalizer.
type ImageNormalizer interface {
	Normalize(ctx context.Context, data []byte, mimeType string) (*domain.NormalizedImage, error)
}

type slot struct {
	generation uint64
	cancel     context.CancelFunc
	current    *domain.NormalizedImage
	touchedAt  time.Time
}

// Slots runs at most one normalization per editing slot. A newer submission
// cancels the older one and the older caller gets ErrSuperseded.
type Slots struct {
	normalizer ImageNormalizer
	idleTTL    time.Duration

	mu    sync.Mutex
	slots map[string]*slot

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewSlots(normalizer ImageNormalizer, idleTTL time.Duration) *Slots {
	s := &Slots{
		normalizer:  normalizer,
		idleTTL:     idleTTL,
		slots:       make(map[string]*slot),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Normalize normalizes data for the slot named key. If another call for the
// same key starts before this one finishes, this call returns ErrSuperseded
// and its result is discarded. A failure leaves the slot without an image.
func (s *Slots) Normalize(ctx context.Context, key string, data []byte, mimeType string) (*domain.NormalizedImage, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{}
		s.slots[key] = sl
	}
	if sl.cancel != nil {
		sl.cancel()
	}
	sl.generation++
	gen := sl.generation
	sl.cancel = cancel
	sl.touchedAt = time.Now()
	s.mu.Unlock()

	img, err := s.normalizer.Normalize(ctx, data, mimeType)

	s.mu.Lock()
	defer s.mu.Unlock()

	// the slot may have been cleared and recreated meanwhile
	if cur, ok := s.slots[key]; !ok || cur != sl || sl.generation != gen {
		metrics.NormalizeTotal.WithLabelValues("superseded").Inc()
		return nil, ErrSuperseded
	}

	sl.cancel = nil
	sl.touchedAt = time.Now()
	if err != nil {
		sl.current = nil
		return nil, err
	}
	sl.current = img
	return img, nil
}

// Current returns the last successfully normalized image of a slot.
func (s *Slots) Current(key string) (*domain.NormalizedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[key]
	if !ok || sl.current == nil {
		return nil, false
	}
	return sl.current, true
}

// Busy reports whether a normalization is in flight for key.
func (s *Slots) Busy(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[key]
	return ok && sl.cancel != nil
}

// Clear cancels any in-flight call for key and forgets its image.
func (s *Slots) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok := s.slots[key]; ok {
		if sl.cancel != nil {
			sl.cancel()
		}
		delete(s.slots, key)
	}
}

func (s *Slots) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(SlotCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.dropIdle(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *Slots) dropIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sl := range s.slots {
		if sl.cancel == nil && now.Sub(sl.touchedAt) > s.idleTTL {
			delete(s.slots, key)
		}
	}
}

// Close cancels in-flight calls and stops the cleanup goroutine. It is safe
// to call more than once.
func (s *Slots) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for _, sl := range s.slots {
			if sl.cancel != nil {
				sl.cancel()
			}
		}
		s.mu.Unlock()

		close(s.stopCleanup)
	})
	s.wg.Wait()
	return nil
}
