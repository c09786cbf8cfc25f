package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/cache"
	"github.com/Mohaabaprint/Teetot-Print/internal/domain"
	"github.com/Mohaabaprint/Teetot-Print/internal/metrics"
	"github.com/Mohaabaprint/Teetot-Print/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const MaxLineQuantity = 99

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrInvalidSize     = errors.New("unknown size")
	ErrProductNotFound = errors.New("product not found")
	ErrDesignNotFound  = errors.New("design image not found")
)

// Consumers define this interface
type Repository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type ImageReader interface {
	GetImageMeta(ctx context.Context, id uuid.UUID) (*domain.NormalizedImage, error)
}

type AddItemInput struct {
	ProductID string
	Quantity  int
	Size      domain.Size
	DesignID  uuid.UUID
	Transform *domain.PlacementTransform
}

type CartService struct {
	repo     Repository
	cache    cache.CartCache
	products ProductReader
	images   ImageReader
	log      *zap.Logger
	sfg      singleflight.Group // Prevents cache stampede
	locks    [64]sync.Mutex     // serializes read-modify-write per session
}

func NewCartService(repo Repository, cache cache.CartCache, products ProductReader, images ImageReader, log *zap.Logger) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		images:   images,
		log:      log,
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			metrics.CartCacheResults.WithLabelValues("hit").Inc()
			return cart, nil
		}

		if errors.Is(err, cache.ErrCacheMiss) {
			metrics.CartCacheResults.WithLabelValues("miss").Inc()
		} else {
			metrics.CartCacheResults.WithLabelValues("error").Inc()
			s.log.Warn("cache get error", zap.String("session_id", sessionID), zap.Error(err))
		}

		// held until the cache is filled so a concurrent write cannot be
		// overwritten by the value read here
		mu := s.lock(sessionID)
		mu.Lock()
		defer mu.Unlock()

		cart, errGet := s.repo.GetCart(ctx, sessionID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(sessionID), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if errSet := s.cache.Set(setCtx, sessionID, cart.Clone()); errSet != nil {
			s.log.Warn("cache set error", zap.String("session_id", sessionID), zap.Error(errSet))
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the cart
	return v.(*domain.Cart).Clone(), nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, in AddItemInput) (*domain.Cart, error) {
	if in.Quantity < 1 || in.Quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	if !in.Size.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSize, in.Size)
	}

	if _, err := s.products.GetProduct(ctx, in.ProductID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, in.ProductID)
		}
		return nil, err
	}

	var design *domain.DesignRef
	if in.DesignID != uuid.Nil {
		img, err := s.images.GetImageMeta(ctx, in.DesignID)
		if err != nil {
			if errors.Is(err, repository.ErrImageNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrDesignNotFound, in.DesignID)
			}
			return nil, err
		}
		ref := img.Ref()
		design = &ref
	}

	return s.modify(ctx, sessionID, func(c *domain.Cart) *domain.Cart {
		return AddLine(c, in.ProductID, in.Quantity, design, in.Size, in.Transform)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, sel Selector, quantity int) (*domain.Cart, error) {
	if quantity > MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	return s.modify(ctx, sessionID, func(c *domain.Cart) *domain.Cart {
		next, _ := UpdateQuantity(c, sel, quantity)
		return next
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, sel Selector) (*domain.Cart, error) {
	return s.modify(ctx, sessionID, func(c *domain.Cart) *domain.Cart {
		next, _ := RemoveLine(c, sel)
		return next
	})
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repo.DeleteCart(ctx, sessionID); err != nil {
		s.log.Error("repo delete cart error", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

// Consume hands the current cart to fn and empties the cart if fn succeeds.
// No other change to the cart can interleave.
func (s *CartService) Consume(ctx context.Context, sessionID string, fn func(*domain.Cart) error) error {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(current.Clone()); err != nil {
		return err
	}

	if err := s.repo.DeleteCart(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart after checkout: %w", err)
	}
	s.invalidateCache(sessionID)
	return nil
}

// modify re-reads the stored cart under the session lock so a change never
// applies to stale state.
func (s *CartService) modify(ctx context.Context, sessionID string, fn func(*domain.Cart) *domain.Cart) (*domain.Cart, error) {
	mu := s.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next := fn(current)
	next.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertCart(ctx, next); err != nil {
		s.log.Error("repo upsert cart error", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	s.invalidateCache(sessionID)
	return next.Clone(), nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	current, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(sessionID), nil
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (s *CartService) lock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}

func (s *CartService) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn("cache invalidate error", zap.String("session_id", sessionID), zap.Error(err))
	}
}
