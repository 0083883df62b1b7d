// Package investor serves cached reputation and portfolio reads.
package investor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rpggio/capvault/internal/domain/captable"
)

// DefaultTTL is how long reads are cached when no TTL is configured.
const DefaultTTL = 30 * time.Second

// ErrInvalidInput indicates a missing investor address.
var ErrInvalidInput = errors.New("investor address is required")

// Reader reads investor data from the contract.
type Reader interface {
	GetInvestorReputation(ctx context.Context, investor string) (*captable.Reputation, error)
	GetInvestorPortfolio(ctx context.Context, investor string) ([]uint64, error)
}

// Service reads investor data through a per-address cache.
type Service struct {
	reader Reader
	cache  *cache.Cache
	logger *slog.Logger
}

// NewService creates an investor service caching reads for ttl.
func NewService(reader Reader, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		reader: reader,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Reputation returns the investor's reputation.
func (s *Service) Reputation(ctx context.Context, address string) (*captable.Reputation, error) {
	key, err := cacheKey("reputation", address)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(key); ok {
		rep := cached.(captable.Reputation)
		return &rep, nil
	}

	rep, err := s.reader.GetInvestorReputation(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("reading reputation of %s: %w", address, err)
	}
	s.cache.Set(key, *rep, cache.DefaultExpiration)
	return rep, nil
}

// Portfolio returns the ids of the investor's investments.
func (s *Service) Portfolio(ctx context.Context, address string) ([]uint64, error) {
	key, err := cacheKey("portfolio", address)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(key); ok {
		return append([]uint64(nil), cached.([]uint64)...), nil
	}

	ids, err := s.reader.GetInvestorPortfolio(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("reading portfolio of %s: %w", address, err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	s.cache.Set(key, append([]uint64(nil), ids...), cache.DefaultExpiration)
	return ids, nil
}

// Invalidate drops cached reads for address.
func (s *Service) Invalidate(address string) {
	for _, kind := range []string{"reputation", "portfolio"} {
		if key, err := cacheKey(kind, address); err == nil {
			s.cache.Delete(key)
		}
	}
	s.logger.Debug("investor cache invalidated", "investor", address)
}

func cacheKey(kind, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrInvalidInput
	}
	return kind + ":" + strings.ToLower(address), nil
}
