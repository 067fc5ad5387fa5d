package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/ride-booking-client/internal/geocoding"
	"github.com/richxcame/ride-booking-client/pkg/logger"
	"go.uber.org/zap"
)

// Geocoder resolves free text into ranked places.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]geocoding.Place, error)
}

// UpdateFunc receives the suggestions for query after every change.
type UpdateFunc func(query string, places []geocoding.Place)

// Searcher owns the query text and the suggestion list of a destination box.
type Searcher struct {
	geocoder  Geocoder
	debouncer *Debouncer
	onUpdate  UpdateFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	query       string
	suggestions []geocoding.Place
}

// NewSearcher creates a searcher. onUpdate may be nil.
func NewSearcher(geocoder Geocoder, delay time.Duration, onUpdate UpdateFunc) *Searcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Searcher{
		geocoder:  geocoder,
		debouncer: NewDebouncer(delay),
		onUpdate:  onUpdate,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetQuery records the query text and schedules a lookup. A blank query
// clears the suggestions immediately without a request.
func (s *Searcher) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	blank := strings.TrimSpace(query) == ""
	if blank {
		s.suggestions = nil
	}
	s.mu.Unlock()

	if blank {
		s.debouncer.Cancel()
		s.notify(query, nil)
		return
	}
	s.debouncer.Trigger(func() { s.lookup(query) })
}

func (s *Searcher) lookup(query string) {
	places, err := s.geocoder.Search(s.ctx, query)
	if err != nil {
		logger.WarnContext(s.ctx, "destination search failed", zap.String("query", query), zap.Error(err))
		places = nil
	}

	s.mu.Lock()
	if s.query != query {
		s.mu.Unlock()
		logger.DebugContext(s.ctx, "dropping superseded search results", zap.String("query", query))
		return
	}
	s.suggestions = places
	s.mu.Unlock()

	s.notify(query, places)
}

func (s *Searcher) notify(query string, places []geocoding.Place) {
	if s.onUpdate != nil {
		s.onUpdate(query, places)
	}
}

// Query returns the current query text.
func (s *Searcher) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Suggestions returns a copy of the current suggestions.
func (s *Searcher) Suggestions() []geocoding.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geocoding.Place, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Clear empties the query and suggestions and drops any pending lookup.
func (s *Searcher) Clear() {
	s.debouncer.Cancel()
	s.mu.Lock()
	s.query = ""
	s.suggestions = nil
	s.mu.Unlock()
}

// Close stops the debouncer and cancels lookups in flight.
func (s *Searcher) Close() {
	s.debouncer.Stop()
	s.cancel()
}
