package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"eshopscout/catalog"
	"eshopscout/errs"
	"eshopscout/events"
	"eshopscout/matcher"
	"eshopscout/models"
)

type TitleSearcher interface {
	Search(ctx context.Context, query string) (catalog.Outcome, error)
}

type IdentifierResolver interface {
	Resolve(ctx context.Context, title string, known map[models.RegionTag]string) map[models.RegionTag]string
}

type PriceAggregator interface {
	Aggregate(ctx context.Context, title *models.MatchedTitle) *models.PriceQuoteSet
	Invalidate(ctx context.Context, homeID string)
}

// TitleStore remembers matched titles and how often they are looked up. Optional.
type TitleStore interface {
	RecordLookup(ctx context.Context, title *models.MatchedTitle) error
	FindByID(ctx context.Context, id string) (*models.MatchedTitle, error)
}

type SearchRecorder interface {
	Search(kind models.LookupKind, status models.SearchStatus)
}

type searchRequest struct {
	Query string `validate:"required,min=2,max=100"`
}

type idRequest struct {
	RegionalID string `validate:"required,numeric,len=14"`
}

// PriceService exposes the two lookups the bot front end calls.
type PriceService struct {
	search     TitleSearcher
	idLookup   catalog.IDLookup
	resolver   IdentifierResolver
	aggregator PriceAggregator
	titles     TitleStore
	publisher  events.Publisher
	recorder   SearchRecorder
	validate   *validator.Validate
	logger     *slog.Logger
}

type Option func(*PriceService)

func WithIDLookup(l catalog.IDLookup) Option     { return func(s *PriceService) { s.idLookup = l } }
func WithTitleStore(t TitleStore) Option         { return func(s *PriceService) { s.titles = t } }
func WithPublisher(p events.Publisher) Option    { return func(s *PriceService) { s.publisher = p } }
func WithSearchRecorder(r SearchRecorder) Option { return func(s *PriceService) { s.recorder = r } }

func NewPriceService(search TitleSearcher, resolver IdentifierResolver, aggregator PriceAggregator, logger *slog.Logger, opts ...Option) *PriceService {
	s := &PriceService{
		search:     search,
		resolver:   resolver,
		aggregator: aggregator,
		publisher:  events.NoopPublisher{},
		validate:   validator.New(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchTitle matches query against the catalogs and prices the winner.
// The returned error is non-nil only for invalid input or when no catalog
// could be reached; the result then carries the error status.
func (s *PriceService) SearchTitle(ctx context.Context, query string) (*models.SearchResult, error) {
	query = matcher.SanitizeQuery(query)
	res, err := s.searchTitle(ctx, query)
	s.record(models.LookupByQuery, res)
	return res, err
}

func (s *PriceService) searchTitle(ctx context.Context, query string) (*models.SearchResult, error) {
	if err := s.validate.Struct(searchRequest{Query: query}); err != nil {
		err = errs.Mark(errs.Wrapf(err, "invalid query %q", query), errs.ErrInvalidInput)
		return models.Failed(query, err), err
	}

	ReportProgress(ctx, 10, "Searching catalogs...")
	outcome, err := s.search.Search(ctx, query)
	if err != nil {
		s.logger.Error("❌ Catalog search failed", "query", query, "error", err)
		return models.Failed(query, err), err
	}

	switch outcome.Class {
	case models.MatchClassNoResults:
		s.logger.Info("No catalog match", "query", query)
		return models.NoResults(query), nil
	case models.MatchClassAmbiguous:
		s.logger.Info("Ambiguous query", "query", query, "candidates", len(outcome.Candidates))
		return models.Ambiguous(query, outcome.Candidates), nil
	}

	best, _ := outcome.Best()
	if outcome.Fallback != "" {
		s.logger.Info("Matched through search fallback", "query", query, "fallback", outcome.Fallback)
	}
	title := models.NewMatchedTitle(best.Entry)
	title.Merge(best.AlsoListed)
	return s.price(ctx, query, title, true), nil
}

// SearchByRegionalID prices a title the caller already identified, e.g. by
// picking one of the candidates of an ambiguous result.
func (s *PriceService) SearchByRegionalID(ctx context.Context, regionalID string) (*models.SearchResult, error) {
	regionalID = strings.TrimSpace(matcher.SanitizeQuery(regionalID))
	res, err := s.searchByRegionalID(ctx, regionalID)
	s.record(models.LookupByRegionalID, res)
	return res, err
}

func (s *PriceService) searchByRegionalID(ctx context.Context, regionalID string) (*models.SearchResult, error) {
	if err := s.validate.Struct(idRequest{RegionalID: regionalID}); err != nil {
		err = errs.Mark(errs.Wrapf(err, "invalid regional id %q", regionalID), errs.ErrInvalidInput)
		return models.Failed(regionalID, err), err
	}

	ReportProgress(ctx, 10, "Looking up title...")
	title, known := s.titleForID(ctx, regionalID)
	return s.price(ctx, regionalID, title, known), nil
}

// titleForID finds the display title for an id: the id-lookup catalog
// first, then the title store. When neither knows it the id stands in for
// the title and identifier resolution is skipped.
func (s *PriceService) titleForID(ctx context.Context, id string) (*models.MatchedTitle, bool) {
	if s.idLookup != nil {
		entry, err := s.idLookup.LookupByID(ctx, id)
		switch {
		case err != nil:
			s.logger.Warn("Catalog id lookup failed", "id", id, "error", err)
		case entry != nil:
			return models.NewMatchedTitle(*entry), true
		}
	}

	if s.titles != nil {
		stored, err := s.titles.FindByID(ctx, id)
		if err == nil && stored != nil {
			// keep the requested id as the home id so pricing starts from it
			title := models.NewMatchedTitle(models.CatalogEntry{Title: stored.CanonicalTitle, RegionalID: id})
			title.Merge(stored.RegionalIDs)
			return title, true
		}
		if err != nil && !errs.Is(err, errs.ErrNotFound) {
			s.logger.Warn("Title store lookup failed", "id", id, "error", err)
		}
	}

	return models.NewMatchedTitle(models.CatalogEntry{Title: id, RegionalID: id}), false
}

func (s *PriceService) price(ctx context.Context, query string, title *models.MatchedTitle, resolve bool) *models.SearchResult {
	start := time.Now()

	if resolve {
		ReportProgress(ctx, 30, "Resolving regional identifiers...")
		title.Merge(s.resolver.Resolve(ctx, title.CanonicalTitle, title.RegionalIDs))
	}

	ReportProgress(ctx, 50, "Collecting regional prices...")
	set := s.aggregator.Aggregate(ctx, title)
	ReportProgress(ctx, 95, "Preparing results...")

	fresh := set != nil && !set.GeneratedAt.Before(start)
	s.persist(ctx, title, set, fresh)

	res := models.Priced(query, title, set)
	if cheapest, ok := set.Cheapest(); ok {
		s.logger.Info("✅ Title priced",
			"title", title.CanonicalTitle,
			"regions", len(set.Quotes),
			"cheapest", cheapest.RegionCode,
			"price", cheapest.NormalizedPrice.StringFixed(2),
			"currency", set.Currency)
	} else {
		s.logger.Info("Title matched but no region sells it", "title", title.CanonicalTitle)
	}
	return res
}

func (s *PriceService) persist(ctx context.Context, title *models.MatchedTitle, set *models.PriceQuoteSet, fresh bool) {
	if s.titles != nil {
		if err := s.titles.RecordLookup(ctx, title); err != nil {
			s.logger.Warn("Failed to record lookup", "title", title.CanonicalTitle, "error", err)
		}
	}
	if fresh && !set.IsEmpty() {
		if err := s.publisher.PublishPriceSet(ctx, events.ReasonSearch, set); err != nil {
			s.logger.Warn("Failed to publish price set", "title", title.CanonicalTitle, "error", err)
		}
	}
}

// MatchTitle returns the single catalog match for name with its regional
// identifiers resolved, or nil when the name is unmatched or ambiguous.
func (s *PriceService) MatchTitle(ctx context.Context, name string) (*models.MatchedTitle, error) {
	outcome, err := s.search.Search(ctx, matcher.SanitizeQuery(name))
	if err != nil {
		return nil, err
	}
	best, ok := outcome.Best()
	if outcome.Class != models.MatchClassSingle || !ok {
		return nil, nil
	}
	title := models.NewMatchedTitle(best.Entry)
	title.Merge(best.AlsoListed)
	title.Merge(s.resolver.Resolve(ctx, title.CanonicalTitle, title.RegionalIDs))
	return title, nil
}

// Refresh re-aggregates title bypassing the price cache. Used by the
// scheduler to keep popular titles warm.
func (s *PriceService) Refresh(ctx context.Context, title *models.MatchedTitle) *models.PriceQuoteSet {
	s.aggregator.Invalidate(ctx, title.HomeID())
	set := s.aggregator.Aggregate(ctx, title)
	if !set.IsEmpty() {
		if err := s.publisher.PublishPriceSet(ctx, events.ReasonRefresh, set); err != nil {
			s.logger.Warn("Failed to publish price set", "title", title.CanonicalTitle, "error", err)
		}
	}
	return set
}

func (s *PriceService) record(kind models.LookupKind, res *models.SearchResult) {
	if s.recorder != nil && res != nil {
		s.recorder.Search(kind, res.Status)
	}
}
