// Package catalog serves the service catalog: the service tree, the
// questions asked per catalog position and the priced service items.
package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/store"
)

const (
	treeKey    = "services"
	DefaultTTL = 15 * time.Minute
)

// Option configures a Service.
type Option func(*Service)

// WithCacheHook observes tree cache lookups.
func WithCacheHook(fn func(hit bool)) Option {
	return func(s *Service) { s.onCache = fn }
}

// Service reads the catalog through a CatalogStore.
type Service struct {
	store   store.CatalogStore
	cache   *cache.Cache
	onCache func(hit bool)

	mu   sync.RWMutex
	last []model.Service // served when a refresh fails
}

// New returns a Service caching the service tree for ttl.
func New(st store.CatalogStore, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		store: st,
		cache: cache.New(ttl, 2*ttl),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAllServices returns every service with its sub-services and
// specialties. The tree is cached; when the store fails the last good tree
// (or an empty slice) is returned.
func (s *Service) GetAllServices(ctx context.Context) []model.Service {
	if v, ok := s.cache.Get(treeKey); ok {
		s.observe(true)
		return cloneTree(v.([]model.Service))
	}
	s.observe(false)

	tree, err := s.fetchTree(ctx)
	if err != nil {
		zap.L().Error("catalog: fetch services", zap.Error(err))
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.last != nil {
			return cloneTree(s.last)
		}
		return []model.Service{}
	}

	if len(tree) == 0 {
		zap.L().Info("catalog: no services found")
		return []model.Service{}
	}

	s.cache.SetDefault(treeKey, tree)
	s.mu.Lock()
	s.last = tree
	s.mu.Unlock()

	zap.L().Debug("catalog: services cached", zap.Int("services", len(tree)))
	return cloneTree(tree)
}

// cloneTree copies the tree down to the specialty slices so callers can
// edit what they get without touching the cached copy.
func cloneTree(tree []model.Service) []model.Service {
	out := slices.Clone(tree)
	for i := range out {
		out[i].SubServices = slices.Clone(out[i].SubServices)
		for j := range out[i].SubServices {
			out[i].SubServices[j].Specialties = slices.Clone(out[i].SubServices[j].Specialties)
		}
	}
	return out
}

// ClearCache drops the cached tree so the next call hits the store.
func (s *Service) ClearCache() {
	s.cache.Delete(treeKey)
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
	zap.L().Info("catalog: cache cleared")
}

func (s *Service) fetchTree(ctx context.Context) ([]model.Service, error) {
	var (
		services    []model.Service
		subServices []model.SubService
		specialties []model.Specialty
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		services, err = s.store.ListServices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		subServices, err = s.store.ListSubServices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		specialties, err = s.store.ListSpecialties(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "catalog: fetch tree")
	}

	return buildTree(services, subServices, specialties), nil
}

// buildTree nests specialties under sub-services and sub-services under
// services, keeping the input order at every level.
func buildTree(services []model.Service, subServices []model.SubService, specialties []model.Specialty) []model.Service {
	specsBySub := make(map[string][]model.Specialty)
	for _, sp := range specialties {
		specsBySub[sp.SubServiceID] = append(specsBySub[sp.SubServiceID], sp)
	}

	subsByService := make(map[string][]model.SubService)
	for _, ss := range subServices {
		ss.Specialties = specsBySub[ss.ID]
		if ss.Specialties == nil {
			ss.Specialties = []model.Specialty{}
		}
		subsByService[ss.ServiceID] = append(subsByService[ss.ServiceID], ss)
	}

	out := make([]model.Service, 0, len(services))
	for _, svc := range services {
		svc.SubServices = subsByService[svc.ID]
		if svc.SubServices == nil {
			svc.SubServices = []model.SubService{}
		}
		out = append(out, svc)
	}
	return out
}

// GetQuestions returns the questions for the scope with their options
// attached. The service id wins over sub-service, which wins over specialty.
// Errors are logged and yield an empty slice.
func (s *Service) GetQuestions(ctx context.Context, scope model.CatalogScope) []model.Question {
	level, id := scope.Lookup()
	if level == model.LevelNone {
		return []model.Question{}
	}

	questions, err := s.store.ListQuestions(ctx, level, id)
	if err != nil {
		zap.L().Error("catalog: fetch questions", zap.Stringer("level", level), zap.String("id", id), zap.Error(err))
		return []model.Question{}
	}
	if len(questions) == 0 {
		return []model.Question{}
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	options, err := s.store.ListQuestionOptions(ctx, ids)
	if err != nil {
		zap.L().Error("catalog: fetch question options", zap.Int("questions", len(ids)), zap.Error(err))
		return []model.Question{}
	}

	byQuestion := make(map[string][]model.QuestionOption, len(questions))
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
		if questions[i].Options == nil {
			questions[i].Options = []model.QuestionOption{}
		}
	}
	return questions
}

// GetServiceItems returns the items for the scope, with the same precedence
// as GetQuestions.
func (s *Service) GetServiceItems(ctx context.Context, scope model.CatalogScope) []model.ServiceItem {
	level, id := scope.Lookup()
	if level == model.LevelNone {
		return []model.ServiceItem{}
	}

	items, err := s.store.ListServiceItems(ctx, level, id)
	if err != nil {
		zap.L().Error("catalog: fetch service items", zap.Stringer("level", level), zap.String("id", id), zap.Error(err))
		return []model.ServiceItem{}
	}
	for _, it := range items {
		if !it.Type.Valid() {
			zap.L().Warn("catalog: unknown item type", zap.String("item_id", it.ID), zap.String("type", string(it.Type)))
		}
	}
	if items == nil {
		return []model.ServiceItem{}
	}
	return items
}

func (s *Service) observe(hit bool) {
	if s.onCache != nil {
		s.onCache(hit)
	}
}
