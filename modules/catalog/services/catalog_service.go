package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/cache"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/eventbus"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/schema"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

// lookupTimeout bounds a database read shared by concurrent lookups.
const lookupTimeout = 10 * time.Second

// CatalogService owns the master catalog of per-organization connection
// descriptors. A descriptor is only written after its database has been
// brought to the current schema.
type CatalogService struct {
	repo        descriptor.Repository
	cache       cache.Cache
	provisioner schema.Ensurer
	memo        *schema.Memo
	publisher   eventbus.EventBus
	inTx        func(ctx context.Context, fn func(context.Context) error) error

	group singleflight.Group

	genMu       sync.Mutex
	generations map[string]uint64
}

func NewCatalogService(
	repository descriptor.Repository,
	c cache.Cache,
	provisioner schema.Ensurer,
	memo *schema.Memo,
	publisher eventbus.EventBus,
) *CatalogService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CatalogService{
		repo:        repository,
		cache:       c,
		provisioner: provisioner,
		memo:        memo,
		publisher:   publisher,
		inTx:        composables.InTx,
		generations: make(map[string]uint64),
	}
}

// Get returns the organization's descriptor, serving from cache when possible.
func (s *CatalogService) Get(ctx context.Context, organization string) (*descriptor.Descriptor, error) {
	m := getMetrics()
	organization = strings.TrimSpace(organization)
	if organization == "" {
		return nil, serrors.ErrDescriptorNotFound
	}
	logger := composables.UseLogger(ctx).WithField("organization", organization)

	d, ok, err := s.cache.Get(ctx, organization)
	if err != nil {
		logger.WithError(err).Warn("descriptor cache read failed")
	}
	if ok {
		m.lookups.WithLabelValues("cache", "hit").Inc()
		return d, nil
	}

	gen := s.generation(organization)
	v, err := repo.SharedCall(ctx, &s.group, organization, lookupTimeout, func(ctx context.Context) (any, error) {
		d, err := s.repo.GetByOrganization(ctx, organization)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, gen, d)
		return d, nil
	})
	if err != nil {
		result := "error"
		if errors.Is(err, serrors.ErrDescriptorNotFound) {
			result = "not_found"
		}
		m.lookups.WithLabelValues("database", result).Inc()
		return nil, err
	}
	m.lookups.WithLabelValues("database", "hit").Inc()
	return v.(*descriptor.Descriptor).Clone(), nil
}

func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*descriptor.Descriptor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, params *descriptor.FindParams) ([]*descriptor.Descriptor, int64, error) {
	if params == nil {
		params = &descriptor.FindParams{}
	}
	items, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, count, nil
}

// Create registers a new organization. Its database is provisioned before the
// descriptor is written; the unique organization constraint settles races.
func (s *CatalogService) Create(ctx context.Context, dto *descriptor.CreateDTO) (created *descriptor.Descriptor, err error) {
	defer func() {
		getMetrics().writes.WithLabelValues("create", writeResult(err)).Inc()
	}()
	if err := dto.Ok(); err != nil {
		return nil, err
	}
	d := dto.ToEntity()
	logger := composables.UseLogger(ctx).WithField("organization", d.Organization)

	if _, err := s.repo.GetByOrganization(ctx, d.Organization); err == nil {
		return nil, serrors.ErrDescriptorConflict
	} else if !errors.Is(err, serrors.ErrDescriptorNotFound) {
		return nil, err
	}

	if err := s.provision(ctx, d); err != nil {
		return nil, err
	}

	if err := s.inTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.Create(txCtx, d)
		return err
	}); err != nil {
		return nil, err
	}

	logger.Info("data config created")
	if s.publisher != nil {
		s.publisher.Publish(descriptor.NewCreatedEvent(created))
	}
	return created, nil
}

// Edit applies a partial update. The merged descriptor's database is
// provisioned first, so requests never route to an unprovisioned database.
func (s *CatalogService) Edit(ctx context.Context, organization string, dto *descriptor.UpdateDTO) (updated *descriptor.Descriptor, err error) {
	defer func() {
		getMetrics().writes.WithLabelValues("edit", writeResult(err)).Inc()
	}()
	if err := dto.Ok(); err != nil {
		return nil, err
	}
	organization = strings.TrimSpace(organization)
	current, err := s.repo.GetByOrganization(ctx, organization)
	if err != nil {
		return nil, err
	}
	if dto.IsEmpty() {
		return current, nil
	}
	merged := dto.Apply(current)
	logger := composables.UseLogger(ctx).WithField("organization", organization)

	if err := s.provision(ctx, merged); err != nil {
		return nil, err
	}

	if err := s.inTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.repo.Update(txCtx, merged, current.UpdatedAt)
		return err
	}); err != nil {
		return nil, err
	}

	s.bump(organization)
	if err := s.cache.Invalidate(ctx, organization); err != nil {
		logger.WithError(err).Error("descriptor cache invalidation failed")
	}

	event := descriptor.NewUpdatedEvent(current, updated)
	logger.WithField("connection_changed", event.ConnectionChanged()).Info("data config updated")
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return updated, nil
}

func (s *CatalogService) provision(ctx context.Context, d *descriptor.Descriptor) error {
	report, err := s.provisioner.EnsureMigrated(ctx, d)
	if err != nil {
		return err
	}
	if s.memo != nil {
		s.memo.Remember(d)
	}
	if report != nil && !report.Noop() {
		composables.UseLogger(ctx).WithField("organization", d.Organization).
			Infof("applied %d migration(s), now at version %d", len(report.Applied), report.Current)
	}
	return nil
}

func (s *CatalogService) generation(organization string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[organization]
}

func (s *CatalogService) bump(organization string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[organization]++
}

// fill caches d unless an edit completed since gen was read.
func (s *CatalogService) fill(ctx context.Context, gen uint64, d *descriptor.Descriptor) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[d.Organization] != gen {
		return
	}
	if err := s.cache.Set(ctx, d); err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("descriptor cache write failed")
	}
}
