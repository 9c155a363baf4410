package schema

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/repo"
)

// ensureTimeout bounds one provisioning run shared by concurrent callers.
const ensureTimeout = 5 * time.Minute

type Ensurer interface {
	EnsureMigrated(ctx context.Context, d *descriptor.Descriptor) (*Report, error)
}

// Memo remembers which descriptor versions this process already brought up to
// date, so first-use provisioning costs one run per fingerprint.
type Memo struct {
	ensurer Ensurer
	group   singleflight.Group

	mu   sync.RWMutex
	done map[string]struct{}
}

func NewMemo(ensurer Ensurer) *Memo {
	return &Memo{ensurer: ensurer, done: make(map[string]struct{})}
}

func (m *Memo) Ensure(ctx context.Context, d *descriptor.Descriptor) error {
	key := d.Fingerprint()
	if m.Known(d) {
		return nil
	}
	_, err := repo.SharedCall(ctx, &m.group, key, ensureTimeout, func(ctx context.Context) (any, error) {
		if m.Known(d) {
			return nil, nil
		}
		if _, err := m.ensurer.EnsureMigrated(ctx, d); err != nil {
			return nil, err
		}
		m.Remember(d)
		return nil, nil
	})
	return err
}

func (m *Memo) Known(d *descriptor.Descriptor) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.done[d.Fingerprint()]
	return ok
}

func (m *Memo) Remember(d *descriptor.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[d.Fingerprint()] = struct{}{}
}
