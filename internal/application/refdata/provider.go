// Package refdata loads the lookup data the wizard needs (departments,
// users, catalog, suppliers) once per flow and reuses it across steps.
// The provider is passed explicitly to the components that need it.
package refdata

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/infrastructure/cache"
)

const cacheKey = "reference-data"

// ReferenceData bundles every lookup list the wizard renders.
type ReferenceData struct {
	Departments  []gateway.Department      `json:"departments"`
	Users        []gateway.User            `json:"users"`
	CatalogItems []gateway.CatalogItem     `json:"catalog_items"`
	Suppliers    []gateway.Supplier        `json:"suppliers"`
	PaymentTerms []draft.PaymentTermOption `json:"payment_terms"`
}

// Provider fetches reference data through the gateway with a cache in
// front. Concurrent cache misses share one upstream fetch.
type Provider struct {
	gw     *gateway.Client
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewProvider creates a reference-data provider.
func NewProvider(gw *gateway.Client, store cache.Store, ttl time.Duration, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{gw: gw, store: store, ttl: ttl, logger: logger}
}

// Load returns the reference data, from cache when fresh.
func (p *Provider) Load(ctx context.Context, token string) (ReferenceData, error) {
	if data, ok := p.fromCache(ctx); ok {
		return data, nil
	}

	v, err, _ := p.group.Do(cacheKey, func() (any, error) {
		// Re-check: another flight may have filled the cache while this
		// call waited on the group.
		if data, ok := p.fromCache(ctx); ok {
			return data, nil
		}
		return p.fetch(ctx, token)
	})
	if err != nil {
		return ReferenceData{}, err
	}
	return v.(ReferenceData), nil
}

// Invalidate drops the cached reference data.
func (p *Provider) Invalidate(ctx context.Context) error {
	return p.store.Delete(ctx, cacheKey)
}

func (p *Provider) fromCache(ctx context.Context) (ReferenceData, bool) {
	raw, ok, err := p.store.Get(ctx, cacheKey)
	if err != nil {
		p.logger.Warn("reference-data cache read failed", zap.Error(err))
		return ReferenceData{}, false
	}
	if !ok {
		return ReferenceData{}, false
	}
	var data ReferenceData
	if err := json.Unmarshal(raw, &data); err != nil {
		p.logger.Warn("reference-data cache entry corrupt", zap.Error(err))
		return ReferenceData{}, false
	}
	return data, true
}

func (p *Provider) fetch(ctx context.Context, token string) (ReferenceData, error) {
	departments, err := p.gw.Departments(ctx, token)
	if err != nil {
		return ReferenceData{}, err
	}
	users, err := p.gw.Users(ctx, token)
	if err != nil {
		return ReferenceData{}, err
	}
	items, err := p.gw.CatalogItems(ctx, token)
	if err != nil {
		return ReferenceData{}, err
	}
	suppliers, err := p.gw.Suppliers(ctx, token)
	if err != nil {
		return ReferenceData{}, err
	}

	data := ReferenceData{
		Departments:  departments,
		Users:        users,
		CatalogItems: items,
		Suppliers:    suppliers,
		PaymentTerms: draft.PaymentTermOptions(),
	}

	raw, err := json.Marshal(data)
	if err == nil {
		if err := p.store.Set(ctx, cacheKey, raw, p.ttl); err != nil {
			p.logger.Warn("reference-data cache write failed", zap.Error(err))
		}
	}
	return data, nil
}
