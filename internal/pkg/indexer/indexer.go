package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/app/repository"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

// SearchIndex is the slice of the search index client the indexer needs.
type SearchIndex interface {
	EnsureIndex(ctx context.Context, index, mapping string) error
	IndexDocument(ctx context.Context, index, id string, doc interface{}, refresh bool) error
	UpdateDocument(ctx context.Context, index, id string, partial interface{}) error
	DeleteDocument(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*searchindex.SearchResult, error)
	MappingFields(ctx context.Context, index string) (map[string]bool, error)
}

// AdminAPI is the slice of the Shopify client the indexer needs.
type AdminAPI interface {
	FetchProduct(ctx context.Context, shop, token, gid string) (*shopify.Product, error)
	FetchProductsPage(ctx context.Context, shop, token, cursor string, limit int) (*shopify.ProductPage, error)
	FetchCollectionProductGIDs(ctx context.Context, shop, token, collectionGID string) ([]string, error)
}

// Locker guards bulk reindex runs per shop.
type Locker interface {
	Acquire(ctx context.Context, shop string) (bool, error)
	Release(ctx context.Context, shop string) error
}

// ErrNoUsableID means an event carried no product identifier in any of
// the accepted forms; the event can never succeed.
var ErrNoUsableID = errors.New("no usable product identifier on event")

// ErrShopNotFound means the tenant has no stored credentials.
var ErrShopNotFound = errors.New("shop not installed or missing credentials")

// Indexer writes normalized product documents into the per-tenant search
// index, driven by webhook events and by bulk reindex runs.
type Indexer struct {
	index       SearchIndex
	admin       AdminAPI
	shops       repository.ShopRepository
	checkpoints repository.CheckpointRepository
	locks       Locker

	mu            sync.Mutex
	mappingFields map[string]map[string]bool
}

// New creates an indexer with all collaborators injected.
func New(index SearchIndex, admin AdminAPI, shops repository.ShopRepository, checkpoints repository.CheckpointRepository, locks Locker) *Indexer {
	return &Indexer{
		index:         index,
		admin:         admin,
		shops:         shops,
		checkpoints:   checkpoints,
		locks:         locks,
		mappingFields: make(map[string]map[string]bool),
	}
}

// shopCredentials resolves the tenant to its Admin API token.
func (ix *Indexer) shopCredentials(shop string) (*models.Shop, error) {
	record, err := ix.shops.GetByDomain(shop)
	if err != nil {
		return nil, fmt.Errorf("failed to look up shop %s: %w", shop, err)
	}
	if record == nil || record.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s", ErrShopNotFound, shop)
	}
	return record, nil
}

// allowedFields returns the index's mapping fields, cached per index and
// falling back to the built-in mapping when the live fetch fails.
func (ix *Indexer) allowedFields(ctx context.Context, index string) map[string]bool {
	ix.mu.Lock()
	if cached, ok := ix.mappingFields[index]; ok {
		ix.mu.Unlock()
		return cached
	}
	ix.mu.Unlock()

	fields, err := ix.index.MappingFields(ctx, index)
	if err != nil || len(fields) == 0 {
		if err != nil {
			log.Warnf("[Indexer] Could not fetch mapping for %s, using static mapping: %v", index, err)
		}
		fields, err = searchindex.StaticMappingFields(searchindex.ProductMapping)
		if err != nil {
			// The static mapping is a compile-time constant; this cannot
			// happen outside a broken build, but fail open rather than drop
			// the whole document.
			return nil
		}
	}

	ix.mu.Lock()
	ix.mappingFields[index] = fields
	ix.mu.Unlock()
	return fields
}

// resolveProductGID picks the canonical identifier for the event:
// the event's GID, a GID synthesized from the numeric id, or identifiers
// embedded in the raw payload, in that order.
func resolveProductGID(event *models.WebhookEvent) (string, error) {
	if event.ProductGID != "" {
		return event.ProductGID, nil
	}
	if event.ProductID != 0 {
		return shopify.ProductGID(event.ProductID), nil
	}
	if event.PayloadJSON != "" {
		var payload struct {
			AdminGraphqlAPIID string `json:"admin_graphql_api_id"`
			ID                int64  `json:"id"`
		}
		if err := json.Unmarshal([]byte(event.PayloadJSON), &payload); err == nil {
			if payload.AdminGraphqlAPIID != "" {
				return payload.AdminGraphqlAPIID, nil
			}
			if payload.ID != 0 {
				return shopify.ProductGID(payload.ID), nil
			}
		}
	}
	return "", ErrNoUsableID
}

// upsertProduct runs the shared fetch -> transform -> filter -> index
// path for one product GID.
func (ix *Indexer) upsertProduct(ctx context.Context, shop *models.Shop, gid string, refresh bool) error {
	index := searchindex.ProductIndexName(shop.Domain)
	if err := ix.index.EnsureIndex(ctx, index, searchindex.ProductMapping); err != nil {
		return fmt.Errorf("failed to ensure index %s: %w", index, err)
	}

	product, err := ix.admin.FetchProduct(ctx, shop.Domain, shop.AccessToken, gid)
	if err != nil {
		return fmt.Errorf("failed to fetch product %s: %w", gid, err)
	}

	doc := Transform(shop.Domain, product)
	filtered, err := FilterToMapping(doc, ix.allowedFields(ctx, index))
	if err != nil {
		return fmt.Errorf("failed to filter document %s: %w", gid, err)
	}

	if err := ix.index.IndexDocument(ctx, index, DocID(doc.ID), filtered, refresh); err != nil {
		return fmt.Errorf("failed to index product %s: %w", gid, err)
	}
	return nil
}
