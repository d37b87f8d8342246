package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

// fakeIndex records documents per index in memory.
type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]map[string]interface{} // "index/id" -> doc
	updates map[string][]interface{}
	ensured map[string]bool

	searchResult *searchindex.SearchResult
	searchErr    error
	indexErr     error
	deleteErr    error
	deleted      []string
	refreshed    map[string]bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		docs:      map[string]map[string]interface{}{},
		updates:   map[string][]interface{}{},
		ensured:   map[string]bool{},
		refreshed: map[string]bool{},
	}
}

func key(index, id string) string { return index + "/" + id }

func (f *fakeIndex) EnsureIndex(ctx context.Context, index, mapping string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured[index] = true
	return nil
}

func (f *fakeIndex) IndexDocument(ctx context.Context, index, id string, doc interface{}, refresh bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexErr != nil {
		return f.indexErr
	}
	asMap, _ := doc.(map[string]interface{})
	f.docs[key(index, id)] = asMap
	f.refreshed[key(index, id)] = refresh
	return nil
}

func (f *fakeIndex) UpdateDocument(ctx context.Context, index, id string, partial interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[key(index, id)] = append(f.updates[key(index, id)], partial)
	return nil
}

func (f *fakeIndex) DeleteDocument(ctx context.Context, index, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	// Deleting an absent document succeeds, matching the real client.
	delete(f.docs, key(index, id))
	f.deleted = append(f.deleted, key(index, id))
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, index string, query map[string]interface{}) (*searchindex.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchResult != nil {
		return f.searchResult, nil
	}
	return &searchindex.SearchResult{}, nil
}

func (f *fakeIndex) MappingFields(ctx context.Context, index string) (map[string]bool, error) {
	return nil, errors.New("mapping fetch not available")
}

func (f *fakeIndex) doc(index, id string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[key(index, id)]
}

// fakeAdmin serves canned products.
type fakeAdmin struct {
	products map[string]*shopify.Product // gid -> product
	pages    []*shopify.ProductPage
	pageErr  error
	order    []string // collection product gids

	fetched []string
	pageIdx int
}

func (f *fakeAdmin) FetchProduct(ctx context.Context, shop, token, gid string) (*shopify.Product, error) {
	f.fetched = append(f.fetched, gid)
	p, ok := f.products[gid]
	if !ok {
		return nil, shopify.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeAdmin) FetchProductsPage(ctx context.Context, shop, token, cursor string, limit int) (*shopify.ProductPage, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	if f.pageIdx >= len(f.pages) {
		return &shopify.ProductPage{}, nil
	}
	page := f.pages[f.pageIdx]
	f.pageIdx++
	return page, nil
}

func (f *fakeAdmin) FetchCollectionProductGIDs(ctx context.Context, shop, token, collectionGID string) ([]string, error) {
	return f.order, nil
}

// fakeShops resolves a single installed tenant.
type fakeShops struct {
	shop *models.Shop
	err  error
}

func (f *fakeShops) GetByDomain(domain string) (*models.Shop, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.shop == nil || f.shop.Domain != domain {
		return nil, nil
	}
	cp := *f.shop
	return &cp, nil
}

func (f *fakeShops) ListActive() ([]models.Shop, error) {
	if f.shop == nil {
		return nil, nil
	}
	return []models.Shop{*f.shop}, nil
}

func (f *fakeShops) Create(shop *models.Shop) error      { return nil }
func (f *fakeShops) Update(shop *models.Shop) error      { return nil }
func (f *fakeShops) MarkUninstalled(domain string) error { return nil }

// fakeCheckpoints keeps one checkpoint per shop.
type fakeCheckpoints struct {
	mu  sync.Mutex
	cps map[string]*models.IndexCheckpoint
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{cps: map[string]*models.IndexCheckpoint{}}
}

func (f *fakeCheckpoints) GetByShop(shop string) (*models.IndexCheckpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.cps[shop]
	if !ok {
		return nil, nil
	}
	out := *cp
	return &out, nil
}

func (f *fakeCheckpoints) Upsert(cp *models.IndexCheckpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *cp
	f.cps[cp.Shop] = &out
	return nil
}

func (f *fakeCheckpoints) DeleteByShop(shop string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cps, shop)
	return nil
}

// fakeLock grants or denies the reindex lock.
type fakeLock struct {
	denied   bool
	held     bool
	released bool
}

func (f *fakeLock) Acquire(ctx context.Context, shop string) (bool, error) {
	if f.denied {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context, shop string) error {
	f.held = false
	f.released = true
	return nil
}

func testProduct(id int64, title string, prices ...string) *shopify.Product {
	p := &shopify.Product{
		ID:       shopify.ProductGID(id),
		LegacyID: id,
		Title:    title,
		Handle:   fmt.Sprintf("handle-%d", id),
		Status:   "ACTIVE",
	}
	for i, price := range prices {
		p.Variants.Edges = append(p.Variants.Edges, struct {
			Node shopify.Variant `json:"node"`
		}{Node: shopify.Variant{
			ID:               fmt.Sprintf("gid://shopify/ProductVariant/%d%d", id, i),
			Price:            price,
			AvailableForSale: true,
		}})
	}
	return p
}
