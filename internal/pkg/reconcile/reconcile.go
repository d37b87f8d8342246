package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shafiq-apps/afs-staging-sub006/app/repository"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

const pageSize = 200

// Result summarizes one shop's reconciliation sweep. Not persisted;
// returned to the caller and logged.
type Result struct {
	Shop            string   `json:"shop"`
	ProductsChecked int      `json:"products_checked"`
	ProductsMissing int      `json:"products_missing"`
	ProductsDeleted int      `json:"products_deleted"`
	Errors          []string `json:"errors,omitempty"`
}

// SearchIndex is the slice of the index client reconciliation needs.
type SearchIndex interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	Search(ctx context.Context, index string, query map[string]interface{}) (*searchindex.SearchResult, error)
	DeleteDocument(ctx context.Context, index, id string) error
}

// AdminAPI checks which product ids still exist upstream.
type AdminAPI interface {
	NodesExist(ctx context.Context, shop, token string, gids []string) (map[string]bool, error)
}

// Service removes index documents whose products no longer exist in the
// source system. It deliberately never re-adds missing products; that is
// the bulk reindex's job, triggered explicitly.
type Service struct {
	index SearchIndex
	admin AdminAPI
	shops repository.ShopRepository
}

// NewService creates a reconciliation service.
func NewService(index SearchIndex, admin AdminAPI, shops repository.ShopRepository) *Service {
	return &Service{index: index, admin: admin, shops: shops}
}

// ReconcileShop sweeps one shop's product index, deleting orphaned
// documents. Per-page and per-document failures are recorded in the
// result and the sweep continues.
func (s *Service) ReconcileShop(ctx context.Context, shopDomain string) (*Result, error) {
	result := &Result{Shop: shopDomain}

	shop, err := s.shops.GetByDomain(shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to look up shop %s: %w", shopDomain, err)
	}
	if shop == nil || shop.AccessToken == "" {
		return nil, fmt.Errorf("shop %s is not installed", shopDomain)
	}

	index := searchindex.ProductIndexName(shopDomain)
	exists, err := s.index.IndexExists(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("failed to check index %s: %w", index, err)
	}
	if !exists {
		return result, nil
	}

	var searchAfter []interface{}
	for {
		query := map[string]interface{}{
			"size":    pageSize,
			"_source": []string{"id", "gid"},
			"sort":    []map[string]string{{"id": "asc"}},
			"query":   map[string]interface{}{"match_all": map[string]interface{}{}},
		}
		if searchAfter != nil {
			query["search_after"] = searchAfter
		}

		page, err := s.index.Search(ctx, index, query)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("search: %v", err))
			break
		}
		if len(page.Hits) == 0 {
			break
		}

		ids := make([]int64, 0, len(page.Hits))
		gids := make([]string, 0, len(page.Hits))
		for _, hit := range page.Hits {
			var src struct {
				ID  int64  `json:"id"`
				GID string `json:"gid"`
			}
			if err := json.Unmarshal(hit.Source, &src); err != nil || src.ID == 0 {
				continue
			}
			gid := src.GID
			if gid == "" {
				gid = shopify.ProductGID(src.ID)
			}
			ids = append(ids, src.ID)
			gids = append(gids, gid)
		}
		result.ProductsChecked += len(ids)

		existing, err := s.admin.NodesExist(ctx, shopDomain, shop.AccessToken, gids)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("source check: %v", err))
			// Without the source answer this page cannot be judged; move on
			// to the next page rather than deleting blind.
		} else {
			for i, gid := range gids {
				if existing[gid] {
					continue
				}
				result.ProductsMissing++
				docID := fmt.Sprintf("%d", ids[i])
				if err := s.index.DeleteDocument(ctx, index, docID); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", docID, err))
					continue
				}
				result.ProductsDeleted++
			}
		}

		if len(page.Hits) < pageSize {
			break
		}
		searchAfter = page.Hits[len(page.Hits)-1].Sort
		if searchAfter == nil {
			break
		}
	}

	log.Infof("[Reconcile] %s: checked=%d missing=%d deleted=%d errors=%d",
		shopDomain, result.ProductsChecked, result.ProductsMissing, result.ProductsDeleted, len(result.Errors))
	return result, nil
}

// ReconcileAll sweeps every active shop sequentially, bounding load on
// the source system and the index. Per-shop failures are converted into
// a Result carrying the error; the iteration continues.
func (s *Service) ReconcileAll(ctx context.Context) ([]Result, error) {
	shops, err := s.shops.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}

	results := make([]Result, 0, len(shops))
	for _, shop := range shops {
		res, err := s.ReconcileShop(ctx, shop.Domain)
		if err != nil {
			log.Errorf("[Reconcile] Shop %s failed: %v", shop.Domain, err)
			results = append(results, Result{Shop: shop.Domain, Errors: []string{err.Error()}})
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}
