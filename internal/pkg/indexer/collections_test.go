package indexer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

func membersResult(ids ...int64) *searchindex.SearchResult {
	res := &searchindex.SearchResult{Total: int64(len(ids))}
	for _, id := range ids {
		src, _ := json.Marshal(map[string]interface{}{"id": id})
		res.Hits = append(res.Hits, searchindex.Hit{ID: DocID(id), Source: src})
	}
	return res
}

func TestHandleCollectionUpdate_BestSellerRanks(t *testing.T) {
	index := newFakeIndex()
	admin := &fakeAdmin{order: []string{
		"gid://shopify/Product/3",
		"gid://shopify/Product/1",
		"gid://shopify/Product/2",
	}}
	ix := newTestIndexer(index, admin)

	event := &models.WebhookEvent{
		Shop:                   testShop,
		EventType:              models.EventCollectionUpdate,
		CollectionID:           9,
		IsBestSellerCollection: true,
	}
	require.NoError(t, ix.HandleCollectionUpdate(context.Background(), event))

	indexName := searchindex.ProductIndexName(testShop)
	for i, id := range []string{"3", "1", "2"} {
		updates := index.updates[key(indexName, id)]
		require.Len(t, updates, 1)
		partial := updates[0].(map[string]interface{})
		assert.Equal(t, i+1, partial["best_seller_rank"])
	}
}

func TestHandleCollectionUpdate_RefreshesMembers(t *testing.T) {
	index := newFakeIndex()
	index.searchResult = membersResult(1, 2)
	admin := &fakeAdmin{products: map[string]*shopify.Product{
		"gid://shopify/Product/1": testProduct(1, "Still Here", "5.00"),
		"gid://shopify/Product/2": testProduct(2, "Also Here", "6.00"),
	}}
	ix := newTestIndexer(index, admin)

	event := &models.WebhookEvent{
		Shop:         testShop,
		EventType:    models.EventCollectionUpdate,
		CollectionID: 9,
	}
	require.NoError(t, ix.HandleCollectionUpdate(context.Background(), event))

	indexName := searchindex.ProductIndexName(testShop)
	assert.NotNil(t, index.doc(indexName, "1"))
	assert.NotNil(t, index.doc(indexName, "2"))
}

func TestHandleCollectionDelete_DropsVanishedProducts(t *testing.T) {
	index := newFakeIndex()
	index.searchResult = membersResult(1, 2)
	// Product 2 no longer exists upstream.
	admin := &fakeAdmin{products: map[string]*shopify.Product{
		"gid://shopify/Product/1": testProduct(1, "Survivor", "5.00"),
	}}
	ix := newTestIndexer(index, admin)

	event := &models.WebhookEvent{
		Shop:          testShop,
		EventType:     models.EventCollectionDelete,
		CollectionGID: "gid://shopify/Collection/9",
	}
	require.NoError(t, ix.HandleCollectionDelete(context.Background(), event))

	indexName := searchindex.ProductIndexName(testShop)
	assert.NotNil(t, index.doc(indexName, "1"))
	assert.Equal(t, []string{key(indexName, "2")}, index.deleted)
}

func TestHandleCollectionDelete_NoUsableID(t *testing.T) {
	ix := newTestIndexer(newFakeIndex(), &fakeAdmin{})

	event := &models.WebhookEvent{Shop: testShop, EventType: models.EventCollectionDelete}
	assert.ErrorIs(t, ix.HandleCollectionDelete(context.Background(), event), ErrNoUsableID)
}

func TestResolveCollectionGID(t *testing.T) {
	gid, err := resolveCollectionGID(&models.WebhookEvent{CollectionGID: "gid://shopify/Collection/5"})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Collection/5", gid)

	gid, err = resolveCollectionGID(&models.WebhookEvent{CollectionID: 6})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Collection/6", gid)

	gid, err = resolveCollectionGID(&models.WebhookEvent{PayloadJSON: `{"admin_graphql_api_id":"gid://shopify/Collection/7"}`})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Collection/7", gid)

	_, err = resolveCollectionGID(&models.WebhookEvent{})
	assert.ErrorIs(t, err, ErrNoUsableID)
}
