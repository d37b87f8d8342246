package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafiq-apps/afs-staging-sub006/app/models"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/searchindex"
	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

const testShop = "demo.myshopify.com"

func newTestIndexer(index *fakeIndex, admin *fakeAdmin) *Indexer {
	shops := &fakeShops{shop: &models.Shop{Domain: testShop, AccessToken: "token", Active: true}}
	return New(index, admin, shops, newFakeCheckpoints(), &fakeLock{})
}

func TestHandleProductUpsert(t *testing.T) {
	index := newFakeIndex()
	admin := &fakeAdmin{products: map[string]*shopify.Product{
		"gid://shopify/Product/42": testProduct(42, "Blue Shirt", "19.99"),
	}}
	ix := newTestIndexer(index, admin)

	event := &models.WebhookEvent{
		Shop:      testShop,
		EventType: models.EventProductUpdate,
		ProductID: 42,
	}
	require.NoError(t, ix.HandleProductUpsert(context.Background(), event))

	indexName := searchindex.ProductIndexName(testShop)
	assert.True(t, index.ensured[indexName])

	doc := index.doc(indexName, "42")
	require.NotNil(t, doc)
	assert.Equal(t, "Blue Shirt", doc["title"])
	// Webhook-driven writes refresh synchronously.
	assert.True(t, index.refreshed[key(indexName, "42")])
}

func TestHandleProductUpsert_ResolvesGIDFromPayload(t *testing.T) {
	index := newFakeIndex()
	admin := &fakeAdmin{products: map[string]*shopify.Product{
		"gid://shopify/Product/7": testProduct(7, "From Payload", "5.00"),
	}}
	ix := newTestIndexer(index, admin)

	event := &models.WebhookEvent{
		Shop:        testShop,
		EventType:   models.EventProductCreate,
		PayloadJSON: `{"id":7}`,
	}
	require.NoError(t, ix.HandleProductUpsert(context.Background(), event))
	assert.Equal(t, []string{"gid://shopify/Product/7"}, admin.fetched)
}

func TestHandleProductUpsert_NoUsableID(t *testing.T) {
	ix := newTestIndexer(newFakeIndex(), &fakeAdmin{})

	event := &models.WebhookEvent{Shop: testShop, EventType: models.EventProductUpdate}
	err := ix.HandleProductUpsert(context.Background(), event)
	assert.ErrorIs(t, err, ErrNoUsableID)
}

func TestHandleProductUpsert_UnknownShop(t *testing.T) {
	ix := newTestIndexer(newFakeIndex(), &fakeAdmin{})

	event := &models.WebhookEvent{
		Shop:      "stranger.myshopify.com",
		EventType: models.EventProductUpdate,
		ProductID: 1,
	}
	err := ix.HandleProductUpsert(context.Background(), event)
	assert.ErrorIs(t, err, ErrShopNotFound)
}

func TestHandleProductDelete_Idempotent(t *testing.T) {
	index := newFakeIndex()
	ix := newTestIndexer(index, &fakeAdmin{})

	event := &models.WebhookEvent{
		Shop:      testShop,
		EventType: models.EventProductDelete,
		ProductID: 42,
	}

	// Nothing indexed yet; the delete still succeeds.
	require.NoError(t, ix.HandleProductDelete(context.Background(), event))
	require.NoError(t, ix.HandleProductDelete(context.Background(), event))

	indexName := searchindex.ProductIndexName(testShop)
	assert.Equal(t, []string{key(indexName, "42"), key(indexName, "42")}, index.deleted)
}

func TestHandleProductDelete_ResolvesIDFromGIDAndPayload(t *testing.T) {
	index := newFakeIndex()
	ix := newTestIndexer(index, &fakeAdmin{})
	indexName := searchindex.ProductIndexName(testShop)

	byGID := &models.WebhookEvent{
		Shop:       testShop,
		EventType:  models.EventProductDelete,
		ProductGID: "gid://shopify/Product/7",
	}
	require.NoError(t, ix.HandleProductDelete(context.Background(), byGID))

	byPayload := &models.WebhookEvent{
		Shop:        testShop,
		EventType:   models.EventProductDelete,
		PayloadJSON: `{"id":8}`,
	}
	require.NoError(t, ix.HandleProductDelete(context.Background(), byPayload))

	assert.Equal(t, []string{key(indexName, "7"), key(indexName, "8")}, index.deleted)

	noID := &models.WebhookEvent{Shop: testShop, EventType: models.EventProductDelete}
	assert.ErrorIs(t, ix.HandleProductDelete(context.Background(), noID), ErrNoUsableID)
}
