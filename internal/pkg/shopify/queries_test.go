package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProduct(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req GraphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gid://shopify/Product/42", req.Variables["id"])

		w.Write([]byte(`{"data":{"product":{
			"id":"gid://shopify/Product/42",
			"legacyResourceId":"42",
			"title":"Blue Shirt",
			"handle":"blue-shirt",
			"status":"ACTIVE",
			"tags":["summer"],
			"variants":{"edges":[{"node":{"id":"gid://shopify/ProductVariant/1","price":"19.99","availableForSale":true}}]},
			"collections":{"edges":[{"node":{"id":"gid://shopify/Collection/7","legacyResourceId":"7","handle":"shirts","title":"Shirts"}}]}
		}}}`))
	})

	product, err := c.FetchProduct(context.Background(), "demo.myshopify.com", "t", "gid://shopify/Product/42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), product.LegacyID)
	assert.Equal(t, "Blue Shirt", product.Title)
	require.Len(t, product.Variants.Edges, 1)
	assert.Equal(t, "19.99", product.Variants.Edges[0].Node.Price)
	require.Len(t, product.Collections.Edges, 1)
	assert.Equal(t, int64(7), product.Collections.Edges[0].Node.LegacyID)
}

func TestFetchProduct_NotFound(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"product":null}}`))
	})

	_, err := c.FetchProduct(context.Background(), "demo.myshopify.com", "t", "gid://shopify/Product/404")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFetchProductsPage(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req GraphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 2, req.Variables["first"])
		assert.Equal(t, "cursor-a", req.Variables["after"])

		w.Write([]byte(`{"data":{"products":{
			"pageInfo":{"hasNextPage":true,"endCursor":"cursor-b"},
			"edges":[
				{"node":{"id":"gid://shopify/Product/1","legacyResourceId":"1","title":"One"}},
				{"node":{"id":"gid://shopify/Product/2","legacyResourceId":"2","title":"Two"}}
			]
		}}}`))
	})

	page, err := c.FetchProductsPage(context.Background(), "demo.myshopify.com", "t", "cursor-a", 2)
	require.NoError(t, err)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "cursor-b", page.EndCursor)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Two", page.Products[1].Title)
}

func TestNodesExist(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"nodes":[{"id":"gid://shopify/Product/1"},null,{"id":"gid://shopify/Product/3"}]}}`))
	})

	exists, err := c.NodesExist(context.Background(), "demo.myshopify.com", "t", []string{
		"gid://shopify/Product/1",
		"gid://shopify/Product/2",
		"gid://shopify/Product/3",
	})
	require.NoError(t, err)
	assert.True(t, exists["gid://shopify/Product/1"])
	assert.False(t, exists["gid://shopify/Product/2"])
	assert.True(t, exists["gid://shopify/Product/3"])
}

func TestNodesExist_EmptyInput(t *testing.T) {
	c := NewClient(Config{})
	exists, err := c.NodesExist(context.Background(), "demo.myshopify.com", "t", nil)
	require.NoError(t, err)
	assert.Empty(t, exists)
}

func TestFetchCollectionProductGIDs_Paginates(t *testing.T) {
	pages := []string{
		`{"data":{"collection":{"products":{
			"pageInfo":{"hasNextPage":true,"endCursor":"c1"},
			"edges":[{"node":{"id":"gid://shopify/Product/1"}},{"node":{"id":"gid://shopify/Product/2"}}]
		}}}}`,
		`{"data":{"collection":{"products":{
			"pageInfo":{"hasNextPage":false,"endCursor":""},
			"edges":[{"node":{"id":"gid://shopify/Product/3"}}]
		}}}}`,
	}
	call := 0
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pages[call]))
		call++
	})

	gids, err := c.FetchCollectionProductGIDs(context.Background(), "demo.myshopify.com", "t", "gid://shopify/Collection/7")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"gid://shopify/Product/1",
		"gid://shopify/Product/2",
		"gid://shopify/Product/3",
	}, gids)
}

func TestFetchCollectionProductGIDs_MissingCollection(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"collection":null}}`))
	})

	gids, err := c.FetchCollectionProductGIDs(context.Background(), "demo.myshopify.com", "t", "gid://shopify/Collection/404")
	require.NoError(t, err)
	assert.Empty(t, gids)
}

func TestGIDHelpers(t *testing.T) {
	assert.Equal(t, "gid://shopify/Product/42", ProductGID(42))
	assert.Equal(t, "gid://shopify/Collection/7", CollectionGID(7))

	assert.Equal(t, int64(42), LegacyIDFromGID("gid://shopify/Product/42"))
	assert.Equal(t, int64(0), LegacyIDFromGID("gid://shopify/Product/"))
	assert.Equal(t, int64(0), LegacyIDFromGID("not-a-gid"))
	assert.Equal(t, int64(0), LegacyIDFromGID(""))
}
