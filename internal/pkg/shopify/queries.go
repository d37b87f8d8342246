package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrProductNotFound signals that the shop has no product for the
// requested id. Callers treat this as a permanent per-event error.
var ErrProductNotFound = errors.New("product not found")

// Product is the authoritative product representation fetched from the
// Admin API. The webhook payload alone may be a partial delta, so the
// indexing pipeline always works from this shape.
type Product struct {
	ID              string   `json:"id"`
	LegacyID        int64    `json:"legacyResourceId,string"`
	Title           string   `json:"title"`
	Handle          string   `json:"handle"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Vendor          string   `json:"vendor"`
	ProductType     string   `json:"productType"`
	Status          string   `json:"status"`
	Tags            []string `json:"tags"`
	TotalInventory  int64    `json:"totalInventory"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`

	Options []ProductOption `json:"options"`

	Variants struct {
		Edges []struct {
			Node Variant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`

	Collections struct {
		Edges []struct {
			Node Collection `json:"node"`
		} `json:"edges"`
	} `json:"collections"`
}

// ProductOption is one option axis (e.g. Size) with its values.
type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Variant is one sellable variant of a product.
type Variant struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	SKU               string  `json:"sku"`
	Price             string  `json:"price"`
	CompareAtPrice    *string `json:"compareAtPrice"`
	AvailableForSale  bool    `json:"availableForSale"`
	InventoryQuantity int64   `json:"inventoryQuantity"`
}

// Collection is a collection membership reference on a product.
type Collection struct {
	ID       string `json:"id"`
	LegacyID int64  `json:"legacyResourceId,string"`
	Handle   string `json:"handle"`
	Title    string `json:"title"`
}

const productFields = `
	id
	legacyResourceId
	title
	handle
	descriptionHtml
	vendor
	productType
	status
	tags
	totalInventory
	createdAt
	updatedAt
	options { name values }
	variants(first: 100) {
		edges {
			node {
				id
				title
				sku
				price
				compareAtPrice
				availableForSale
				inventoryQuantity
			}
		}
	}
	collections(first: 50) {
		edges {
			node { id legacyResourceId handle title }
		}
	}`

var productByIDQuery = fmt.Sprintf(`query productByID($id: ID!) {
	product(id: $id) {%s
	}
}`, productFields)

// FetchProduct loads the full current state of one product by GID.
func (c *Client) FetchProduct(ctx context.Context, shop, token, gid string) (*Product, error) {
	resp, err := c.GraphQL(ctx, shop, token, productByIDQuery, map[string]interface{}{"id": gid})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var data struct {
		Product *Product `json:"product"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode product response: %w", err)
	}
	if data.Product == nil {
		return nil, ErrProductNotFound
	}
	return data.Product, nil
}

// ProductPage is one page of the full catalog listing.
type ProductPage struct {
	Products    []Product
	HasNextPage bool
	EndCursor   string
}

var productsPageQuery = fmt.Sprintf(`query productsPage($first: Int!, $after: String) {
	products(first: $first, after: $after) {
		pageInfo { hasNextPage endCursor }
		edges {
			node {%s
			}
		}
	}
}`, productFields)

// FetchProductsPage pages through the full catalog, used by bulk reindex.
func (c *Client) FetchProductsPage(ctx context.Context, shop, token, cursor string, limit int) (*ProductPage, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}
	vars := map[string]interface{}{"first": limit}
	if cursor != "" {
		vars["after"] = cursor
	}
	resp, err := c.GraphQL(ctx, shop, token, productsPageQuery, vars)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var data struct {
		Products struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Edges []struct {
				Node Product `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode products page: %w", err)
	}

	page := &ProductPage{
		HasNextPage: data.Products.PageInfo.HasNextPage,
		EndCursor:   data.Products.PageInfo.EndCursor,
	}
	for _, e := range data.Products.Edges {
		page.Products = append(page.Products, e.Node)
	}
	return page, nil
}

const nodesExistQuery = `query nodesExist($ids: [ID!]!) {
	nodes(ids: $ids) { id }
}`

// NodesExist checks which of the given GIDs still resolve upstream.
// Missing nodes come back as null entries.
func (c *Client) NodesExist(ctx context.Context, shop, token string, gids []string) (map[string]bool, error) {
	exists := make(map[string]bool, len(gids))
	if len(gids) == 0 {
		return exists, nil
	}
	resp, err := c.GraphQL(ctx, shop, token, nodesExistQuery, map[string]interface{}{"ids": gids})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var data struct {
		Nodes []*struct {
			ID string `json:"id"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode nodes response: %w", err)
	}
	for _, n := range data.Nodes {
		if n != nil && n.ID != "" {
			exists[n.ID] = true
		}
	}
	return exists, nil
}

const collectionProductsQuery = `query collectionProducts($id: ID!, $first: Int!, $after: String) {
	collection(id: $id) {
		products(first: $first, after: $after, sortKey: COLLECTION_DEFAULT) {
			pageInfo { hasNextPage endCursor }
			edges { node { id } }
		}
	}
}`

// FetchCollectionProductGIDs returns the collection's product GIDs in
// collection order, paging until exhausted.
func (c *Client) FetchCollectionProductGIDs(ctx context.Context, shop, token, collectionGID string) ([]string, error) {
	var gids []string
	cursor := ""
	for {
		vars := map[string]interface{}{"id": collectionGID, "first": 250}
		if cursor != "" {
			vars["after"] = cursor
		}
		resp, err := c.GraphQL(ctx, shop, token, collectionProductsQuery, vars)
		if err != nil {
			return nil, err
		}
		if err := resp.Err(); err != nil {
			return nil, err
		}

		var data struct {
			Collection *struct {
				Products struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Edges []struct {
						Node struct {
							ID string `json:"id"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"products"`
			} `json:"collection"`
		}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode collection products: %w", err)
		}
		if data.Collection == nil {
			return gids, nil
		}
		for _, e := range data.Collection.Products.Edges {
			gids = append(gids, e.Node.ID)
		}
		if !data.Collection.Products.PageInfo.HasNextPage {
			return gids, nil
		}
		cursor = data.Collection.Products.PageInfo.EndCursor
	}
}

// ProductGID builds a product GID from a numeric id.
func ProductGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Product/%d", id)
}

// CollectionGID builds a collection GID from a numeric id.
func CollectionGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Collection/%d", id)
}

// LegacyIDFromGID extracts the trailing numeric id from a GID, or 0.
func LegacyIDFromGID(gid string) int64 {
	idx := strings.LastIndex(gid, "/")
	if idx < 0 || idx == len(gid)-1 {
		return 0
	}
	var id int64
	_, err := fmt.Sscanf(gid[idx+1:], "%d", &id)
	if err != nil {
		return 0
	}
	return id
}
