package indexer

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shafiq-apps/afs-staging-sub006/internal/pkg/shopify"
)

// Document is the index schema for one product. The same transform feeds
// both webhook-triggered upserts and bulk reindexing so the two paths can
// never drift apart.
type Document struct {
	ID             int64           `json:"id"`
	GID            string          `json:"gid"`
	Shop           string          `json:"shop"`
	Title          string          `json:"title"`
	Handle         string          `json:"handle"`
	Description    string          `json:"description"`
	Vendor         string          `json:"vendor"`
	ProductType    string          `json:"product_type"`
	Status         string          `json:"status"`
	Tags           []string        `json:"tags"`
	PriceMin       float64         `json:"price_min"`
	PriceMax       float64         `json:"price_max"`
	Available      bool            `json:"available"`
	TotalInventory int64           `json:"total_inventory"`
	Options        []DocOption     `json:"options"`
	Variants       []DocVariant    `json:"variants"`
	Collections    []DocCollection `json:"collections"`
	BestSellerRank *int64          `json:"best_seller_rank,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
	IndexedAt      time.Time       `json:"indexed_at"`
}

type DocOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type DocVariant struct {
	ID                string   `json:"id"`
	SKU               string   `json:"sku"`
	Title             string   `json:"title"`
	Price             float64  `json:"price"`
	CompareAtPrice    *float64 `json:"compare_at_price,omitempty"`
	Available         bool     `json:"available"`
	InventoryQuantity int64    `json:"inventory_quantity"`
}

type DocCollection struct {
	ID     int64  `json:"id"`
	GID    string `json:"gid"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// Transform builds the index document from the authoritative product
// state fetched from the Admin API.
func Transform(shop string, p *shopify.Product) *Document {
	doc := &Document{
		ID:             p.LegacyID,
		GID:            p.ID,
		Shop:           shop,
		Title:          p.Title,
		Handle:         p.Handle,
		Description:    p.DescriptionHTML,
		Vendor:         p.Vendor,
		ProductType:    p.ProductType,
		Status:         p.Status,
		Tags:           p.Tags,
		TotalInventory: p.TotalInventory,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		IndexedAt:      time.Now().UTC(),
	}
	if doc.ID == 0 {
		doc.ID = shopify.LegacyIDFromGID(p.ID)
	}

	for _, o := range p.Options {
		doc.Options = append(doc.Options, DocOption{Name: o.Name, Values: o.Values})
	}

	first := true
	for _, e := range p.Variants.Edges {
		v := e.Node
		price := parsePrice(v.Price)
		dv := DocVariant{
			ID:                v.ID,
			SKU:               v.SKU,
			Title:             v.Title,
			Price:             price,
			Available:         v.AvailableForSale,
			InventoryQuantity: v.InventoryQuantity,
		}
		if v.CompareAtPrice != nil {
			cap := parsePrice(*v.CompareAtPrice)
			dv.CompareAtPrice = &cap
		}
		doc.Variants = append(doc.Variants, dv)

		if first || price < doc.PriceMin {
			doc.PriceMin = price
		}
		if first || price > doc.PriceMax {
			doc.PriceMax = price
		}
		first = false
		if v.AvailableForSale {
			doc.Available = true
		}
	}

	for _, e := range p.Collections.Edges {
		col := e.Node
		id := col.LegacyID
		if id == 0 {
			id = shopify.LegacyIDFromGID(col.ID)
		}
		doc.Collections = append(doc.Collections, DocCollection{
			ID:     id,
			GID:    col.ID,
			Handle: col.Handle,
			Title:  col.Title,
		})
	}

	return doc
}

func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// FilterToMapping projects the document onto the index's known fields,
// dropping anything the mapping does not declare.
func FilterToMapping(doc *Document, allowed map[string]bool) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, err
	}
	for field := range asMap {
		if !allowed[field] {
			delete(asMap, field)
		}
	}
	return asMap, nil
}

// DocID is the index document id for a product.
func DocID(productID int64) string {
	return strconv.FormatInt(productID, 10)
}
