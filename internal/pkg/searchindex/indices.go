package searchindex

import "strings"

// Tenant-scoped index names. Auxiliary indices hold cross-tenant
// documents keyed by a shop field and are cleaned per tenant with
// delete-by-query during uninstall.
const (
	ProductIndexPrefix = "afs_products_"

	SearchLogsIndex = "afs_search_logs"
	SynonymsIndex   = "afs_synonyms"
)

// AuxiliaryIndices is the fixed list of shared indices that carry
// per-tenant documents outside the product index.
var AuxiliaryIndices = []string{SearchLogsIndex, SynonymsIndex}

// ProductIndexName maps a shop domain to its product index.
func ProductIndexName(shop string) string {
	s := strings.ToLower(shop)
	s = strings.NewReplacer(".", "_", ":", "_", "/", "_").Replace(s)
	return ProductIndexPrefix + s
}

// ProductMapping is the index schema for product documents. The document
// transform emits exactly these top-level fields; anything else is
// dropped by the mapping filter before indexing.
const ProductMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 1,
    "analysis": {
      "analyzer": {
        "afs_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id": {"type": "long"},
      "gid": {"type": "keyword"},
      "shop": {"type": "keyword"},
      "title": {"type": "text", "analyzer": "afs_text", "fields": {"raw": {"type": "keyword"}}},
      "handle": {"type": "keyword"},
      "description": {"type": "text", "analyzer": "afs_text"},
      "vendor": {"type": "keyword"},
      "product_type": {"type": "keyword"},
      "status": {"type": "keyword"},
      "tags": {"type": "keyword"},
      "price_min": {"type": "double"},
      "price_max": {"type": "double"},
      "available": {"type": "boolean"},
      "total_inventory": {"type": "long"},
      "options": {
        "type": "nested",
        "properties": {
          "name": {"type": "keyword"},
          "values": {"type": "keyword"}
        }
      },
      "variants": {
        "type": "nested",
        "properties": {
          "id": {"type": "keyword"},
          "sku": {"type": "keyword"},
          "title": {"type": "keyword"},
          "price": {"type": "double"},
          "compare_at_price": {"type": "double"},
          "available": {"type": "boolean"},
          "inventory_quantity": {"type": "long"}
        }
      },
      "collections": {
        "type": "nested",
        "properties": {
          "id": {"type": "long"},
          "gid": {"type": "keyword"},
          "handle": {"type": "keyword"},
          "title": {"type": "keyword"}
        }
      },
      "best_seller_rank": {"type": "long"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"},
      "indexed_at": {"type": "date"}
    }
  }
}`
