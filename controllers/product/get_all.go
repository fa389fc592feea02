package productcontroller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nexcart/storefront-api/cache"
	"github.com/nexcart/storefront-api/models"
)

const (
	listingTTL     = 5 * time.Minute
	catalogVersion = "catalog:version"
)

// BumpCatalogVersion invalidates all cached listings after a catalog
// write. Old generations expire via TTL.
func BumpCatalogVersion(store cache.Cache, c *gin.Context) {
	if store == nil {
		return
	}
	_, _ = store.Incr(c.Request.Context(), store.GenerateKey("products", catalogVersion))
}

// GetProducts lists products with search, category, price-range and sort
// filters. Responses are cached in redis keyed by catalog generation and
// query string when a cache is configured.
func GetProducts(db *gorm.DB, store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cacheKey string
		if store != nil {
			ctx := c.Request.Context()
			gen, _ := store.Get(ctx, store.GenerateKey("products", catalogVersion))
			cacheKey = store.GenerateKey("products", fmt.Sprintf("%s:%s", gen, c.Request.URL.RawQuery))
			if cached, err := store.Get(ctx, cacheKey); err == nil && cached != "" {
				c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
				return
			}
		}

		search := c.Query("search")
		categoryID := c.Query("category_id")
		minPriceStr := c.Query("min_price")
		maxPriceStr := c.Query("max_price")
		sortBy := c.DefaultQuery("sort_by", "created_at")
		sortOrder := strings.ToLower(c.DefaultQuery("order", "desc"))
		if sortOrder != "asc" && sortOrder != "desc" {
			sortOrder = "desc"
		}
		switch sortBy {
		case "created_at", "price", "name", "stock":
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort_by"})
			return
		}

		query := db.Model(&models.Product{}).Preload("Categories")

		if search != "" {
			likePattern := "%" + search + "%"
			query = query.Where("name LIKE ? OR description LIKE ?", likePattern, likePattern)
		}

		if minPriceStr != "" {
			if mp, err := strconv.ParseFloat(minPriceStr, 64); err == nil {
				query = query.Where("price >= ?", mp)
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
				return
			}
		}
		if maxPriceStr != "" {
			if mp, err := strconv.ParseFloat(maxPriceStr, 64); err == nil {
				query = query.Where("price <= ?", mp)
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
				return
			}
		}

		if categoryID != "" {
			if cid, err := strconv.ParseUint(categoryID, 10, 64); err == nil {
				query = query.
					Joins("JOIN product_categories pc ON pc.product_id = products.id").
					Where("pc.category_id = ?", uint(cid))
			} else {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id"})
				return
			}
		}

		orderClause := fmt.Sprintf("%s %s", sortBy, sortOrder)
		var products []models.Product
		if err := query.Order(orderClause).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		if store != nil && cacheKey != "" {
			if encoded, err := json.Marshal(products); err == nil {
				_ = store.Set(c.Request.Context(), cacheKey, string(encoded), listingTTL)
			}
		}

		c.JSON(http.StatusOK, products)
	}
}
