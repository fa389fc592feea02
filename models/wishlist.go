package models

import "time"

// Wishlist has the same ownership shape as Cart but carries no quantity
// and plays no part in checkout.
type Wishlist struct {
	WishlistID uint           `gorm:"primaryKey" json:"wishlist_id"`
	UserID     string         `gorm:"uniqueIndex" json:"user_id"`
	Items      []WishlistItem `gorm:"foreignKey:WishlistID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type WishlistItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	WishlistID   uint      `gorm:"index" json:"wishlist_id"`
	ProductID    uint      `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductImage string    `json:"product_image"`
	Price        float64   `json:"price"`
	AddedAt      time.Time `json:"added_at"`
}
