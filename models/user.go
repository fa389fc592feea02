package models

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleDelivery:
		return true
	}
	return false
}

type User struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	Email        string  `gorm:"unique;not null" json:"email"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Phone        string  `json:"phone"`
	Name         string  `json:"name"`
	Role         Role    `gorm:"type:VARCHAR(20);default:'user'" json:"role"`
	Address      Address `gorm:"embedded" json:"address"`
	Cart         Cart    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"cart"`
	Orders       []Order `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"orders"`
	CreatedAt    time.Time `json:"created_at"`
}

// Address model embedded in User
type Address struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
}
