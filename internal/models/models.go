package models

import "time"

// Whitelist entry status values. Absence of a row is the fourth, virtual
// state "not_yet_checked" and is never stored.
const (
	StatusPending       = "pending"
	StatusWhitelisted   = "whitelisted"
	StatusUnwhitelisted = "unwhitelisted"
	StatusNotYetChecked = "not_yet_checked"
)

// Users (operator accounts)
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Products (licensable units, one owner each)
type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	ProductKey  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"product_key"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// Whitelist entries, unique per (product, place)
type WhitelistEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"uniqueIndex:idx_product_place;not null" json:"product_id"`
	PlaceID   string    `gorm:"type:varchar(100);uniqueIndex:idx_product_place;not null" json:"place_id"`
	GameName  string    `gorm:"type:varchar(255);not null" json:"game_name"`
	Status    string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (WhitelistEntry) TableName() string {
	return "whitelist"
}

// Usage logs (append-only verification call records)
type UsageLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  uint      `gorm:"index:idx_product_place_log;not null" json:"product_id"`
	PlaceID    string    `gorm:"type:varchar(100);index:idx_product_place_log;not null" json:"place_id"`
	GameName   string    `gorm:"type:varchar(255)" json:"game_name"`
	PlayerName string    `gorm:"type:varchar(255)" json:"player_name"`
	PlayerID   string    `gorm:"type:varchar(100)" json:"player_id"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`

	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}

// JWT Blacklist (revoked operator tokens)
type JWTBlacklist struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Token     string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (JWTBlacklist) TableName() string {
	return "jwt_blacklist"
}
