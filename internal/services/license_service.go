package services

import (
	"errors"
	"time"

	"roblox-license-platform/internal/models"

	"gorm.io/gorm"
)

// LicenseService implements the verification and whitelist policy: the
// append-only usage ledger, the per-(product, place) whitelist state
// machine, and the decision derived from both.
type LicenseService struct {
	db *gorm.DB
}

func NewLicenseService(db *gorm.DB) *LicenseService {
	return &LicenseService{db: db}
}

type VerifyInput struct {
	ProductKey string `json:"productKey"`
	PlaceID    string `json:"placeId"`
	GameName   string `json:"gameName"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

// Decision is the verification response contract. Whitelisted is
// tri-state: nil means the place has never been reviewed and is allowed
// to run by default.
type Decision struct {
	Success     bool   `json:"success"`
	ProductID   uint   `json:"productId"`
	PlaceID     string `json:"placeId"`
	Whitelisted *bool  `json:"whitelisted"`
	Active      bool   `json:"active"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

type UsageSummary struct {
	UniquePlaces  int64  `json:"unique_places"`
	TotalRequests int64  `json:"total_requests"`
	LastRequest   string `json:"last_request"`
}

// PlaceUsage is one row of the per-product "users" view: a distinct place
// seen in the ledger, joined against its whitelist entry when one exists.
type PlaceUsage struct {
	PlaceID      string `json:"place_id"`
	GameName     string `json:"game_name"`
	LastSeen     string `json:"last_seen"`
	RequestCount int64  `json:"request_count"`
	Status       string `json:"status"`
	IsActive     bool   `json:"is_active"`
}

// FindProductByKey resolves a product key to its product record.
func (s *LicenseService) FindProductByKey(key string) (*models.Product, error) {
	var product models.Product
	if err := s.db.Where("product_key = ?", key).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// AppendUsage writes one ledger row. Every verification call produces a
// new row; there is no deduplication.
func (s *LicenseService) AppendUsage(productID uint, placeID, gameName, playerName, playerID string) (*models.UsageLog, error) {
	if gameName == "" {
		gameName = "Unknown"
	}
	if playerName == "" {
		playerName = "Server"
	}
	if playerID == "" {
		playerID = "0"
	}

	entry := models.UsageLog{
		ProductID:  productID,
		PlaceID:    placeID,
		GameName:   gameName,
		PlayerName: playerName,
		PlayerID:   playerID,
		Timestamp:  time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// LookupEntry returns the whitelist entry for (product, place), or
// found=false when the pair has never been reviewed.
func (s *LicenseService) LookupEntry(productID uint, placeID string) (*models.WhitelistEntry, bool, error) {
	var entry models.WhitelistEntry
	err := s.db.Where("product_id = ? AND place_id = ?", productID, placeID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// Verify resolves the product key, records the call in the ledger, and
// derives the authorization decision. An unknown key fails before any
// ledger row is written.
func (s *LicenseService) Verify(in VerifyInput) (*Decision, error) {
	product, err := s.FindProductByKey(in.ProductKey)
	if err != nil {
		return nil, err
	}

	if _, err := s.AppendUsage(product.ID, in.PlaceID, in.GameName, in.PlayerName, in.PlayerID); err != nil {
		return nil, err
	}

	decision := &Decision{
		Success:   true,
		ProductID: product.ID,
		PlaceID:   in.PlaceID,
	}

	entry, found, err := s.LookupEntry(product.ID, in.PlaceID)
	if err != nil {
		return nil, err
	}

	if !found {
		// Never reviewed: allow it to run by default.
		decision.Whitelisted = nil
		decision.Active = true
		decision.Status = models.StatusNotYetChecked
		decision.Message = "Place not in whitelist - running in pending mode"
		return decision, nil
	}

	whitelisted := entry.Status == models.StatusWhitelisted
	decision.Whitelisted = &whitelisted
	decision.Active = entry.IsActive
	decision.Status = entry.Status

	switch {
	case entry.Status == models.StatusUnwhitelisted || !entry.IsActive:
		decision.Message = "Place is unwhitelisted or deactivated"
	case entry.Status == models.StatusPending:
		decision.Message = "Place is pending verification"
	default:
		decision.Message = "Place is whitelisted and active"
	}

	return decision, nil
}

// Summarize aggregates the ledger for one product.
func (s *LicenseService) Summarize(productID uint) (*UsageSummary, error) {
	var summary UsageSummary
	err := s.db.Model(&models.UsageLog{}).
		Select("COUNT(DISTINCT place_id) as unique_places, COUNT(*) as total_requests, COALESCE(MAX(timestamp), '') as last_request").
		Where("product_id = ?", productID).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListDistinctPlaces returns one row per distinct place seen for the
// product, most recently seen first. Places without a whitelist entry get
// the defaults status="not_yet_checked", is_active=true.
func (s *LicenseService) ListDistinctPlaces(productID uint) ([]PlaceUsage, error) {
	var rows []PlaceUsage
	err := s.db.Model(&models.UsageLog{}).
		Select("usage_logs.place_id, MAX(usage_logs.game_name) as game_name, MAX(usage_logs.timestamp) as last_seen, COUNT(*) as request_count, COALESCE(MAX(whitelist.status), 'not_yet_checked') as status, COALESCE(MAX(whitelist.is_active), 1) as is_active").
		Joins("LEFT JOIN whitelist ON whitelist.product_id = usage_logs.product_id AND whitelist.place_id = usage_logs.place_id").
		Where("usage_logs.product_id = ?", productID).
		Group("usage_logs.place_id").
		Order("last_seen DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// OwnedProduct is the ownership predicate for product-level operations.
// Missing and not-owned both come back as ErrNotFound.
func (s *LicenseService) OwnedProduct(userID, productID uint) (*models.Product, error) {
	var product models.Product
	err := s.db.Where("id = ? AND user_id = ?", productID, userID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// OwnedEntry is the ownership predicate for entry-level operations,
// joining through the entry's parent product.
func (s *LicenseService) OwnedEntry(userID, entryID uint) (*models.WhitelistEntry, error) {
	var entry models.WhitelistEntry
	err := s.db.Joins("JOIN products ON products.id = whitelist.product_id").
		Where("whitelist.id = ? AND products.user_id = ?", entryID, userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries returns a product's whitelist entries, newest first.
func (s *LicenseService) ListEntries(productID uint) ([]models.WhitelistEntry, error) {
	var entries []models.WhitelistEntry
	err := s.db.Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateEntry adds a whitelist entry for (product, place). Creation
// through the admin path is an explicit allow action, so the entry starts
// whitelisted and active. A second entry for the same pair is a conflict,
// whether caught by the pre-check or by the unique index under
// concurrent inserts.
func (s *LicenseService) CreateEntry(productID uint, placeID, gameName string) (*models.WhitelistEntry, error) {
	if _, found, err := s.LookupEntry(productID, placeID); err != nil {
		return nil, err
	} else if found {
		return nil, ErrDuplicateEntry
	}

	entry := models.WhitelistEntry{
		ProductID: productID,
		PlaceID:   placeID,
		GameName:  gameName,
		Status:    models.StatusWhitelisted,
		IsActive:  true,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}
	return &entry, nil
}

// SetStatus overwrites the status tag only; the active flag is untouched.
func (s *LicenseService) SetStatus(entry *models.WhitelistEntry, status string) error {
	switch status {
	case models.StatusPending, models.StatusWhitelisted, models.StatusUnwhitelisted:
	default:
		return ErrInvalidStatus
	}

	if err := s.db.Model(entry).Update("status", status).Error; err != nil {
		return err
	}
	entry.Status = status
	return nil
}

// ToggleActive flips the active flag. Turning an entry off also forces it
// to unwhitelisted; turning it back on restores only the flag, so an
// operator has to re-whitelist explicitly.
func (s *LicenseService) ToggleActive(entry *models.WhitelistEntry) error {
	if entry.IsActive {
		err := s.db.Model(entry).Updates(map[string]interface{}{
			"is_active": false,
			"status":    models.StatusUnwhitelisted,
		}).Error
		if err != nil {
			return err
		}
		entry.IsActive = false
		entry.Status = models.StatusUnwhitelisted
		return nil
	}

	if err := s.db.Model(entry).Update("is_active", true).Error; err != nil {
		return err
	}
	entry.IsActive = true
	return nil
}

// DeleteEntry removes the row; the (product, place) pair reverts to the
// virtual not-yet-checked state.
func (s *LicenseService) DeleteEntry(entry *models.WhitelistEntry) error {
	return s.db.Delete(entry).Error
}
