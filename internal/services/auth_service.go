package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"roblox-license-platform/configs"
	"roblox-license-platform/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService issues and validates operator tokens. The core trusts it as
// the caller-identity collaborator; nothing here touches whitelist or
// ledger state.
type AuthService struct {
	db      *gorm.DB
	revoked *cache.Cache
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{
		db:      db,
		revoked: cache.New(configs.AppConfig.JWTTTL, 10*time.Minute),
	}
}

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(userID uint, username string) (string, error) {
	expirationTime := time.Now().Add(configs.AppConfig.JWTTTL)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "roblox-license-platform",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(configs.AppConfig.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configs.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	// Check the local revocation cache before hitting the blacklist table
	if _, found := s.revoked.Get(tokenString); found {
		return nil, errors.New("token has been revoked")
	}

	var blacklist models.JWTBlacklist
	if err := s.db.Where("token = ?", tokenString).First(&blacklist).Error; err == nil {
		s.revoked.Set(tokenString, true, time.Until(blacklist.ExpiresAt))
		return nil, errors.New("token has been revoked")
	}

	return claims, nil
}

func (s *AuthService) RevokeToken(tokenString string) error {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	blacklist := models.JWTBlacklist{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	if err := s.db.Create(&blacklist).Error; err != nil {
		return err
	}

	s.revoked.Set(tokenString, true, time.Until(claims.ExpiresAt.Time))
	return nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *AuthService) GetClientIPv4(c *gin.Context) string {
	ip := c.ClientIP()

	switch ip {
	case "::1":
		return "127.0.0.1"
	default:
		if strings.HasPrefix(ip, "::ffff:") {
			return ip[7:]
		}
	}

	return ip
}
