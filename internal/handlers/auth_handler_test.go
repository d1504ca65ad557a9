package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roblox-license-platform/internal/database"
	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.ConnectTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseTest(db) })

	authService := services.NewAuthService(db)
	authHandler := NewAuthHandler(db, authService)

	router := gin.New()
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	authed := router.Group("/api/auth")
	authed.Use(func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")[len("Bearer "):]
		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("token", tokenString)
		c.Next()
	})
	authed.GET("/me", authHandler.Me)
	authed.POST("/logout", authHandler.Logout)

	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestRegisterLoginMeLogout(t *testing.T) {
	router := setupAuthRouter(t)

	w, resp := postJSON(t, router, "/api/auth/register", gin.H{
		"username": "operator",
		"email":    "operator@example.com",
		"password": "secret99",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	token, ok := resp["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Duplicate username conflicts
	w, _ = postJSON(t, router, "/api/auth/register", gin.H{
		"username": "operator",
		"email":    "other@example.com",
		"password": "secret99",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Login with the same credentials
	w, resp = postJSON(t, router, "/api/auth/login", gin.H{
		"username": "operator",
		"password": "secret99",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token = resp["token"].(string)

	// Me
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	user := me["user"].(map[string]interface{})
	assert.Equal(t, "operator", user["username"])
	_, leaked := user["password"]
	assert.False(t, leaked)

	// Logout revokes the token
	w, _ = postJSON(t, router, "/api/auth/logout", gin.H{}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router := setupAuthRouter(t)

	w, _ := postJSON(t, router, "/api/auth/register", gin.H{
		"username": "operator",
		"email":    "operator@example.com",
		"password": "secret99",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = postJSON(t, router, "/api/auth/login", gin.H{
		"username": "operator",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
