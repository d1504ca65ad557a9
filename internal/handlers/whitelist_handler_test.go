package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roblox-license-platform/internal/models"
	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWhitelistLifecycle walks the full operator flow against the verify
// endpoint: unchecked place runs by default, admin whitelists it, toggles
// it off, and the decision follows each transition.
func TestWhitelistLifecycle(t *testing.T) {
	env := setupEnv(t)

	verify := func() map[string]interface{} {
		w, resp := env.do(t, http.MethodPost, "/api/track/verify", gin.H{
			"productKey": env.product.ProductKey,
			"placeId":    "111",
		})
		require.Equal(t, http.StatusOK, w.Code)
		return resp
	}

	// Never reviewed: runs by default
	resp := verify()
	assert.Nil(t, resp["whitelisted"])
	assert.Equal(t, true, resp["active"])
	assert.Equal(t, "not_yet_checked", resp["status"])

	// Admin adds the place: defaults to whitelisted + active
	w, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/whitelist/product/%d", env.product.ID), gin.H{
		"placeId":  "111",
		"gameName": "My Game",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	entry, ok := resp["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "whitelisted", entry["status"])
	assert.Equal(t, true, entry["is_active"])
	entryID := uint(entry["id"].(float64))

	resp = verify()
	assert.Equal(t, true, resp["whitelisted"])
	assert.Equal(t, true, resp["active"])
	assert.Equal(t, "whitelisted", resp["status"])

	// Toggle off: deactivation couples with unwhitelisting
	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/whitelist/%d/toggle", entryID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry = resp["data"].(map[string]interface{})
	assert.Equal(t, false, entry["is_active"])
	assert.Equal(t, "unwhitelisted", entry["status"])

	resp = verify()
	assert.Equal(t, false, resp["whitelisted"])
	assert.Equal(t, false, resp["active"])
	assert.Equal(t, "unwhitelisted", resp["status"])

	// Toggle back on: active again but still unwhitelisted
	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/whitelist/%d/toggle", entryID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry = resp["data"].(map[string]interface{})
	assert.Equal(t, true, entry["is_active"])
	assert.Equal(t, "unwhitelisted", entry["status"])
}

func TestWhitelistAddDuplicate(t *testing.T) {
	env := setupEnv(t)
	path := fmt.Sprintf("/api/whitelist/product/%d", env.product.ID)

	w, _ := env.do(t, http.MethodPost, path, gin.H{"placeId": "111", "gameName": "My Game"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := env.do(t, http.MethodPost, path, gin.H{"placeId": "111", "gameName": "My Game"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "already in the whitelist")
}

func TestWhitelistSetStatus(t *testing.T) {
	env := setupEnv(t)

	w, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/whitelist/product/%d", env.product.ID), gin.H{
		"placeId": "111", "gameName": "My Game",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	entryID := uint(resp["data"].(map[string]interface{})["id"].(float64))

	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/whitelist/%d/status", entryID), gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code)
	entry := resp["data"].(map[string]interface{})
	assert.Equal(t, "pending", entry["status"])
	assert.Equal(t, true, entry["is_active"])

	w, resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/whitelist/%d/status", entryID), gin.H{"status": "banned"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid status", resp["error"])
}

func TestWhitelistOwnershipIsolation(t *testing.T) {
	env := setupEnv(t)

	intruder := models.User{Username: "intruder", Email: "intruder@example.com", Password: "x"}
	require.NoError(t, env.db.Create(&intruder).Error)

	licenseService := services.NewLicenseService(env.db)
	entry, err := licenseService.CreateEntry(env.product.ID, "111", "My Game")
	require.NoError(t, err)

	whitelistHandler := NewWhitelistHandler(licenseService)
	router := gin.New()
	foreign := router.Group("/api", fakeAuth(intruder.ID))
	foreign.GET("/whitelist/product/:productId", whitelistHandler.List)
	foreign.PUT("/whitelist/:id/toggle", whitelistHandler.Toggle)
	foreign.DELETE("/whitelist/:id", whitelistHandler.Delete)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, fmt.Sprintf("/api/whitelist/product/%d", env.product.ID)},
		{http.MethodPut, fmt.Sprintf("/api/whitelist/%d/toggle", entry.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/whitelist/%d", entry.ID)},
	}

	for _, tc := range cases {
		t.Run(strings.ToLower(tc.method)+"_"+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, bytes.NewBuffer(nil))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			// Not owned surfaces exactly like not found
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}

	// Entry untouched by the failed attempts
	current, found, err := licenseService.LookupEntry(env.product.ID, "111")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, current.IsActive)
	assert.Equal(t, models.StatusWhitelisted, current.Status)
}

func TestWhitelistDelete(t *testing.T) {
	env := setupEnv(t)

	w, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/whitelist/product/%d", env.product.ID), gin.H{
		"placeId": "111", "gameName": "My Game",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	entryID := uint(resp["data"].(map[string]interface{})["id"].(float64))

	w, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/whitelist/%d", entryID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Pair reverts to not_yet_checked
	w, resp = env.do(t, http.MethodPost, "/api/track/verify", gin.H{
		"productKey": env.product.ProductKey,
		"placeId":    "111",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, resp["whitelisted"])
	assert.Equal(t, "not_yet_checked", resp["status"])
}

func TestProductUsersView(t *testing.T) {
	env := setupEnv(t)

	for _, placeID := range []string{"111", "111", "222"} {
		w, _ := env.do(t, http.MethodPost, "/api/track/verify", gin.H{
			"productKey": env.product.ProductKey,
			"placeId":    placeID,
			"gameName":   "My Game",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w, resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/whitelist/product/%d", env.product.ID), gin.H{
		"placeId": "111", "gameName": "My Game",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d/users", env.product.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	users, ok := resp["users"].([]interface{})
	require.True(t, ok)
	require.Len(t, users, 2)

	byPlace := map[string]map[string]interface{}{}
	for _, u := range users {
		row := u.(map[string]interface{})
		byPlace[row["place_id"].(string)] = row
	}

	assert.Equal(t, "whitelisted", byPlace["111"]["status"])
	assert.Equal(t, float64(2), byPlace["111"]["request_count"])
	assert.Equal(t, "not_yet_checked", byPlace["222"]["status"])
	assert.Equal(t, true, byPlace["222"]["is_active"])
}

func TestProductDeleteCascadesOverHTTP(t *testing.T) {
	env := setupEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/track/verify", gin.H{
		"productKey": env.product.ProductKey,
		"placeId":    "111",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/whitelist/product/%d", env.product.ID), gin.H{
		"placeId": "111", "gameName": "My Game",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", env.product.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var logs, entries int64
	require.NoError(t, env.db.Model(&models.UsageLog{}).Count(&logs).Error)
	require.NoError(t, env.db.Model(&models.WhitelistEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(0), logs)
	assert.Equal(t, int64(0), entries)
}

func TestProductScript(t *testing.T) {
	env := setupEnv(t)

	w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d/script", env.product.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	script, ok := resp["script"].(string)
	require.True(t, ok)
	assert.Contains(t, script, env.product.ProductKey)
	assert.Contains(t, script, "/api/track")
}
