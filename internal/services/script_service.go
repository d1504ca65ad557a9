package services

import (
	"strings"
	"text/template"
	"time"
)

// ScriptService renders the Lua server script an integrator drops into
// ServerScriptService. The script carries the product key and calls the
// verify endpoint on a timer; the platform never pushes to it.
type ScriptService struct {
	tmpl *template.Template
}

func NewScriptService() *ScriptService {
	return &ScriptService{
		tmpl: template.Must(template.New("roblox").Parse(robloxScriptTemplate)),
	}
}

type scriptParams struct {
	ProductKey  string
	APIURL      string
	GeneratedAt string
}

func (s *ScriptService) Generate(productKey, host string) (string, error) {
	var b strings.Builder
	err := s.tmpl.Execute(&b, scriptParams{
		ProductKey:  productKey,
		APIURL:      "https://" + host + "/api/track",
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

const robloxScriptTemplate = `--[[
    ROBLOX LICENSE SYSTEM - SERVER SCRIPT
    Place this in ServerScriptService

    Product Key: {{.ProductKey}}
    Generated: {{.GeneratedAt}}
]]

local HttpService = game:GetService("HttpService")
local Players = game:GetService("Players")

local CONFIG = {
    PRODUCT_KEY = "{{.ProductKey}}",
    API_URL = "{{.APIURL}}",
    CHECK_INTERVAL = 300, -- Check every 5 minutes
    ENABLED = true
}

local LicenseSystem = {}
LicenseSystem.IsWhitelisted = nil
LicenseSystem.IsActive = true

local function sendTrackingRequest(playerInfo)
    if not CONFIG.ENABLED then return end

    local data = {
        productKey = CONFIG.PRODUCT_KEY,
        placeId = tostring(game.PlaceId),
        gameName = game:GetService("MarketplaceService"):GetProductInfo(game.PlaceId).Name or "Unknown",
        playerName = playerInfo and playerInfo.Name or "Server",
        playerId = playerInfo and tostring(playerInfo.UserId) or "0"
    }

    local success, response = pcall(function()
        return HttpService:RequestAsync({
            Url = CONFIG.API_URL .. "/verify",
            Method = "POST",
            Headers = { ["Content-Type"] = "application/json" },
            Body = HttpService:JSONEncode(data)
        })
    end)

    if success and response.Success then
        local responseData = HttpService:JSONDecode(response.Body)
        LicenseSystem.IsWhitelisted = responseData.whitelisted
        LicenseSystem.IsActive = responseData.active

        if responseData.whitelisted == false and responseData.active == false then
            warn("[License] This place is UNWHITELISTED and DEACTIVATED")
        elseif responseData.whitelisted == false then
            print("[License] Place not yet verified - running in pending mode")
        else
            print("[License] Place is whitelisted and active")
        end

        return responseData
    else
        warn("[License] Failed to verify license:", response and response.StatusMessage or "Unknown error")
        return nil
    end
end

Players.PlayerAdded:Connect(function(player)
    sendTrackingRequest(player)
end)

task.spawn(function()
    while true do
        task.wait(CONFIG.CHECK_INTERVAL)
        sendTrackingRequest(nil)
    end
end)

function LicenseSystem:IsLicenseValid()
    -- Not explicitly unwhitelisted and still active; a place that has
    -- never been reviewed runs by default.
    return self.IsActive ~= false and self.IsWhitelisted ~= false
end

function LicenseSystem:GetStatus()
    return {
        whitelisted = self.IsWhitelisted,
        active = self.IsActive
    }
end

sendTrackingRequest(nil)

return LicenseSystem
`
