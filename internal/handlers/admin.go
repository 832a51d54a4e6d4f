package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/codebuildervaibhav/tubesummary/internal/logging"
	"github.com/codebuildervaibhav/tubesummary/internal/presets"
	"github.com/codebuildervaibhav/tubesummary/internal/settings"
)

// AdminAuth guards admin routes with a shared bearer token. An empty
// password rejects every request.
func AdminAuth(password string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:" + fiber.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if password == "" || subtle.ConstantTimeCompare([]byte(key), []byte(password)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return (&apiError{Status: fiber.StatusUnauthorized, Message: "Unauthorized access"}).send(c)
		},
	})
}

// AdminHandler serves the admin settings API
type AdminHandler struct {
	settings *settings.Service
	catalog  *presets.Catalog
	log      *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(svc *settings.Service, catalog *presets.Catalog, log *slog.Logger) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AdminHandler{settings: svc, catalog: catalog, log: log.With(slog.String("component", "admin"))}
}

// Register mounts the admin routes on r
func (h *AdminHandler) Register(r fiber.Router) {
	r.Get("/models", h.Models)
	r.Post("/models/select", h.SelectModel)
	r.Get("/settings", h.Settings)
	r.Get("/presets/max-tokens", h.MaxTokens)
	r.Post("/presets/max-tokens/update", h.UpdateMaxTokens)
	r.Post("/presets/max-tokens/update-default", h.UpdateDefaultMaxTokens)
	r.Post("/presets/max-tokens/bulk-update", h.BulkUpdateMaxTokens)
	r.Post("/presets/prompt/update", h.UpdatePrompt)
}

func (h *AdminHandler) userContext(c *fiber.Ctx) context.Context {
	return logging.WithContext(c.UserContext(), h.log)
}

// settingsError writes a settings failure: validation problems are 400s
func settingsError(c *fiber.Ctx, err error) error {
	apiErr := toAPIError(err)
	apiErr.Type = ""
	if apiErr.Status == fiber.StatusInternalServerError {
		apiErr.Message = "Failed to update settings"
	}
	return apiErr.send(c)
}

func sendOK(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

// Models lists the selectable models and the current choice
func (h *AdminHandler) Models(c *fiber.Ctx) error {
	return sendOK(c, fiber.Map{
		"models":       settings.AvailableModels,
		"currentModel": h.settings.SelectedModel(),
		"settings":     h.settings.Snapshot(),
	})
}

// SelectModel changes the summary model
func (h *AdminHandler) SelectModel(c *fiber.Ctx) error {
	var body struct {
		ModelID     string `json:"modelId"`
		AdminUserID string `json:"adminUserId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("Invalid request body").send(c)
	}
	if err := h.settings.SelectModel(h.userContext(c), body.ModelID, body.AdminUserID); err != nil {
		return settingsError(c, err)
	}
	return sendOK(c, fiber.Map{
		"selectedModel": body.ModelID,
		"message":       "Model updated successfully",
	})
}

// Settings returns the full admin configuration
func (h *AdminHandler) Settings(c *fiber.Ctx) error {
	return sendOK(c, h.settings.Snapshot())
}

type presetMaxTokens struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MaxTokens int    `json:"maxTokens"`
}

// MaxTokens returns every preset's effective ceiling
func (h *AdminHandler) MaxTokens(c *fiber.Ctx) error {
	values, def := h.settings.PresetMaxTokens()
	out := make([]presetMaxTokens, 0, len(values))
	for _, id := range h.settings.PresetIDs() {
		name := id
		if p, found := h.catalog.Get(id); found {
			name = p.Name
		}
		out = append(out, presetMaxTokens{ID: id, Name: name, MaxTokens: values[id]})
	}
	return sendOK(c, fiber.Map{
		"presets": out,
		"default": def,
	})
}

// UpdateMaxTokens sets one preset's ceiling
func (h *AdminHandler) UpdateMaxTokens(c *fiber.Ctx) error {
	var body struct {
		PresetID    string `json:"presetId"`
		MaxTokens   int    `json:"maxTokens"`
		AdminUserID string `json:"adminUserId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("Max tokens must be a number").send(c)
	}
	if body.PresetID == "" {
		return badRequest("Preset ID is required").send(c)
	}
	if err := h.settings.SetPresetMaxTokens(h.userContext(c), body.PresetID, body.MaxTokens, body.AdminUserID); err != nil {
		return settingsError(c, err)
	}
	return sendOK(c, fiber.Map{
		"presetId":  body.PresetID,
		"maxTokens": body.MaxTokens,
		"message":   fmt.Sprintf("Max tokens for preset '%s' updated to %d", body.PresetID, body.MaxTokens),
	})
}

// UpdateDefaultMaxTokens sets the fallback ceiling
func (h *AdminHandler) UpdateDefaultMaxTokens(c *fiber.Ctx) error {
	var body struct {
		MaxTokens   int    `json:"maxTokens"`
		AdminUserID string `json:"adminUserId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("Max tokens must be a number").send(c)
	}
	if err := h.settings.SetDefaultMaxTokens(h.userContext(c), body.MaxTokens, body.AdminUserID); err != nil {
		return settingsError(c, err)
	}
	return sendOK(c, fiber.Map{
		"maxTokens": body.MaxTokens,
		"message":   fmt.Sprintf("Default max tokens updated to %d", body.MaxTokens),
	})
}

// BulkUpdateMaxTokens sets several ceilings at once, all or nothing
func (h *AdminHandler) BulkUpdateMaxTokens(c *fiber.Ctx) error {
	var body struct {
		Presets     map[string]int `json:"presets"`
		AdminUserID string         `json:"adminUserId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("Presets object is required (presetId: maxTokens pairs)").send(c)
	}
	if err := h.settings.BulkSetMaxTokens(h.userContext(c), body.Presets, body.AdminUserID); err != nil {
		return settingsError(c, err)
	}
	return sendOK(c, fiber.Map{
		"updatedCount": len(body.Presets),
		"message":      fmt.Sprintf("Bulk updated max tokens for %d presets", len(body.Presets)),
	})
}

// UpdatePrompt overrides a preset prompt; an empty prompt restores the default
func (h *AdminHandler) UpdatePrompt(c *fiber.Ctx) error {
	var body struct {
		PresetID    string `json:"presetId"`
		Prompt      string `json:"prompt"`
		AdminUserID string `json:"adminUserId"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("Invalid request body").send(c)
	}
	if err := h.settings.SetPromptOverride(h.userContext(c), body.PresetID, body.Prompt, body.AdminUserID); err != nil {
		return settingsError(c, err)
	}
	msg := fmt.Sprintf("Prompt for preset '%s' updated", body.PresetID)
	if strings.TrimSpace(body.Prompt) == "" {
		msg = fmt.Sprintf("Prompt for preset '%s' reset to default", body.PresetID)
	}
	return sendOK(c, fiber.Map{
		"presetId": body.PresetID,
		"message":  msg,
	})
}
