package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/tubesummary/internal/presets"
	"github.com/codebuildervaibhav/tubesummary/internal/settings"
)

// PresetsHandler serves GET /api/summary/presets
type PresetsHandler struct {
	catalog  *presets.Catalog
	settings *settings.Service
}

// NewPresetsHandler creates a new presets handler. svc may be nil.
func NewPresetsHandler(catalog *presets.Catalog, svc *settings.Service) *PresetsHandler {
	return &PresetsHandler{catalog: catalog, settings: svc}
}

// Handle returns presets keyed by id and their categories. Admin prompt
// overrides replace the built-in prompt text.
func (h *PresetsHandler) Handle(c *fiber.Ctx) error {
	all := h.catalog.All()
	byID := make(map[string]presets.Preset, len(all))
	for _, p := range all {
		if h.settings != nil {
			if override, ok := h.settings.PromptOverride(p.ID); ok {
				p.Prompt = override
			}
		}
		byID[p.ID] = p
	}

	cats := h.catalog.Categories()
	catsByID := make(map[string]presets.Category, len(cats))
	for _, cat := range cats {
		catsByID[cat.ID] = cat
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"presets":    byID,
			"categories": catsByID,
		},
	})
}
