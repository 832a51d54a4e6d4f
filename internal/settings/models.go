package settings

// Model describes an OpenRouter model offered to admins
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	ContextLength string `json:"contextLength"`
	Pricing       string `json:"pricing"`
	Description   string `json:"description"`
}

// ModelCatalog groups models by billing tier
type ModelCatalog struct {
	Paid []Model `json:"paid"`
	Free []Model `json:"free"`
}

// AvailableModels is the list shown in the admin model picker. Selection is
// not restricted to it.
var AvailableModels = ModelCatalog{
	Paid: []Model{
		{
			ID:            "google/gemini-2.5-flash-lite",
			Name:          "Gemini 2.5 Flash Lite",
			Provider:      "Google",
			ContextLength: "1M",
			Pricing:       "$0.10 / 1M tokens",
			Description:   "Latest Gemini, fast and efficient",
		},
		{
			ID:            "openai/gpt-4o-mini",
			Name:          "GPT-4 Omni Mini",
			Provider:      "OpenAI",
			ContextLength: "128k",
			Pricing:       "$0.15 / 1M tokens",
			Description:   "Fast, affordable, high quality",
		},
		{
			ID:            "anthropic/claude-3.5-haiku",
			Name:          "Claude 3.5 Haiku",
			Provider:      "Anthropic",
			ContextLength: "200k",
			Pricing:       "$0.80 / 1M tokens",
			Description:   "Quick responses, excellent accuracy",
		},
	},
	Free: []Model{
		{
			ID:            "deepseek/deepseek-r1:free",
			Name:          "DeepSeek R1 (Free)",
			Provider:      "DeepSeek",
			ContextLength: "64k",
			Pricing:       "FREE",
			Description:   "Advanced reasoning model, completely free",
		},
		{
			ID:            "mistralai/mistral-nemo:free",
			Name:          "Mistral Nemo (Free)",
			Provider:      "Mistral AI",
			ContextLength: "128k",
			Pricing:       "FREE",
			Description:   "Efficient open-source model, free tier",
		},
	},
}
