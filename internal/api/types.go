package api

// TickSetting is one entry of the settings list sent with every tick.
type TickSetting struct {
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  string `json:"default"`
}

// TickRequest is the payload for POST /tick.
type TickRequest struct {
	ChannelID string        `json:"channel_id"`
	ReturnURL string        `json:"return_url"`
	Settings  []TickSetting `json:"settings"`
}

// TickResponse is returned immediately by POST /tick.
type TickResponse struct {
	Status string `json:"status"` // always "accepted"
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// DescriptorResponse is the payload for GET /integration.json.
type DescriptorResponse struct {
	Data Descriptor `json:"data"`
}

// Descriptor advertises the integration and its settings to the host platform.
type Descriptor struct {
	Date                DescriptorDate        `json:"date"`
	Descriptions        DescriptorApp         `json:"descriptions"`
	IntegrationCategory string                `json:"integration_category"`
	IntegrationType     string                `json:"integration_type"`
	IsActive            bool                  `json:"is_active"`
	Output              []DescriptorOutput    `json:"output"`
	KeyFeatures         []string              `json:"key_features"`
	Permissions         map[string]Permission `json:"permissions"`
	Settings            []TickSetting         `json:"settings"`
	TickURL             string                `json:"tick_url"`
}

// DescriptorDate carries the integration's created/updated dates.
type DescriptorDate struct {
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// DescriptorApp describes the application itself.
type DescriptorApp struct {
	AppName         string `json:"app_name"`
	AppDescription  string `json:"app_description"`
	AppLogo         string `json:"app_logo"`
	AppURL          string `json:"app_url"`
	BackgroundColor string `json:"background_color"`
}

// DescriptorOutput is one output channel toggle.
type DescriptorOutput struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// Permission describes one permission the integration requests.
type Permission struct {
	AlwaysOnline bool   `json:"always_online"`
	DisplayName  string `json:"display_name"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
