package dto

// SetSettingRequest sets a single setting value.
type SetSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

// ImportSettingsRequest replaces settings from a JSON object export.
type ImportSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

// SettingResponse is a single key/value pair.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ImportSettingsResponse reports how many keys were imported.
type ImportSettingsResponse struct {
	Imported int `json:"imported"`
}
