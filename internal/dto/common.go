package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// UpgradeRequiredResponse is returned with 403 when a free-tier user calls a
// pro-only action.
type UpgradeRequiredResponse struct {
	Error       bool   `json:"error"`
	Message     string `json:"message"`
	RequiresPro bool   `json:"requires_pro"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Queue     string `json:"queue"`
}
