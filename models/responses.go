package models

// APIResponse is the common JSON envelope for simple success/failure answers.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Pagination describes one page of an administrator listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Stats is the administrator dashboard summary.
type Stats struct {
	TotalUsers        int    `json:"totalUsers"`
	TotalInviteCodes  int    `json:"totalInviteCodes"`
	ActiveInviteCodes int    `json:"activeInviteCodes"`
	UsedInviteCodes   int    `json:"usedInviteCodes"`
	TotalServers      int    `json:"totalServers"`
	ActiveServers     int    `json:"activeServers"`
	RecentUsers       []User `json:"recentUsers"`
}
