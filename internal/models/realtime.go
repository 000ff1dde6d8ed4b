package models

// Live feed event types.
const (
	EventComplaintCreated = "complaint_created"
	EventComplaintUpdated = "complaint_updated"
)

// FeedEvent is pushed to officials' dashboards when a complaint changes.
type FeedEvent struct {
	Type      string     `json:"type"`
	Complaint *Complaint `json:"complaint"`
}

// Identity is the authenticated user behind a request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsOfficial reports whether the identity may use the officials' dashboard.
func (i *Identity) IsOfficial() bool {
	return i != nil && (i.Role == RoleOfficial || i.Role == RoleAdmin)
}
