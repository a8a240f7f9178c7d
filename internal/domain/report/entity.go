package report

import "time"

// ID is the identifier assigned by the primary store.
type ID string

// Payload is the parsed model output. Its shape is advisory: keys and value
// types follow whatever the model produced.
type Payload map[string]any

// Report is an analysis owned by exactly one user
type Report struct {
	ID        ID        `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Result    Payload   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Owner is the authenticated user a report belongs to.
type Owner struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
