package types

// PageInfo contains pagination metadata for list responses.
type PageInfo struct {
	HasMore    bool `json:"has_more"`
	TotalItems *int `json:"total_items,omitempty"`
}
