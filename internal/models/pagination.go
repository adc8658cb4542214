package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 1000
)

type Pagination struct {
	Limit int `json:"limit" query:"limit"`
	Page  int `json:"page" query:"page"`
}

// Normalize clamps the limit to [1, MaxPageLimit] and pages to 1-based.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FeedbackPage mirrors the paginated listing shape of the booking API.
type FeedbackPage struct {
	Docs       []SessionFeedback `json:"docs"`
	TotalDocs  int64             `json:"totalDocs"`
	Limit      int               `json:"limit"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
}
