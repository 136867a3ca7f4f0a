package models

// PageRequest carries pagination parameters through to the store unchanged.
type PageRequest struct {
	Page int    // zero-based page index
	Size int    // page size, capped by the store
	Sort string // optional sort column, store-validated
}

// CardPage is one page of cards plus paging metadata.
type CardPage struct {
	Content       []*Card `json:"content"`
	Page          int     `json:"page"`
	Size          int     `json:"size"`
	TotalElements int64   `json:"total_elements"`
	TotalPages    int     `json:"total_pages"`
}

// CardResponsePage is the API representation of a card page.
type CardResponsePage struct {
	Content       []*CardResponse `json:"content"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
	TotalElements int64           `json:"total_elements"`
	TotalPages    int             `json:"total_pages"`
}

// NewCardResponsePage maps a card page to its API representation.
func NewCardResponsePage(p *CardPage) *CardResponsePage {
	content := make([]*CardResponse, 0, len(p.Content))
	for _, c := range p.Content {
		content = append(content, NewCardResponse(c))
	}
	return &CardResponsePage{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
