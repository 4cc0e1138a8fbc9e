package models

// Asset is one catalog entry from the tenant's assets service (e.g., a
// property listing or product sheet). Ranked locally by keyword overlap.
type Asset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Remark  string `json:"remark,omitempty"`
	URL     string `json:"url,omitempty"`
}
