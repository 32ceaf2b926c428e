package domain

// Document is one unit of ingestable text. Path points at the on-disk
// transcript when the document came from the scraper; Content carries
// the text directly when it did not.
type Document struct {
	ID      string `json:"id"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}

// StoreHandle identifies a retrieval store on the backend.
type StoreHandle struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// GenerateResult is the raw outcome of one grounded generation call.
// Token counts are zero when the backend did not report usage; callers
// must treat the derived cost as an underestimate rather than fail.
type GenerateResult struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
	Citations    []string
}

// EstimateTokens approximates billable units for a span of text as
// byte length divided by four. Natural-language transcripts average
// about four bytes per token, and indexing is billed coarsely enough
// that an exact tokenizer buys nothing.
func EstimateTokens(byteLen int64) int64 {
	return byteLen / 4
}
