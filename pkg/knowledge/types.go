package knowledge

import "context"

// Request is a single scored retrieval query sent to the knowledge base.
type Request struct {
	Query               string  `json:"query"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// SourceRecord is the bibliographic metadata attached to a retrieved passage.
// Empty Authors and zero Year mean the backend did not provide them.
type SourceRecord struct {
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"`
	Year    int    `json:"year,omitempty"`
}

// Result is the normalized outcome of a Request. When Error is set the
// request failed and Text and Sources must be ignored.
type Result struct {
	Text    string         `json:"text"`
	Sources []SourceRecord `json:"sources"`
	Error   string         `json:"error,omitempty"`
}

// Failed reports whether the request ended in an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Empty reports whether the result carries no usable answer text.
func (r Result) Empty() bool {
	return r.Failed() || r.Text == ""
}

func failure(msg string) Result {
	return Result{Error: msg}
}

// Sender sends one retrieval request. Implementations never return Go
// errors; failures are reported through Result.Error.
type Sender interface {
	Send(ctx context.Context, req Request) Result
}
