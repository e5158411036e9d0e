package models

// IngestURLRequest asks the server to fetch and ingest a document by URL.
type IngestURLRequest struct {
	URL string `json:"url"`
}

// IngestResponse reports a successful ingestion.
type IngestResponse struct {
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

// QueryRequest asks one or more questions against an ingested document.
type QueryRequest struct {
	DocID     string   `json:"doc_id"`
	Questions []string `json:"questions"`
	TopK      int      `json:"top_k,omitempty"`
}

// RunRequest ingests a document by URL and answers questions in one call.
type RunRequest struct {
	DocumentURL string   `json:"document_url"`
	Questions   []string `json:"questions"`
}

// QueryResponse carries one answer per question, in input order.
type QueryResponse struct {
	DocID   string   `json:"doc_id"`
	Answers []string `json:"answers"`
}

// ErrorResponse is the structured error payload for every failure.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
