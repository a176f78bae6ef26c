package models

// Result is one ranked candidate. Weight is the clipped similarity normalized
// so that the weights of one response sum to 1, or 0 when no candidate scored
// above zero. It is not a raw cosine similarity.
type Result struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
}

// SimilarResponse is the response for a similarity request.
type SimilarResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	// Candidates is the number of distinct candidate keys considered.
	Candidates int   `json:"candidates"`
	QueryTime  int64 `json:"query_time_ms"`
}

// WarmResponse reports what a warm-up request did.
type WarmResponse struct {
	Requested int   `json:"requested"`
	Missing   int   `json:"missing"`
	Embedded  int   `json:"embedded"`
	Failed    int   `json:"failed"`
	Appended  int   `json:"appended"`
	Took      int64 `json:"took_ms"`
}

// StatusResponse describes the state of the embedding store.
type StatusResponse struct {
	Images         int            `json:"images"`
	Dimensions     int            `json:"dimensions"`
	ArrayPath      string         `json:"array_path"`
	KeysPath       string         `json:"keys_path"`
	DiskUsageBytes int64          `json:"disk_usage_bytes"`
	Events         map[string]int `json:"events,omitempty"`
}
