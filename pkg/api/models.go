package api

type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

// JobResponse is returned when a request misses the cache and is queued.
type JobResponse struct {
	Message   string `json:"message"`
	RequestId string `json:"request_id"`
}

// TranslationResponse is returned when a request is served synchronously
// from the content cache.
type TranslationResponse struct {
	Message   string `json:"message"`
	Result    string `json:"result"`
	FromCache bool   `json:"from_cache"`
}

type Result struct {
	Status string  `json:"status"`
	Result *string `json:"result"`
}

// ResultQuery holds the optional query params accepted by the result
// endpoint. Keep suppresses record reclamation on terminal reads so the
// same result can be polled again.
type ResultQuery struct {
	Keep bool `schema:"keep"`
}

type HealthResponse struct {
	ApiStatus   string `json:"api_status"`
	StoreStatus string `json:"store_status"`
}
