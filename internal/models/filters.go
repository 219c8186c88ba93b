package models

// PatternQuery represents query parameters of the anomaly and prediction endpoints
type PatternQuery struct {
	MinConfidence float64 `form:"minConfidence"` // 0-1, defaults to pipeline.pattern_min_confidence
}

// AnchorFilter represents filter parameters for listing anchors
type AnchorFilter struct {
	Category   string `form:"category"`
	Provenance string `form:"provenance"` // user-confirmed, inferred, external-lookup
	Limit      int    `form:"limit"`
}
