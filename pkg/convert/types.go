package convert

// EngineKind identifies a PDF-to-Word conversion engine
type EngineKind string

const (
	// EngineStandard is the local LibreOffice-based converter
	EngineStandard EngineKind = "standard"

	// EngineHighQuality is the remote Gotenberg-based converter
	EngineHighQuality EngineKind = "high_quality"
)

// Valid reports whether k names a known engine
func (k EngineKind) Valid() bool {
	return k == EngineStandard || k == EngineHighQuality
}

// Operation names, used for stats bucketing and request dispatch
const (
	OpConvert   = "convert"
	OpToImage   = "pdf_to_image"
	OpFromImage = "image_to_pdf"
	OpMerge     = "merge_pdf"
	OpCompress  = "compress_pdf"
)

// ConvertResponse is returned by the conversion endpoints
type ConvertResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Filename       string `json:"filename,omitempty"`
	EngineUsed     string `json:"engine_used,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	Cached         bool   `json:"cached"`
	ProcessingTime string `json:"processing_time,omitempty"`
	Error          string `json:"error,omitempty"`
}

// StatsResponse is returned by GET /stats
type StatsResponse struct {
	TotalConversions      int64            `json:"total_conversions"`
	SuccessfulConversions int64            `json:"successful_conversions"`
	FailedConversions     int64            `json:"failed_conversions"`
	AverageProcessingMS   float64          `json:"average_processing_ms"`
	OperationUsage        map[string]int64 `json:"operation_usage"`
	CacheAvailable        bool             `json:"cache_available"`
	Uptime                string           `json:"uptime"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string          `json:"status"`
	Engines map[string]bool `json:"engines"`
}
