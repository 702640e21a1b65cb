package types

// ImageInfo holds the metadata and fingerprint stored for one indexed image
type ImageInfo struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	SourcePrefix string `json:"source_prefix"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ModifiedAt   string `json:"modified_at"`
	Size         int64  `json:"size"`
	DHash        uint64 `json:"dhash"`
	IsRawFormat  bool   `json:"is_raw_format"`
}

// SearchResult is one resolved match: an image path together with the
// Hamming distance of its fingerprint from the query image's fingerprint
type SearchResult struct {
	Path         string
	SourcePrefix string
	Distance     int
	Hash         uint64
}
