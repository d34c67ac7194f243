package model

// AssetRef is an image referenced from a template.
type AssetRef struct {
	// Path is the src or data-src value as written in the template.
	Path string `json:"path"`

	// Fetched is true when the asset was downloaded for inspection.
	Fetched bool `json:"fetched"`

	Size   int    `json:"size,omitempty"`
	Digest string `json:"digest,omitempty"`

	// Exif holds selected EXIF tags of JPEG/TIFF assets.
	Exif map[string]string `json:"exif,omitempty"`
}

// FetchStats summarizes the remote fetches of a crawl run.
type FetchStats struct {
	// Requests is keyed by "<kind>/<outcome>", e.g. "json/ok" or "text/not_found".
	Requests map[string]int `json:"requests"`

	// Total is the number of remote requests issued.
	Total int `json:"total"`

	// CacheHits is the number of JSON lookups served from the run memo.
	CacheHits int `json:"cacheHits"`

	// Components is the number of components analyzed.
	Components int `json:"components"`
}
