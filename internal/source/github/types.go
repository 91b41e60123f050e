package github

import "time"

// Release is the subset of a GitHub release the runner installer needs
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a downloadable file attached to a release
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	ContentType        string `json:"content_type"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// apiError is GitHub's JSON error body
type apiError struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}
