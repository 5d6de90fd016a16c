package config

import (
	"net/url"
	"strings"
)

const (
	ContentPath = "/api/content"
	ContactPath = "/api/contact"
)

type Endpoints struct {
	APIBase        string
	HasAPIBase     bool
	IsSnapshotMode bool
}

// ResolveEndpoints picks the API origin: an explicit override wins, then the
// local API when the site itself is served from localhost, otherwise none
// (snapshot mode).
func ResolveEndpoints(override, publicURL, localAPIBase string) Endpoints {
	base := strings.TrimSpace(override)
	if base == "" && isLocalHost(publicURL) {
		base = strings.TrimSpace(localAPIBase)
	}
	base = strings.TrimSuffix(base, "/")

	return Endpoints{
		APIBase:        base,
		HasAPIBase:     base != "",
		IsSnapshotMode: base == "",
	}
}

// APIURL joins the API base with path. Without a base the bare path is
// returned.
func (e Endpoints) APIURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.APIBase + path
}

func isLocalHost(raw string) bool {
	if raw == "" {
		return false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
		return true
	}
	return false
}
