package cache

import (
	"strconv"
	"strings"
)

// Keyer builds cache keys. Backends never see raw user input, only the
// prefixed hashes a Keyer returns.
type Keyer interface {
	// HTTPKey is used for raw API responses.
	HTTPKey(namespace, key string) string

	// SearchKey is used for a decoded search response.
	SearchKey(query string, topK int) string

	// LayoutKey is used for a laid-out graph.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey is used for a rendered snapshot.
	ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts carries the layout parameters that change the output.
type LayoutKeyOpts struct {
	Params map[string]any `json:"params"`
}

// ArtifactKeyOpts carries the render parameters that change the output.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) SearchKey(query string, topK int) string {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return hashKey("search", q, strconv.Itoa(topK))
}

func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

func (DefaultKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", snapshotHash, opts)
}

var _ Keyer = DefaultKeyer{}
