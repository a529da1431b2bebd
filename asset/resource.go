// Package asset opens the external inputs of a render (scene files, height
// maps and tile images) from local paths or http(s) URLs.
package asset

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/pkg/errors"
)

var logger = log.New("asset")

var (
	ErrUnsupportedScheme = errors.New("asset: unsupported scheme")
	ErrFetch             = errors.New("asset: fetch failed")
)

// A Resource is a streamable local file or remote document. Callers must
// Close it.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Path returns the location the resource was opened from.
func (r *Resource) Path() string {
	return r.url.String()
}

// Name returns the last element of the resource path.
func (r *Resource) Name() string {
	return filepath.Base(r.url.Path)
}

// IsRemote reports whether the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open opens a resource. A path without a scheme is resolved against the
// directory of relTo when relTo is not nil, so files referenced from a
// remote scene are fetched from the same server.
func Open(pathToResource string, relTo *Resource) (*Resource, error) {
	loc, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, errors.Wrapf(err, "asset: invalid location %q", pathToResource)
	}

	if loc.Scheme == "" && relTo != nil {
		rel := loc.Path
		loc, _ = url.Parse(relTo.url.String())
		prefix := loc.Path
		if loc.Scheme == "" {
			prefix, err = filepath.Abs(relTo.url.String())
			if err != nil {
				return nil, errors.Wrapf(err, "asset: could not detect abs path for %s", relTo.url.String())
			}
		}
		loc.Path = filepath.Dir(prefix) + "/" + rel
	}

	var reader io.ReadCloser
	switch loc.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(loc.Path))
		if err != nil {
			return nil, err
		}
	case "http", "https":
		logger.Debugf("fetching %s", loc.String())
		resp, err := http.Get(loc.String())
		if err != nil {
			return nil, errors.Wrapf(ErrFetch, "%s: %s", loc.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, errors.Wrapf(ErrFetch, "%s: status %d", loc.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, errors.Wrapf(ErrUnsupportedScheme, "%q", loc.Scheme)
	}

	return &Resource{ReadCloser: reader, url: loc}, nil
}

// FromStream wraps an in-memory document as a resource named name.
func FromStream(name string, source io.Reader) *Resource {
	loc, _ := url.Parse(name)
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        loc,
	}
}
