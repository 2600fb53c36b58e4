package local

import (
	"fmt"
	"net/url"
	"strings"
)

// Backend is where the devices document is stored
type Backend string

const (
	BackendFile      Backend = "file"
	BackendS3        Backend = "s3"
	BackendGCS       Backend = "gs"
	BackendAzure     Backend = "azblob"
	BackendConfigMap Backend = "configmap"
)

// Location is a parsed local.path
type Location struct {
	Backend Backend
	// Host is the bucket, storage account or namespace
	Host string
	// Path is the object key, container/blob or name/key
	Path   string
	Region string
	Raw    string
}

// ParseLocation interprets path as a plain file or one of
// s3://bucket/key?region=, gs://bucket/object,
// azblob://account/container/blob, configmap://namespace/name/key.
func ParseLocation(path string) (Location, error) {
	if !strings.Contains(path, "://") {
		if strings.TrimSpace(path) == "" {
			return Location{}, fmt.Errorf("local inventory path is empty")
		}
		return Location{Backend: BackendFile, Path: path, Raw: path}, nil
	}

	u, err := url.Parse(path)
	if err != nil {
		return Location{}, fmt.Errorf("invalid inventory location: %w", err)
	}

	loc := Location{
		Host: u.Host,
		Path: strings.TrimPrefix(u.Path, "/"),
		Raw:  path,
	}

	switch u.Scheme {
	case "s3":
		loc.Backend = BackendS3
		loc.Region = u.Query().Get("region")
	case "gs", "gcs":
		loc.Backend = BackendGCS
	case "azblob", "azurerm":
		loc.Backend = BackendAzure
		if strings.Count(loc.Path, "/") < 1 {
			return Location{}, fmt.Errorf("azure location needs account/container/blob, got %q", path)
		}
	case "configmap":
		loc.Backend = BackendConfigMap
		if strings.Count(loc.Path, "/") != 1 {
			return Location{}, fmt.Errorf("configmap location needs namespace/name/key, got %q", path)
		}
	default:
		return Location{}, fmt.Errorf("unsupported inventory scheme: %s", u.Scheme)
	}

	if loc.Host == "" || loc.Path == "" {
		return Location{}, fmt.Errorf("incomplete inventory location %q", path)
	}
	return loc, nil
}

// split returns the first path segment and the rest
func (l Location) split() (string, string) {
	parts := strings.SplitN(l.Path, "/", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
