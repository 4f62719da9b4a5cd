package db

import (
	"fmt"
	"net/url"
	"strings"
)

// describeURI extracts the first host and the database name from a
// connection string. Both mongodb:// and mongodb+srv:// are accepted, as is a
// comma separated seed list, which net/url cannot parse as a single host.
func describeURI(raw string) (host, name string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("empty connection uri")
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return "", "", fmt.Errorf("connection uri must include a scheme")
	}

	authority, path, _ := strings.Cut(rest, "/")
	path, _, _ = strings.Cut(path, "?")
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		authority = authority[at+1:]
	}
	if authority == "" {
		return "", "", fmt.Errorf("connection uri has no host")
	}

	host, _, _ = strings.Cut(authority, ",")
	if h, _, found := strings.Cut(host, ":"); found && !strings.HasPrefix(host, "[") {
		host = h
	} else if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			host = host[1:end]
		}
	}

	name, err = url.PathUnescape(path)
	if err != nil {
		return "", "", fmt.Errorf("invalid database name: %w", err)
	}
	return host, name, nil
}
