package auth

import "strings"

// openPaths bypass the gate entirely. Keep this list explicit.
var openPaths = map[string]struct{}{
	"/signin.html":     {},
	"/api/auth/login":  {},
	"/api/auth/logout": {},
	"/api/auth/me":     {},
	"/favicon.ico":     {},
	"/health":          {},
	"/metrics":         {},
}

const assetsPrefix = "/assets/"

// IsOpen reports whether path is served without authentication.
func IsOpen(path string) bool {
	if _, ok := openPaths[path]; ok {
		return true
	}
	return strings.HasPrefix(path, assetsPrefix)
}

// OpenPaths returns the exact open paths, for documentation and tests.
func OpenPaths() []string {
	paths := make([]string, 0, len(openPaths))
	for p := range openPaths {
		paths = append(paths, p)
	}
	return paths
}
