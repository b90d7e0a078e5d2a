package constants

import "strings"

// AllowedExtensions holds the inbox file extensions picked up by the local loader.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
