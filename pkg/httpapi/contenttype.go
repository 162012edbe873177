package httpapi

import "strings"

const defaultContentType = "text/plain; charset=utf-8"

// contentTypes maps lowercased file extensions to MIME types. Anything
// not listed here is served as plain text.
var contentTypes = map[string]string{
	"md":       "text/markdown; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
	"json":     "application/json",
	"yaml":     "text/yaml; charset=utf-8",
	"yml":      "text/yaml; charset=utf-8",
	"txt":      "text/plain; charset=utf-8",
	"py":       "text/x-python; charset=utf-8",
	"js":       "text/javascript; charset=utf-8",
	"ts":       "text/typescript; charset=utf-8",
	"sh":       "text/x-shellscript; charset=utf-8",
	"bash":     "text/x-shellscript; charset=utf-8",
	"html":     "text/html; charset=utf-8",
	"css":      "text/css; charset=utf-8",
	"xml":      "text/xml; charset=utf-8",
}

// ContentTypeFor resolves the response content type for a file path from
// its extension alone. It never inspects content.
func ContentTypeFor(path string) string {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot == len(path)-1 {
		return defaultContentType
	}
	if ct, ok := contentTypes[strings.ToLower(path[dot+1:])]; ok {
		return ct
	}
	return defaultContentType
}
