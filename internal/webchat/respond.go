// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"
	headerAllow         = "Allow"

	defaultContentType = "application/octet-stream"
	plainTextType      = "text/plain; charset=utf-8"
)

// contentTypes pins the types the chat bundle relies on so they do not depend
// on the host's mime database.
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".map":   "application/json",
	".txt":   plainTextType,
	".md":    "text/markdown; charset=utf-8",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
}

type (
	// HeaderField is one response header; order is preserved on the wire.
	HeaderField struct {
		Name  string
		Value string
	}

	// ResponseDescriptor is the fully built response for one request.
	// HEAD descriptors share status and headers with GET but carry no body.
	ResponseDescriptor struct {
		Status  int
		Headers []HeaderField
		Body    []byte
	}
)

// Header returns the value of the named header.
func (d ResponseDescriptor) Header(name string) (string, bool) {
	for _, h := range d.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Write serializes the descriptor onto w.
func (d ResponseDescriptor) Write(w http.ResponseWriter) error {
	h := w.Header()
	for _, f := range d.Headers {
		h.Set(f.Name, f.Value)
	}
	w.WriteHeader(d.Status)
	if len(d.Body) == 0 {
		return nil
	}
	_, err := w.Write(d.Body)
	return err
}

// ContentTypeFor returns the Content-Type for a file name by extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return defaultContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}

// Respond builds the response for a resolved file. Content-Length is the
// exact byte count for both GET and HEAD. Any failure to open or read the
// file after it was resolved is reported as 404.
func Respond(method string, file CanonicalFile) ResponseDescriptor {
	if !allowedMethod(method) {
		return methodNotAllowed()
	}

	f, err := openNoFollow(file.Path)
	if err != nil {
		return RespondError(method, notFound("", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return RespondError(method, notFound("", err))
	}
	if file.Info != nil && !os.SameFile(file.Info, info) {
		return RespondError(method, notFound("", errors.New("file replaced after resolution")))
	}

	desc := ResponseDescriptor{Status: http.StatusOK}
	size := info.Size()
	if method == http.MethodGet {
		body, err := io.ReadAll(io.LimitReader(f, size))
		if err != nil {
			return RespondError(method, notFound("", err))
		}
		desc.Body = body
		size = int64(len(body))
	}

	desc.Headers = []HeaderField{
		{Name: headerContentType, Value: ContentTypeFor(file.Path)},
		{Name: headerContentLength, Value: strconv.FormatInt(size, 10)},
	}
	return desc
}

// RespondError translates a resolver or I/O error into a response.
// Traversal becomes 403, everything else 404. Bodies never mention
// filesystem locations.
func RespondError(method string, err error) ResponseDescriptor {
	status := http.StatusNotFound
	if errors.Is(err, ErrTraversal) {
		status = http.StatusForbidden
	}
	return plainResponse(method, status, strings.ToLower(http.StatusText(status))+"\n")
}

func methodNotAllowed() ResponseDescriptor {
	desc := plainResponse(http.MethodGet, http.StatusMethodNotAllowed, "")
	desc.Headers = append(desc.Headers, HeaderField{Name: headerAllow, Value: "GET, HEAD"})
	return desc
}

func plainResponse(method string, status int, body string) ResponseDescriptor {
	desc := ResponseDescriptor{
		Status: status,
		Headers: []HeaderField{
			{Name: headerContentType, Value: plainTextType},
			{Name: headerContentLength, Value: strconv.Itoa(len(body))},
		},
	}
	if method != http.MethodHead && body != "" {
		desc.Body = []byte(body)
	}
	return desc
}

func allowedMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
