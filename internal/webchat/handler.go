// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

type (
	// RequestContext is what the server derives from one inbound request.
	// ResolvedPath is empty unless the resolver accepted the request.
	RequestContext struct {
		Method       string
		RawPath      string
		ResolvedPath string
	}

	// fileHandler routes every request through the resolver and responder.
	// It deliberately does not use http.ServeMux: the mux would clean ".."
	// segments and redirect instead of letting the resolver reject them.
	fileHandler struct {
		resolver *Resolver
		logger   *log.Logger
	}
)

// NewHandler returns an http.Handler serving files below resolver's root.
func NewHandler(resolver *Resolver, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &fileHandler{resolver: resolver, logger: logger}
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := RequestContext{Method: r.Method, RawPath: r.URL.EscapedPath()}
	logger := h.logger.With("id", uuid.NewString())
	desc := h.handle(&rc)

	if err := desc.Write(w); err != nil {
		logger.Debug("write response", "error", err, "path", rc.RawPath)
	}
	logger.Debug("request",
		"method", rc.Method,
		"path", rc.RawPath,
		"status", desc.Status,
	)
}

// handle checks the method first so unsupported methods never touch the
// filesystem.
func (h *fileHandler) handle(rc *RequestContext) ResponseDescriptor {
	if !allowedMethod(rc.Method) {
		return methodNotAllowed()
	}

	file, err := h.resolver.Resolve(rc.RawPath)
	if err != nil {
		return RespondError(rc.Method, err)
	}
	rc.ResolvedPath = file.Path

	return Respond(rc.Method, file)
}
