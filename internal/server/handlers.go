package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"gihan9a/docrepair/internal/utils"
	"gihan9a/docrepair/pkg/docproto"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxDocumentSize bounds request bodies
const maxDocumentSize = 10 << 20

// resolveDocument returns the document path of the request, writing a 400 when it is invalid
func (s *DocumentServer) resolveDocument(w http.ResponseWriter, r *http.Request) (string, bool) {
	resourceID, err := utils.CleanDocumentPath(mux.Vars(r)["path"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return "", false
	}
	return resourceID, true
}

// handleGet serves a document, or opens a subscription stream when asked to
func (s *DocumentServer) handleGet(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := s.resolveDocument(w, r)
	if !ok {
		return
	}

	if !s.fileExists(resourceID) {
		if s.reverseProxy != nil {
			s.logger.Info("Document not found locally, proxying",
				zap.String("document", resourceID),
				zap.String("upstream", s.config.ProxyURL.String()))
			s.proxyRequest(w, r)
			return
		}
		writeError(w, http.StatusNotFound, "document not found", "")
		return
	}

	data, err := os.ReadFile(s.getPathFromResourceID(resourceID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error reading document: %v", err), "")
		return
	}

	hash := utils.CalculateHash(data)
	s.setVersion(resourceID, hash)

	w.Header().Set("Range-Request-Allow-Methods", "PATCH, PUT")
	w.Header().Set("Range-Request-Allow-Units", "json")
	w.Header().Set("Content-Type", contentType(resourceID))

	if r.Header.Get(docproto.HeaderSubscribe) != "true" {
		w.Header().Set(docproto.HeaderVersion, hash)
		w.Header().Set(docproto.HeaderParents, "")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method != http.MethodHead {
			w.Write(data)
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	w.Header().Set("subscribe", "true")
	w.Header().Set("cache-control", "no-cache, no-transform")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(docproto.StatusSubscribed)

	// Send the initial state before registering, so the watcher never writes first
	sub := Subscription{W: w, F: flusher}
	if err := sendFullUpdate(sub, data, hash); err != nil {
		return
	}
	subID := s.AddSubscription(resourceID, w, flusher, data)

	<-r.Context().Done()
	s.RemoveSubscription(resourceID, subID)
}

// handlePut writes a document if the Parents header names its current version.
// A missing document is created when Parents is empty.
func (s *DocumentServer) handlePut(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := s.resolveDocument(w, r)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), "")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, exists, err := s.readCurrent(resourceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if !s.checkParents(w, r, current, exists) {
		return
	}

	version, err := s.writeDocument(resourceID, body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.logWrite(r, resourceID, version)

	w.Header().Set(docproto.HeaderVersion, version)
	if exists {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

// handlePatch applies an RFC 6902 JSON Patch to an existing document
func (s *DocumentServer) handlePatch(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := s.resolveDocument(w, r)
	if !ok {
		return
	}

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType != docproto.ContentTypeJSONPatch {
		writeError(w, http.StatusUnsupportedMediaType, "expected "+docproto.ContentTypeJSONPatch, "")
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), "")
		return
	}
	ops, err := jsonpatch.DecodePatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON patch: %v", err), "")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, exists, err := s.readCurrent(resourceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "document not found", "")
		return
	}
	if !s.checkParents(w, r, current, exists) {
		return
	}

	patched, err := ops.Apply(current)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("error applying patch: %v", err), utils.CalculateHash(current))
		return
	}

	version, err := s.writeDocument(resourceID, patched)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.logWrite(r, resourceID, version)

	w.Header().Set(docproto.HeaderVersion, version)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(patched)
}

// handleDelete removes a document if the Parents header names its current version
func (s *DocumentServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	resourceID, ok := s.resolveDocument(w, r)
	if !ok {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, exists, err := s.readCurrent(resourceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "document not found", "")
		return
	}
	if !s.checkParents(w, r, current, exists) {
		return
	}

	if err := os.Remove(s.getPathFromResourceID(resourceID)); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error deleting document: %v", err), "")
		return
	}
	s.setVersion(resourceID, "")
	s.logWrite(r, resourceID, "")

	w.WriteHeader(http.StatusNoContent)
}

// handleOptions answers preflight requests
func (s *DocumentServer) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD, PUT, PATCH, DELETE, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

// readCurrent reads the document on disk; a missing file is not an error
func (s *DocumentServer) readCurrent(resourceID string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.getPathFromResourceID(resourceID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading document: %w", err)
	}
	return data, true, nil
}

// checkParents compares the Parents header with the current version, writing a
// 409 when they differ
func (s *DocumentServer) checkParents(w http.ResponseWriter, r *http.Request, current []byte, exists bool) bool {
	parents := r.Header.Get(docproto.HeaderParents)
	currentVersion := ""
	if exists {
		currentVersion = utils.CalculateHash(current)
	}
	if parents == currentVersion {
		return true
	}
	writeError(w, http.StatusConflict, "version conflict", currentVersion)
	return false
}

// writeDocument replaces the document atomically and returns its new version
func (s *DocumentServer) writeDocument(resourceID string, data []byte) (string, error) {
	filePath := s.getPathFromResourceID(resourceID)
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("error writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("error writing document: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", fmt.Errorf("error replacing document: %w", err)
	}

	version := utils.CalculateHash(data)
	s.setVersion(resourceID, version)
	return version, nil
}

func (s *DocumentServer) logWrite(r *http.Request, resourceID, version string) {
	s.logger.Info("Document written",
		zap.String("method", r.Method),
		zap.String("document", resourceID),
		zap.String("version", version),
		zap.String("message", r.Header.Get(docproto.HeaderMessage)))
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return body, nil
}

func contentType(resourceID string) string {
	if ct := mime.TypeByExtension(filepath.Ext(resourceID)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func writeError(w http.ResponseWriter, status int, message, version string) {
	w.Header().Set("Content-Type", "application/json")
	if version != "" {
		w.Header().Set(docproto.HeaderVersion, version)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(docproto.ErrorResponse{Error: message, Version: version})
}

// corsMiddleware adds CORS headers to every response
func (s *DocumentServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.config.CORS.AllowOrigins)
		w.Header().Set("Access-Control-Allow-Methods", s.config.CORS.AllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", s.config.CORS.AllowHeaders)
		w.Header().Set("Access-Control-Expose-Headers", docproto.HeaderVersion+", "+docproto.HeaderParents)

		if s.config.CORS.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", s.config.CORS.MaxAge))
		next.ServeHTTP(w, r)
	})
}
