package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gihan9a/docrepair/internal/config"
	"gihan9a/docrepair/internal/utils"
	"gihan9a/docrepair/pkg/docproto"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// tempPrefix marks files written by the server before they are renamed into place
const tempPrefix = ".docstore-"

// Subscription represents a client subscription to document changes
type Subscription struct {
	ID           string
	W            http.ResponseWriter
	F            http.Flusher
	LastResource []byte // Last document state sent, used to calculate patches
	LastHash     string // Version of LastResource
}

// DocumentServer serves the documents under a root directory with version
// tokens, conditional writes and change subscriptions
type DocumentServer struct {
	config        *config.Config
	logger        *zap.Logger
	subscriptions map[string]map[string]Subscription
	versions      map[string]string // Last version known per document
	reverseProxy  *httputil.ReverseProxy
	mu            sync.RWMutex // Guards subscriptions and versions
	writeMu       sync.Mutex   // Serialises version checks with the writes they guard
	watcher       *fsnotify.Watcher
}

// NewDocumentServer creates a new DocumentServer
func NewDocumentServer(cfg *config.Config, logger *zap.Logger) (*DocumentServer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	server := &DocumentServer{
		config:        cfg,
		logger:        logger,
		subscriptions: make(map[string]map[string]Subscription),
		versions:      make(map[string]string),
		watcher:       watcher,
	}

	if cfg.ProxyURL != nil {
		server.setupProxy()
	}

	go server.watchFiles()

	return server, nil
}

// Close cleans up resources used by the server
func (s *DocumentServer) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

// SetupWatchers recursively adds directories under the root to the watcher
func (s *DocumentServer) SetupWatchers() error {
	return filepath.Walk(s.config.RootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return s.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles picks up document changes made on disk and sends them to subscribers.
// Writes made through the API reach subscribers the same way.
func (s *DocumentServer) watchFiles() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleFileEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (s *DocumentServer) handleFileEvent(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), tempPrefix) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if err := s.watcher.Add(event.Name); err != nil {
			s.logger.Error("Failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
		}
		return
	}

	resourceID, err := s.getResourceIDFromPath(event.Name)
	if err != nil {
		s.logger.Error("Error determining document path", zap.Error(err))
		return
	}

	data, err := os.ReadFile(event.Name)
	if err != nil {
		s.logger.Error("Error reading file", zap.String("file", event.Name), zap.Error(err))
		return
	}

	hash := utils.CalculateHash(data)
	if previous := s.setVersion(resourceID, hash); previous != hash {
		s.logger.Info("Document changed on disk",
			zap.String("document", resourceID),
			zap.String("version", hash))
	}

	s.notifySubscribers(resourceID, data)
}

// setVersion records the version of a document and returns the previous one
func (s *DocumentServer) setVersion(resourceID, version string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.versions[resourceID]
	if version == "" {
		delete(s.versions, resourceID)
	} else {
		s.versions[resourceID] = version
	}
	return previous
}

// getResourceIDFromPath converts a file path to a document path
func (s *DocumentServer) getResourceIDFromPath(path string) (string, error) {
	relPath, err := filepath.Rel(s.config.RootDir, path)
	if err != nil {
		return "", err
	}
	return utils.CleanDocumentPath(filepath.ToSlash(relPath))
}

// getPathFromResourceID converts a document path to a file path
func (s *DocumentServer) getPathFromResourceID(resourceID string) string {
	return filepath.Join(s.config.RootDir, filepath.FromSlash(resourceID))
}

// fileExists checks if a regular file exists for the given document
func (s *DocumentServer) fileExists(resourceID string) bool {
	info, err := os.Stat(s.getPathFromResourceID(resourceID))
	return err == nil && !info.IsDir()
}

// SetupRoutes configures the HTTP routes for the server
func (s *DocumentServer) SetupRoutes() http.Handler {
	router := mux.NewRouter()
	documents := docproto.DocumentsPrefix + "{path:.+}"

	router.HandleFunc(documents, s.handleGet).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc(documents, s.handlePut).Methods(http.MethodPut)
	router.HandleFunc(documents, s.handlePatch).Methods(http.MethodPatch)
	router.HandleFunc(documents, s.handleDelete).Methods(http.MethodDelete)
	router.HandleFunc(documents, s.handleOptions).Methods(http.MethodOptions)

	if s.config.CORS.Enabled {
		router.Use(s.corsMiddleware)
	}
	return router
}
