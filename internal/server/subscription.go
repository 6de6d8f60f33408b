package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gihan9a/docrepair/internal/utils"

	"github.com/wI2L/jsondiff"
	"go.uber.org/zap"
)

// AddSubscription adds a new subscription for a document
func (s *DocumentServer) AddSubscription(resourceID string, w http.ResponseWriter, f http.Flusher, initialResource []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	subID := utils.GenerateRandomID()
	hash := utils.CalculateHash(initialResource)

	if _, exists := s.subscriptions[resourceID]; !exists {
		s.subscriptions[resourceID] = make(map[string]Subscription)
	}

	s.subscriptions[resourceID][subID] = Subscription{
		ID:           subID,
		W:            w,
		F:            f,
		LastResource: initialResource,
		LastHash:     hash,
	}

	s.logger.Info("Added subscription", zap.String("subscription", subID), zap.String("document", resourceID))
	return subID
}

// RemoveSubscription removes a subscription
func (s *DocumentServer) RemoveSubscription(resourceID, subID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subs, exists := s.subscriptions[resourceID]; exists {
		delete(subs, subID)
		s.logger.Info("Removed subscription", zap.String("subscription", subID), zap.String("document", resourceID))

		// Drop the document entry once nobody listens
		if len(subs) == 0 {
			delete(s.subscriptions, resourceID)
		}
	}
}

// notifySubscribers sends an update to all subscribers of a document
func (s *DocumentServer) notifySubscribers(resourceID string, newData []byte) {
	// Copy the subscribers so writes happen without holding the lock
	s.mu.RLock()
	subs := make(map[string]Subscription, len(s.subscriptions[resourceID]))
	for id, sub := range s.subscriptions[resourceID] {
		subs[id] = sub
	}
	s.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	newHash := utils.CalculateHash(newData)
	s.logger.Debug("Notifying subscribers", zap.Int("count", len(subs)), zap.String("document", resourceID))

	for subID, sub := range subs {
		if sub.LastHash == newHash {
			continue
		}

		// First update is the full document, later ones a patch when possible
		var err error
		if len(sub.LastResource) == 0 {
			err = sendFullUpdate(sub, newData, newHash)
		} else if err = sendPatchUpdate(sub, newData, newHash); err != nil {
			s.logger.Debug("Patch update not possible, sending full update",
				zap.String("document", resourceID), zap.Error(err))
			err = sendFullUpdate(sub, newData, newHash)
		}
		if err != nil {
			s.logger.Warn("Failed to send update", zap.String("subscription", subID), zap.Error(err))
			continue
		}

		// Remember what this subscriber has seen
		s.mu.Lock()
		if subscriptions, exists := s.subscriptions[resourceID]; exists {
			if subscription, exists := subscriptions[subID]; exists {
				subscription.LastResource = make([]byte, len(newData))
				copy(subscription.LastResource, newData)
				subscription.LastHash = newHash
				subscriptions[subID] = subscription
			}
		}
		s.mu.Unlock()
	}
}

// sendFullUpdate sends a full document to a subscriber
func sendFullUpdate(sub Subscription, data []byte, hash string) error {
	// Write headers
	fmt.Fprintf(sub.W, "Version: %s\r\n", hash)
	fmt.Fprintf(sub.W, "Parents: \r\n")
	fmt.Fprintf(sub.W, "Content-Length: %d\r\n", len(data))
	fmt.Fprintf(sub.W, "\r\n")

	// Write body
	if _, err := sub.W.Write(data); err != nil {
		return err
	}

	// Separator for the subscription stream
	fmt.Fprintf(sub.W, "\r\n\r\n\r\n\r\n\r\n")
	sub.F.Flush()
	return nil
}

// sendPatchUpdate sends the JSON Patch between the subscriber's last state and
// the new one. It fails for documents that are not JSON.
func sendPatchUpdate(sub Subscription, newData []byte, newHash string) error {
	// Calculate patch
	patchOperations, err := jsondiff.CompareJSON(sub.LastResource, newData)
	if err != nil {
		return err
	}

	if len(patchOperations) == 0 {
		return nil
	}

	// Write headers
	fmt.Fprintf(sub.W, "Version: %s\r\n", newHash)
	fmt.Fprintf(sub.W, "Parents: %s\r\n", sub.LastHash)

	if len(patchOperations) > 1 {
		fmt.Fprintf(sub.W, "Patches: %d\r\n\r\n", len(patchOperations))
	}

	// Write each patch
	for i, op := range patchOperations {
		if i > 0 {
			fmt.Fprintf(sub.W, "\r\n\r\n")
		}

		valueJSON, err := json.Marshal(op.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(sub.W, "Content-Length: %d\r\n", len(valueJSON))
		fmt.Fprintf(sub.W, "Content-Range: %s %s\r\n", op.Type, op.Path)
		fmt.Fprintf(sub.W, "\r\n")
		sub.W.Write(valueJSON)
	}

	fmt.Fprintf(sub.W, "\r\n\r\n\r\n\r\n\r\n")
	sub.F.Flush()
	return nil
}
