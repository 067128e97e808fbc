// Package sse provides Server-Sent Events support for real-time pipeline
// notifications. Streams are scoped three ways: tenant-wide, per role, and
// per lead room (clients watching one deal).
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"dealflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventLeadScored        EventType = "lead_scored"
	EventLeadRouted        EventType = "lead_routed"
	EventRoutingOverridden EventType = "routing_overridden"
	EventHandoffSent       EventType = "handoff_sent"
	EventHandoffBounced    EventType = "handoff_bounced"
	EventCloserAction      EventType = "closer_action"
)

// Event represents an SSE event payload. Data carries either
// {leadId, lead} or {leadId, lead, handoffSummary, missingFields}.
type Event struct {
	Type   EventType `json:"type"`
	LeadID uuid.UUID `json:"leadId,omitempty"`
	Data   any       `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID   uuid.UUID
	tenantID uuid.UUID
	roles    map[string]bool
	leadRoom uuid.UUID // optional single-lead subscription
	events   chan Event
}

// Service manages SSE connections and event broadcasting.
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.events)
	}
}

func (s *Service) broadcast(event Event, match func(*client) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if !match(c) {
			continue
		}
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse event buffer full, dropping event",
				"user_id", c.userID.String(), "event_type", string(event.Type))
		}
	}
}

// PublishToTenant broadcasts an event to every connected client of a tenant.
func (s *Service) PublishToTenant(tenantID uuid.UUID, event Event) {
	s.broadcast(event, func(c *client) bool {
		return c.tenantID == tenantID
	})
}

// PublishToRole broadcasts an event to a tenant's clients holding the role.
func (s *Service) PublishToRole(tenantID uuid.UUID, role string, event Event) {
	s.broadcast(event, func(c *client) bool {
		return c.tenantID == tenantID && c.roles[role]
	})
}

// PublishToLeadRoom broadcasts an event to clients watching one lead.
func (s *Service) PublishToLeadRoom(tenantID, leadID uuid.UUID, event Event) {
	s.broadcast(event, func(c *client) bool {
		return c.tenantID == tenantID && c.leadRoom == leadID
	})
}

// Handler returns a Gin handler for SSE connections. An optional leadId query
// parameter joins the client to that lead's room.
func (s *Service) Handler(getUser func(*gin.Context) (userID, tenantID uuid.UUID, roles []string, ok bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, tenantID, roles, ok := getUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var leadRoom uuid.UUID
		if raw := c.Query("leadId"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "leadId must be a UUID"})
				return
			}
			leadRoom = parsed
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		roleSet := make(map[string]bool, len(roles))
		for _, role := range roles {
			roleSet[role] = true
		}

		cl := &client{
			userID:   userID,
			tenantID: tenantID,
			roles:    roleSet,
			leadRoom: leadRoom,
			events:   make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID, "tenantId": tenantID})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		close(c.events)
	}
	s.clients = make(map[*client]struct{})
}
