package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/health-triage-server/internal/domain"
	"github.com/health-triage-server/internal/middleware"
)

const defaultNotificationLimit = 50

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the auth proxy fronts this
	// endpoint like every other.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleListNotifications returns the user's notifications, broadcasts
// included, newest first.
func (s *Server) handleListNotifications(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	unreadOnly := c.Query("unread_only") == "true"
	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	items, err := s.deps.Notifications.ListVisible(c.Request.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if items == nil {
		items = []*domain.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "count": len(items)})
}

// handleNotificationStats returns the unread counter for the badge.
func (s *Server) handleNotificationStats(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	unread, err := s.deps.Notifications.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": unread})
}

// handleMarkRead marks one owned notification as read.
func (s *Server) handleMarkRead(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if err := s.deps.Notifications.MarkRead(c.Request.Context(), user.ID, id); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// handleMarkAllRead marks every owned notification as read.
func (s *Server) handleMarkAllRead(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	marked, err := s.deps.Notifications.MarkAllRead(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_read": marked})
}

// handleDeleteNotification deletes an owned notification. Broadcasts are
// not owned by anyone and come back 404.
func (s *Server) handleDeleteNotification(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	if err := s.deps.Notifications.DeleteOwned(c.Request.Context(), user.ID, id); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// handlePersonalizedNotification generates an AI notification from the
// user's history and pushes it to any open streams.
func (s *Server) handlePersonalizedNotification(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	lang := domain.ParseLanguage(c.Query("lang"))

	n, err := s.deps.Notifier.GenerateForUser(c.Request.Context(), user, lang)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.hub.publish(n)
	c.JSON(http.StatusCreated, n)
}

// handleNotificationStream upgrades to a websocket and pushes new
// notifications as they are created.
func (s *Server) handleNotificationStream(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.deps.Logger.WithError(err).Debug("Stream upgrade failed")
		return
	}

	sc := s.hub.register(user.ID, conn)
	defer func() {
		s.hub.unregister(sc)
		conn.Close()
	}()

	// Clients only listen; the read loop exists to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
