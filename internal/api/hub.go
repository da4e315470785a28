package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/health-triage-server/internal/domain"
)

const writeWait = 10 * time.Second

// streamConn pairs a websocket connection with a write lock. gorilla
// permits only one concurrent writer per connection, and publishes run on
// the calling handler's goroutine.
type streamConn struct {
	userID int64
	mu     sync.Mutex
	conn   *websocket.Conn
}

func (sc *streamConn) writeJSON(v interface{}) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sc.conn.WriteJSON(v)
}

// notificationHub fans new notifications out to connected websocket
// clients. Broadcast notifications reach every connection; targeted ones
// reach only the owner's connections.
type notificationHub struct {
	mu     sync.RWMutex
	conns  map[int64]map[*streamConn]bool
	logger *logrus.Logger
}

func newNotificationHub(logger *logrus.Logger) *notificationHub {
	return &notificationHub{
		conns:  make(map[int64]map[*streamConn]bool),
		logger: logger,
	}
}

func (h *notificationHub) register(userID int64, conn *websocket.Conn) *streamConn {
	sc := &streamConn{userID: userID, conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*streamConn]bool)
	}
	h.conns[userID][sc] = true
	return sc
}

func (h *notificationHub) unregister(sc *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[sc.userID]; ok {
		delete(set, sc)
		if len(set) == 0 {
			delete(h.conns, sc.userID)
		}
	}
}

// publish pushes a stored notification to the relevant connections. Send
// failures drop the connection; delivery is best effort, the row is already
// persisted.
func (h *notificationHub) publish(n *domain.Notification) {
	h.mu.RLock()
	var targets []*streamConn
	if n.IsBroadcast() {
		for _, set := range h.conns {
			for sc := range set {
				targets = append(targets, sc)
			}
		}
	} else if set, ok := h.conns[*n.UserID]; ok {
		for sc := range set {
			targets = append(targets, sc)
		}
	}
	h.mu.RUnlock()

	for _, sc := range targets {
		if err := sc.writeJSON(n); err != nil {
			h.logger.WithFields(logrus.Fields{
				"user_id": sc.userID,
				"error":   err,
			}).Debug("Dropping stale notification stream")
			sc.conn.Close()
			h.unregister(sc)
		}
	}
}

func (h *notificationHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.conns {
		for sc := range set {
			sc.conn.Close()
		}
	}
	h.conns = make(map[int64]map[*streamConn]bool)
}
