package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-triage-server/internal/domain"
)

// Concurrent handlers publish to the same stream: an admin announcement
// landing while a personalized notification is being pushed. Writes to a
// connection must be serialized.
func TestNotificationHub_ConcurrentPublish(t *testing.T) {
	hub := newNotificationHub(testLogger())
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sc := hub.register(1, conn)
		defer func() {
			hub.unregister(sc)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.conns[1]) == 1
	}, time.Second, 5*time.Millisecond, "stream must be registered before publishing")

	const publishers = 4
	const perPublisher = 25

	targeted := &domain.Notification{
		UserID:  int64Ptr(1),
		Title:   "Your Personalized Health Insight 💡",
		Message: "Stay hydrated.",
		Type:    domain.NotificationPersonalized,
	}
	broadcast := &domain.Notification{
		Title:   "Maintenance window",
		Message: "Service will restart tonight.",
		Type:    domain.NotificationAnnouncement,
	}

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		n := targeted
		if i%2 == 0 {
			n = broadcast
		}
		wg.Add(1)
		go func(n *domain.Notification) {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				hub.publish(n)
			}
		}(n)
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	received := 0
	for received < publishers*perPublisher {
		var got domain.Notification
		require.NoError(t, client.ReadJSON(&got))
		assert.NotEmpty(t, got.Title)
		received++
	}
	wg.Wait()

	assert.Equal(t, publishers*perPublisher, received, "every publish reaches the stream")
}
