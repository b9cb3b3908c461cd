package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Hub fans campaign events out to SSE subscribers. Slow clients drop
// messages rather than block the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Publish(evt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}

type event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

func encode(typ string, data any) string {
	b, _ := json.Marshal(event{Type: typ, At: time.Now().UTC(), Data: data})
	return string(b)
}

// Ping is the SSE keep-alive envelope.
func Ping() string {
	return encode("ping", nil)
}

// ApplicationSent announces one successfully dispatched application.
func ApplicationSent(campaignID, targetName string) string {
	return encode("application_sent", map[string]string{
		"campaign_id": campaignID,
		"target":      targetName,
	})
}

// CampaignCompleted announces the automatic expiry transition.
func CampaignCompleted(campaignID string) string {
	return encode("campaign_completed", map[string]string{
		"campaign_id": campaignID,
	})
}

// RunFinished announces the end of one campaign-day run.
func RunFinished(campaignID string, sent, total int) string {
	return encode("run_finished", map[string]any{
		"campaign_id": campaignID,
		"sent":        sent,
		"total":       total,
	})
}
