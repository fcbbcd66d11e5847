package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/irrigo/fieldkit/internal/adapters/nats"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

// wsMessage is sent by map clients to follow or stop following a tenant's
// boundary changes.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Tenant  string `json:"tenant"`  // required
	Farm    string `json:"farm"`    // optional, "" = every farm of the tenant
	Channel string `json:"channel"` // "boundaries" | "audits" (default: boundaries)
}

func wsSubject(m wsMessage) (string, bool) {
	channel := m.Channel
	if channel == "" {
		channel = "boundaries"
	}
	switch channel {
	case "boundaries":
		if m.Farm != "" {
			return natsadapter.BoundarySubject(m.Tenant, m.Farm), true
		}
		return natsadapter.TenantBoundarySubjects(m.Tenant), true
	case "audits":
		if m.Farm != "" {
			return natsadapter.AuditSubject(m.Tenant, m.Farm), true
		}
		return natsadapter.TenantAuditSubjects(m.Tenant), true
	}
	return "", false
}

// WebSocketHandler relays boundary events and audit reports from NATS to
// connected map clients. Payloads are always delivered as JSON, whatever
// encoding the publisher used.
//
// Clients send {"action":"subscribe","tenant":"t1","farm":"f1"}. A ?tenant=
// query parameter subscribes to that tenant's boundaries on connect.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := slog.Default().With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription)

		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(channel string) nats.MsgHandler {
			return func(msg *nats.Msg) {
				var (
					v   any
					err error
				)
				if channel == "audits" {
					v, err = natsadapter.DecodeAuditReport(msg)
				} else {
					v, err = natsadapter.DecodeBoundaryEvent(msg)
				}
				if err != nil {
					log.Warn("ws drop undecodable message", "subject", msg.Subject, "error", err)
					return
				}
				_ = writeJSON(v)
			}
		}

		subscribe := func(m wsMessage) {
			if m.Tenant == "" {
				_ = writeJSON(map[string]string{"error": "tenant is required"})
				return
			}
			if !natsadapter.ValidToken(m.Tenant) || (m.Farm != "" && !natsadapter.ValidToken(m.Farm)) {
				_ = writeJSON(map[string]string{"error": "tenant and farm must not contain '.', '*', '>' or whitespace"})
				return
			}
			subject, ok := wsSubject(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				return
			}
			if _, exists := subs[subject]; exists {
				_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
				return
			}
			s, err := nc.Subscribe(subject, relay(m.Channel))
			if err != nil {
				_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
				return
			}
			subs[subject] = s
			_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})
		}

		if tenant := c.Query("tenant"); tenant != "" {
			subscribe(wsMessage{Action: "subscribe", Tenant: tenant, Farm: c.Query("farm")})
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				subscribe(m)
			case "unsubscribe":
				subject, ok := wsSubject(m)
				s, exists := subs[subject]
				if !ok || !exists {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}
