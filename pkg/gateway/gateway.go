// Package gateway pkg/gateway/gateway.go is the real-time fan-out sink: it
// consumes every pipeline topic and pushes normalized messages to subscribed
// websocket clients. It produces no scan or alert logic of its own.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwatch/driftwatch/pkg/bus"
	"github.com/driftwatch/driftwatch/pkg/cache"
	"github.com/driftwatch/driftwatch/pkg/config"
	"github.com/driftwatch/driftwatch/pkg/models"
)

const (
	componentName = "gateway"
	consumerGroup = "gateway"

	healthInterval = time.Minute
	healthTTL      = 5 * time.Minute

	// authTimeout bounds how long a fresh connection may sit silent before
	// its first (auth) frame.
	authTimeout = 10 * time.Second

	httpReadHeaderTimeout = 10 * time.Second

	readBufferSize  = 1024
	writeBufferSize = 1024
)

var (
	errUnauthenticated = errors.New("authentication required")

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftwatch_gateway_connections",
			Help: "Number of live websocket connections",
		},
	)
	messagesPushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_gateway_messages_pushed_total",
			Help: "Total messages pushed to websocket clients",
		},
	)
	connectionsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driftwatch_gateway_connections_pruned_total",
			Help: "Total connections dropped after a failed send",
		},
	)
)

func init() {
	prometheus.MustRegister(activeConnections)
	prometheus.MustRegister(messagesPushed)
	prometheus.MustRegister(connectionsPruned)
}

// Client message types.
const (
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgPing        = "ping"
	msgGetStats    = "get_stats"
)

// authFrame is the required first frame on every connection.
type authFrame struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	Token  string `json:"token"`
}

// clientMessage is any later frame from the client.
type clientMessage struct {
	Type     string `json:"type"`
	ConfigID string `json:"config_id,omitempty"`
}

// serverMessage is the normalized shape of everything the gateway pushes.
type serverMessage struct {
	Type      string      `json:"type"`
	ConfigID  string      `json:"config_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// statsPayload answers get_stats.
type statsPayload struct {
	Users         int `json:"users"`
	Connections   int `json:"connections"`
	Subscriptions int `json:"subscriptions"`
}

// AuthFunc validates a connection's first frame. The default accepts any
// request carrying a non-empty user id, org id and token; deployments plug
// in their real token check.
type AuthFunc func(ctx context.Context, userID, orgID, token string) error

func defaultAuth(_ context.Context, userID, orgID, token string) error {
	if userID == "" || orgID == "" || token == "" {
		return errUnauthenticated
	}

	return nil
}

// Gateway is the websocket fan-out service.
type Gateway struct {
	bus bus.Bus
	kv  cache.KV
	cfg *config.GatewayConfig

	auth     AuthFunc
	registry *registry
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewGateway creates the gateway. A nil auth falls back to the non-empty
// credential check.
func NewGateway(eventBus bus.Bus, kv cache.KV, cfg *config.GatewayConfig, auth AuthFunc) *Gateway {
	if auth == nil {
		auth = defaultAuth
	}

	return &Gateway{
		bus:      eventBus,
		kv:       kv,
		cfg:      cfg,
		auth:     auth,
		registry: newRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
		},
	}
}

// Start serves the websocket endpoint and consumes every pipeline topic
// until ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	log.Printf("Starting gateway")

	if g.cfg.HTTPAddr != "" {
		r := mux.NewRouter()
		r.HandleFunc("/ws", g.handleWS)
		r.Handle("/metrics", promhttp.Handler())

		g.httpSrv = &http.Server{
			Addr:              g.cfg.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: httpReadHeaderTimeout,
		}

		go func() {
			log.Printf("Websocket endpoint listening on %s", g.cfg.HTTPAddr)

			if err := g.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Websocket server failed: %v", err)
			}
		}()
	}

	go g.reportHealth(ctx)

	return g.bus.Subscribe(ctx, consumerGroup, []string{
		models.TopicScanScheduled,
		models.TopicScanCompleted,
		models.TopicChangeDetected,
		models.TopicAlertTriggered,
		models.TopicSystemHealth,
	}, g.handleEvent)
}

// Stop closes every live connection and releases the gateway's resources.
func (g *Gateway) Stop(ctx context.Context) error {
	log.Printf("Stopping gateway")

	var errs []error

	if g.httpSrv != nil {
		if err := g.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	for _, c := range g.registry.all() {
		g.drop(c)
	}

	if err := g.bus.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := g.kv.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// handleWS upgrades the connection, authenticates its first frame and runs
// the client read loop until the connection drops.
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	c, err := g.authenticate(r.Context(), ws)
	if err != nil {
		log.Printf("Rejecting connection: %v", err)
		_ = ws.WriteJSON(serverMessage{Type: "auth_error", Data: "authentication failed", Timestamp: models.NowRFC3339()})
		_ = ws.Close()

		return
	}

	g.registry.add(c)
	activeConnections.Inc()

	_ = c.send(serverMessage{Type: "auth_success", Timestamp: models.NowRFC3339()})

	g.readLoop(ws, c)
}

func (g *Gateway) authenticate(ctx context.Context, ws *websocket.Conn) (*client, error) {
	_ = ws.SetReadDeadline(time.Now().Add(authTimeout))

	var frame authFrame
	if err := ws.ReadJSON(&frame); err != nil {
		return nil, err
	}

	_ = ws.SetReadDeadline(time.Time{})

	if err := g.auth(ctx, frame.UserID, frame.OrgID, frame.Token); err != nil {
		return nil, err
	}

	return &client{conn: ws, userID: frame.UserID, orgID: frame.OrgID}, nil
}

func (g *Gateway) readLoop(ws *websocket.Conn, c *client) {
	defer g.drop(c)

	for {
		var msg clientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}

		g.handleClientMessage(c, &msg)
	}
}

func (g *Gateway) handleClientMessage(c *client, msg *clientMessage) {
	switch msg.Type {
	case msgSubscribe:
		if msg.ConfigID != "" {
			g.registry.subscribe(c, msg.ConfigID)
			_ = c.send(subscriptionResponse(msgSubscribe, msg.ConfigID))
		}
	case msgUnsubscribe:
		if msg.ConfigID != "" {
			g.registry.unsubscribe(c, msg.ConfigID)
			_ = c.send(subscriptionResponse(msgUnsubscribe, msg.ConfigID))
		}
	case msgPing:
		_ = c.send(serverMessage{Type: "pong", Timestamp: models.NowRFC3339()})
	case msgGetStats:
		users, connections, subscriptions := g.registry.counts()
		_ = c.send(serverMessage{
			Type: "stats",
			Data: statsPayload{
				Users:         users,
				Connections:   connections,
				Subscriptions: subscriptions,
			},
			Timestamp: models.NowRFC3339(),
		})
	default:
		_ = c.send(serverMessage{Type: "error", Data: "unknown message type", Timestamp: models.NowRFC3339()})
	}
}

// subscriptionResponse acknowledges a subscribe or unsubscribe.
func subscriptionResponse(action, configID string) serverMessage {
	return serverMessage{
		Type:      "subscription_response",
		ConfigID:  configID,
		Data:      map[string]string{"action": action, "status": "ok"},
		Timestamp: models.NowRFC3339(),
	}
}

// handleEvent fans one bus event out to its audience: health events go to
// every connection, everything else to the subscribers of the event's
// config.
func (g *Gateway) handleEvent(_ context.Context, event *models.Event) error {
	msg := serverMessage{
		Type:      event.Type,
		Data:      json.RawMessage(event.Data),
		Timestamp: event.Timestamp,
	}

	if event.Type == models.EventHealth {
		msg.Type = "system_health"
		g.push(g.registry.all(), &msg)

		return nil
	}

	configID := configIDOf(event)
	if configID == "" {
		return nil
	}

	msg.ConfigID = configID
	g.push(g.registry.subscribers(configID), &msg)

	return nil
}

// push delivers one message to each target, pruning connections whose send
// fails. Pruning happens here, on send failure, not via heartbeat polling.
func (g *Gateway) push(targets []*client, msg *serverMessage) {
	for _, c := range targets {
		if err := c.send(msg); err != nil {
			log.Printf("Dropping connection for user %s: %v", c.userID, err)
			g.drop(c)
			connectionsPruned.Inc()

			continue
		}

		messagesPushed.Inc()
	}
}

// drop is idempotent: a connection pruned on send failure is dropped again
// by its read loop's deferred cleanup.
func (g *Gateway) drop(c *client) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	g.registry.remove(c)
	_ = c.conn.Close()
	activeConnections.Dec()
}

// configIDOf extracts the config id every domain payload carries.
func configIDOf(event *models.Event) string {
	var payload struct {
		ConfigID string `json:"config_id"`
	}

	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return ""
	}

	return payload.ConfigID
}

func (g *Gateway) reportHealth(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := g.bus.Health()
			_, connections, _ := g.registry.counts()

			event, err := models.NewHealthEvent(componentName, health.Status, map[string]int64{
				"connections":        int64(connections),
				"messages_published": int64(health.Published),
				"messages_consumed":  int64(health.Consumed),
				"errors":             int64(health.Errors),
			})
			if err != nil {
				log.Printf("Failed to build health event: %v", err)
				continue
			}

			if err := g.bus.Publish(ctx, models.TopicSystemHealth, event, componentName); err != nil {
				log.Printf("Failed to publish health: %v", err)
			}

			encoded, err := json.Marshal(event)
			if err != nil {
				continue
			}

			if err := g.kv.Set(ctx, "health:"+componentName, string(encoded), healthTTL); err != nil {
				log.Printf("Failed to store health mark: %v", err)
			}
		}
	}
}
