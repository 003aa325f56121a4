package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"gorm.io/gorm"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TypeOrderPlaced    MessageType = "order_placed"
	TypeOrderUpdate    MessageType = "order_update"
	TypeOrderCancelled MessageType = "order_cancelled"
	TypeTableUpdate    MessageType = "table_update"
	TypeMenuUpdate     MessageType = "menu_update"
	TypeShopStatus     MessageType = "shop_status"
	TypeNotification   MessageType = "notification"
	TypeHeartbeat      MessageType = "heartbeat"
	TypeAuthResponse   MessageType = "auth_response"
)

// ClientType represents the type of connected client
type ClientType string

const (
	ClientPOS     ClientType = "pos"
	ClientKitchen ClientType = "kitchen"
	ClientWaiter  ClientType = "waiter"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID          string
	Type        ClientType
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

// Server fans committed state changes out to POS, kitchen and waiter
// clients, and exposes the REST API mobile clients use to act on the store.
type Server struct {
	clients      map[string]*Client
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *Client
	upgrader     websocket.Upgrader
	mu           sync.RWMutex
	port         string
	db           *gorm.DB
	orderAPI     OrderAPI
	shopAPI      ShopAPI
	ledgerAPI    LedgerAPI
	restHandlers *RESTHandlers
	mdnsShutdown chan bool

	orderURLPrefix string
}

// NewServer creates a new WebSocket server
func NewServer(port string) *Server {
	return &Server{
		clients:      make(map[string]*Client),
		broadcast:    make(chan []byte),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		port:         port,
		mdnsShutdown: make(chan bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local network deployment; clients are trusted devices
				return true
			},
		},
	}
}

// SetDB sets the database connection for REST API endpoints
func (s *Server) SetDB(db *gorm.DB) {
	s.db = db
	s.initRESTHandlers()
}

// SetServices wires the order, shop and ledger services the REST API
// delegates to
func (s *Server) SetServices(orderAPI OrderAPI, shopAPI ShopAPI, ledgerAPI LedgerAPI) {
	s.orderAPI = orderAPI
	s.shopAPI = shopAPI
	s.ledgerAPI = ledgerAPI
	s.initRESTHandlers()
}

func (s *Server) initRESTHandlers() {
	if s.db == nil || s.orderAPI == nil {
		return
	}
	s.restHandlers = NewRESTHandlers(s.db, s, s.orderAPI, s.shopAPI, s.ledgerAPI)
	if s.orderURLPrefix != "" {
		s.restHandlers.SetOrderURLPrefix(s.orderURLPrefix)
	}
	log.Println("WebSocket server: REST handlers initialized")
}

// SetOrderURLPrefix sets the base URL encoded into table QR codes
func (s *Server) SetOrderURLPrefix(prefix string) {
	s.orderURLPrefix = prefix
	if s.restHandlers != nil {
		s.restHandlers.SetOrderURLPrefix(prefix)
	}
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/health", s.handleHealth)

	if s.restHandlers != nil {
		http.HandleFunc("/api/menu", s.restHandlers.HandleGetMenu)
		http.HandleFunc("/api/orders/", s.restHandlers.HandleOrderByID)
		http.HandleFunc("/api/orders", s.restHandlers.HandleOrders)
		http.HandleFunc("/api/tables", s.restHandlers.HandleGetTables)
		http.HandleFunc("/api/tables/status", s.restHandlers.HandleUpdateTableStatus)
		http.HandleFunc("/api/tables/qr", s.restHandlers.HandleTableQR)
		http.HandleFunc("/api/shop", s.restHandlers.HandleShop)
		http.HandleFunc("/api/ingredients/restock", s.restHandlers.HandleRestock)
		log.Println("WebSocket server: REST API endpoints registered")
	}

	go s.startMDNS()

	log.Printf("WebSocket server starting on port %s", s.port)
	return http.ListenAndServe(s.port, nil)
}

// startMDNS announces the server via mDNS/Zeroconf so mobile clients can
// find it without configuration
func (s *Server) startMDNS() {
	portStr := strings.TrimPrefix(s.port, ":")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("mDNS: Invalid port format %s: %v", s.port, err)
		return
	}

	server, err := zeroconf.Register(
		"Resto Server",
		"_restoserver._tcp",
		"local.",
		port,
		[]string{"version=1.0"},
		nil,
	)
	if err != nil {
		log.Printf("mDNS: Failed to register service: %v", err)
		return
	}

	log.Println("mDNS: Resto Server announced on _restoserver._tcp.local")

	<-s.mdnsShutdown
	server.Shutdown()
	log.Println("mDNS: Service announcement stopped")
}

// Stop stops the WebSocket server
func (s *Server) Stop() {
	select {
	case s.mdnsShutdown <- true:
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, client := range s.clients {
		close(client.Send)
		client.Connection.Close()
	}
}

// run handles the main server loop
func (s *Server) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client registered: %s (type: %s)", client.ID, client.Type)
			s.sendAuthResponse(client, true, "Connected successfully")

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				s.mu.Unlock()

				go func(c *Client) {
					defer func() {
						recover() // channel may already be closed
					}()
					close(c.Send)
				}(client)

				log.Printf("Client unregistered: %s", client.ID)
			} else {
				s.mu.Unlock()
			}

		case message := <-s.broadcast:
			s.mu.Lock()
			for id, client := range s.clients {
				select {
				case client.Send <- message:
				default:
					// Buffer full, drop the client
					delete(s.clients, id)
					go func(c *Client) {
						defer func() {
							recover()
						}()
						close(c.Send)
					}(client)
				}
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.sendHeartbeat()
		}
	}
}

// handleWebSocket handles WebSocket connection upgrades
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientType := ClientType(r.URL.Query().Get("type"))
	if clientType == "" {
		clientType = ClientPOS
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          generateClientID(),
		Type:        clientType,
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	response := map[string]interface{}{
		"status":  "healthy",
		"clients": clientCount,
		"time":    time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readPump handles reading messages from the client
func (c *Client) readPump() {
	defer func() {
		c.Server.unregister <- c
		c.Connection.Close()
	}()

	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}

		c.handleMessage(&message)
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			c.Connection.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes incoming client messages. State changes never happen
// here; clients act on the store through the REST API, the socket is for
// fan-out only.
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case TypeOrderUpdate, TypeTableUpdate:
		c.Server.broadcastToAll(message)

	case TypeMenuUpdate:
		if c.Type == ClientKitchen {
			c.Server.broadcastToPOS(message)
			c.Server.broadcastToWaiters(message)
		}

	case TypeHeartbeat:
		c.sendMessage(Message{
			Type:      TypeHeartbeat,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"status":"alive"}`),
		})

	default:
		log.Printf("Unknown message type: %s", message.Type)
	}
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send channel is full")
	}
}

// Server broadcast methods

// BroadcastMessage broadcasts a message to all connected clients
func (s *Server) BroadcastMessage(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	s.broadcast <- data
}

func (s *Server) broadcastToAll(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.Send <- data:
		default:
			log.Printf("Failed to send to client %s", client.ID)
		}
	}
}

func (s *Server) broadcastToType(clientType ClientType, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		if client.Type == clientType {
			select {
			case client.Send <- data:
			default:
				log.Printf("Failed to send to %s client %s", clientType, client.ID)
			}
		}
	}
}

func (s *Server) broadcastToKitchen(message *Message) {
	s.broadcastToType(ClientKitchen, message)
}

func (s *Server) broadcastToPOS(message *Message) {
	s.broadcastToType(ClientPOS, message)
}

func (s *Server) broadcastToWaiters(message *Message) {
	s.broadcastToType(ClientWaiter, message)
}

// sendHeartbeat sends heartbeat to all clients
func (s *Server) sendHeartbeat() {
	message := Message{
		Type:      TypeHeartbeat,
		Timestamp: time.Now(),
		Data:      json.RawMessage(`{"ping":"pong"}`),
	}

	s.broadcastToAll(&message)
}

// sendAuthResponse sends the connection acknowledgment to a client
func (s *Server) sendAuthResponse(client *Client, success bool, message string) {
	response := map[string]interface{}{
		"success":   success,
		"message":   message,
		"client_id": client.ID,
	}

	data, _ := json.Marshal(response)

	msg := Message{
		Type:      TypeAuthResponse,
		Timestamp: time.Now(),
		Data:      json.RawMessage(data),
	}

	client.sendMessage(msg)
}

// Notification methods, called by the services after a commit

// SendOrderUpdate broadcasts an order's current state to everyone. Kitchen
// screens pick new orders up from here.
func (s *Server) SendOrderUpdate(msgType MessageType, order interface{}) {
	dataBytes, err := json.Marshal(order)
	if err != nil {
		log.Printf("Error marshaling order: %v", err)
		return
	}

	message := Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      json.RawMessage(dataBytes),
	}

	s.broadcastToAll(&message)
}

// SendTableUpdate broadcasts a table status change
func (s *Server) SendTableUpdate(tableID uint, status string) {
	data := map[string]interface{}{
		"table_id": tableID,
		"status":   status,
		"time":     time.Now(),
	}

	dataBytes, _ := json.Marshal(data)

	message := Message{
		Type:      TypeTableUpdate,
		Timestamp: time.Now(),
		Data:      json.RawMessage(dataBytes),
	}

	s.broadcastToAll(&message)
}

// SendMenuUpdate broadcasts a menu change (restock may have raised quotas)
func (s *Server) SendMenuUpdate(reason string) {
	data := map[string]interface{}{
		"reason": reason,
		"time":   time.Now(),
	}

	dataBytes, _ := json.Marshal(data)

	message := Message{
		Type:      TypeMenuUpdate,
		Timestamp: time.Now(),
		Data:      json.RawMessage(dataBytes),
	}

	s.broadcastToAll(&message)
}

// SendShopStatus broadcasts a shop open/close event
func (s *Server) SendShopStatus(open bool, sessionID uint) {
	data := map[string]interface{}{
		"open":       open,
		"session_id": sessionID,
		"time":       time.Now(),
	}

	dataBytes, _ := json.Marshal(data)

	message := Message{
		Type:      TypeShopStatus,
		Timestamp: time.Now(),
		Data:      json.RawMessage(dataBytes),
	}

	s.broadcastToAll(&message)
}

// GetConnectedClients returns the connected client list
func (s *Server) GetConnectedClients() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, map[string]interface{}{
			"id":           client.ID,
			"type":         string(client.Type),
			"connected_at": client.ConnectedAt.Format(time.RFC3339),
			"remote_addr":  client.RemoteAddr,
		})
	}

	return clients
}

// GetServerStatus returns current server status
func (s *Server) GetServerStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kitchenCount := 0
	waiterCount := 0
	posCount := 0

	for _, client := range s.clients {
		switch client.Type {
		case ClientKitchen:
			kitchenCount++
		case ClientWaiter:
			waiterCount++
		case ClientPOS:
			posCount++
		}
	}

	return map[string]interface{}{
		"running":         true,
		"port":            s.port,
		"total_clients":   len(s.clients),
		"kitchen_clients": kitchenCount,
		"waiter_clients":  waiterCount,
		"pos_clients":     posCount,
	}
}

// GetPort returns the server port
func (s *Server) GetPort() string {
	return s.port
}

func generateClientID() string {
	return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
}
