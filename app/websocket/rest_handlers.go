package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"RestoApp/app/models"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// OrderAPI is the order-side contract the REST layer delegates to. Defined
// here instead of importing the services package, which would create an
// import cycle.
type OrderAPI interface {
	PlaceOrder(order *models.Order) (*models.Order, error)
	AdvanceOrder(orderID uint, newStatus models.OrderStatus, actor, paymentMethod string) ([]string, error)
	CancelOrder(orderID uint) ([]string, error)
	ToggleItemCooked(orderID uint, index int) error
	GetOrder(id uint) (*models.Order, error)
	GetActiveOrders() ([]models.Order, error)
	GetTables() ([]models.Table, error)
	GetTable(id uint) (*models.Table, error)
	UpdateTableStatus(tableID uint, status string) error
}

// ShopAPI is the session-side contract for the REST layer
type ShopAPI interface {
	OpenShop(openedBy string, quotas map[uint]int) (*models.StoreSession, error)
	CloseShop(closedBy string) (*models.StoreSession, error)
	GetCurrentSession() (*models.StoreSession, error)
}

// LedgerAPI is the inventory-side contract for the REST layer
type LedgerAPI interface {
	CreditIngredient(name string, amount int, reference string, staffID uint) error
}

// RESTHandlers provides HTTP REST endpoints for mobile apps
type RESTHandlers struct {
	db             *gorm.DB
	server         *Server
	orderAPI       OrderAPI
	shopAPI        ShopAPI
	ledgerAPI      LedgerAPI
	orderURLPrefix string
}

// NewRESTHandlers creates a new REST handlers instance
func NewRESTHandlers(db *gorm.DB, server *Server, orderAPI OrderAPI, shopAPI ShopAPI, ledgerAPI LedgerAPI) *RESTHandlers {
	return &RESTHandlers{
		db:             db,
		server:         server,
		orderAPI:       orderAPI,
		shopAPI:        shopAPI,
		ledgerAPI:      ledgerAPI,
		orderURLPrefix: "http://localhost:8080/order?table=",
	}
}

// SetOrderURLPrefix sets the base URL encoded into table QR codes
func (h *RESTHandlers) SetOrderURLPrefix(prefix string) {
	if prefix != "" {
		h.orderURLPrefix = prefix
	}
}

func enableCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// MenuItemResponse is the menu shape sent to mobile clients
type MenuItemResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	DailyStock  int      `json:"daily_stock"`
	Unlimited   bool     `json:"unlimited"`
	Available   bool     `json:"available"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// HandleGetMenu returns the menu with current quotas and availability
func (h *RESTHandlers) HandleGetMenu(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var items []models.MenuItem
	if err := h.db.Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
		return db.Order("menu_item_ingredients.position ASC")
	}).Preload("Ingredients.Ingredient").
		Find(&items).Error; err != nil {
		log.Printf("REST API: Error fetching menu: %v", err)
		http.Error(w, "Error fetching menu", http.StatusInternalServerError)
		return
	}

	response := make([]MenuItemResponse, len(items))
	for i, item := range items {
		resp := MenuItemResponse{
			ID:         item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Category:   item.Category,
			DailyStock: item.DailyStock,
			Unlimited:  item.Unlimited(),
			Available:  item.IsAvailable,
		}
		for _, row := range item.Ingredients {
			if row.Ingredient != nil {
				resp.Ingredients = append(resp.Ingredients, row.Ingredient.Name)
			}
		}
		response[i] = resp
	}

	writeJSON(w, http.StatusOK, response)
}

// OrderItemRequest is one order line from a mobile client
type OrderItemRequest struct {
	MenuItemID uint `json:"menu_item_id"`
	Quantity   int  `json:"quantity"`
}

// OrderRequest is an order placement from a mobile client
type OrderRequest struct {
	TableID       uint               `json:"table_id"`
	CustomerName  string             `json:"customer_name"`
	CustomerClass string             `json:"customer_class"`
	BoxCount      int                `json:"box_count"`
	HasBag        bool               `json:"has_bag"`
	Items         []OrderItemRequest `json:"items"`
}

// HandleOrders routes between GET and POST for /api/orders
func (h *RESTHandlers) HandleOrders(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET, POST")
	switch r.Method {
	case "OPTIONS":
		w.WriteHeader(http.StatusOK)
	case "GET":
		h.handleGetActiveOrders(w, r)
	case "POST":
		h.handlePlaceOrder(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RESTHandlers) handleGetActiveOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderAPI.GetActiveOrders()
	if err != nil {
		log.Printf("REST API: Error fetching orders: %v", err)
		http.Error(w, "Error fetching orders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *RESTHandlers) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order := &models.Order{
		TableID:       req.TableID,
		CustomerName:  req.CustomerName,
		CustomerClass: req.CustomerClass,
		BoxCount:      req.BoxCount,
		HasBag:        req.HasBag,
	}
	for _, line := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
		})
	}

	placed, err := h.orderAPI.PlaceOrder(order)
	if err != nil {
		log.Printf("REST API: Order rejected: %v", err)
		writeError(w, http.StatusConflict, err)
		return
	}

	writeJSON(w, http.StatusCreated, placed)
}

// orderActionRequest covers the order mutations under /api/orders/{id}/...
type orderActionRequest struct {
	Status        string `json:"status"`
	Actor         string `json:"actor"`
	PaymentMethod string `json:"payment_method"`
	ItemIndex     int    `json:"item_index"`
}

// HandleOrderByID handles /api/orders/{id} and its action sub-paths
// {id}/advance, {id}/cancel and {id}/toggle-item
func (h *RESTHandlers) HandleOrderByID(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET, POST")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/orders/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Order ID required", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}
	orderID := uint(id)

	if r.Method == "GET" && len(parts) == 1 {
		order, err := h.orderAPI.GetOrder(orderID)
		if err != nil {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, order)
		return
	}

	if r.Method != "POST" || len(parts) != 2 {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req orderActionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	switch parts[1] {
	case "advance":
		warnings, err := h.orderAPI.AdvanceOrder(orderID, models.OrderStatus(req.Status), req.Actor, req.PaymentMethod)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": warnings})

	case "cancel":
		warnings, err := h.orderAPI.CancelOrder(orderID)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": warnings})

	case "toggle-item":
		if err := h.orderAPI.ToggleItemCooked(orderID, req.ItemIndex); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		http.Error(w, "Unknown action", http.StatusNotFound)
	}
}

// HandleGetTables returns all active tables
func (h *RESTHandlers) HandleGetTables(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tables, err := h.orderAPI.GetTables()
	if err != nil {
		log.Printf("REST API: Error fetching tables: %v", err)
		http.Error(w, "Error fetching tables", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// HandleUpdateTableStatus changes a table's status manually
func (h *RESTHandlers) HandleUpdateTableStatus(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "POST")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TableID uint   `json:"table_id"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.orderAPI.UpdateTableStatus(req.TableID, req.Status); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleTableQR returns a PNG QR code that opens the ordering page for a
// table
func (h *RESTHandlers) HandleTableQR(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseUint(r.URL.Query().Get("table_id"), 10, 32)
	if err != nil {
		http.Error(w, "Invalid table ID", http.StatusBadRequest)
		return
	}

	table, err := h.orderAPI.GetTable(uint(id))
	if err != nil {
		http.Error(w, "Table not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(h.orderURLPrefix+table.Number, qrcode.Medium, 256)
	if err != nil {
		log.Printf("REST API: QR generation failed: %v", err)
		http.Error(w, "Error generating QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// shopRequest is the open/close request body
type shopRequest struct {
	Action string         `json:"action"` // "open" or "close"
	Actor  string         `json:"actor"`
	Quotas map[string]int `json:"quotas,omitempty"` // menu item ID -> units
}

// HandleShop reads or changes the session state
func (h *RESTHandlers) HandleShop(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "GET, POST")
	switch r.Method {
	case "OPTIONS":
		w.WriteHeader(http.StatusOK)
		return
	case "GET":
		session, err := h.shopAPI.GetCurrentSession()
		if err != nil {
			http.Error(w, "Error fetching session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"open":    session != nil,
			"session": session,
		})
		return
	case "POST":
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch req.Action {
	case "open":
		quotas := make(map[uint]int, len(req.Quotas))
		for key, qty := range req.Quotas {
			id, err := strconv.ParseUint(key, 10, 32)
			if err != nil {
				http.Error(w, "Invalid menu item ID in quotas: "+key, http.StatusBadRequest)
				return
			}
			quotas[uint(id)] = qty
		}
		session, err := h.shopAPI.OpenShop(req.Actor, quotas)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		h.server.SendShopStatus(true, session.ID)
		writeJSON(w, http.StatusOK, session)

	case "close":
		session, err := h.shopAPI.CloseShop(req.Actor)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		h.server.SendShopStatus(false, session.ID)
		writeJSON(w, http.StatusOK, session)

	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
	}
}

// HandleRestock credits units to an ingredient
func (h *RESTHandlers) HandleRestock(w http.ResponseWriter, r *http.Request) {
	enableCORS(w, "POST")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name      string `json:"name"`
		Amount    int    `json:"amount"`
		Reference string `json:"reference"`
		StaffID   uint   `json:"staff_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.ledgerAPI.CreditIngredient(req.Name, req.Amount, req.Reference, req.StaffID); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	// Restocking may have raised menu quotas
	h.server.SendMenuUpdate("restock")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
