package services

import (
	"RestoApp/app/models"
	"RestoApp/app/websocket"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// OrderService owns the order lifecycle: atomic placement against menu
// quotas and the stock ledger, the kitchen/service state machine, and
// cancellation with restock. All mutations run under the single-writer lock
// and a database transaction; a rejected placement leaves every store
// untouched.
type OrderService struct {
	db              *gorm.DB
	availabilitySvc *AvailabilityService
	wsServer        *websocket.Server
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{
		db:              db,
		availabilitySvc: NewAvailabilityService(db),
	}
}

// SetWebSocketServer sets the fan-out server for committed-state notifications
func (s *OrderService) SetWebSocketServer(server *websocket.Server) {
	s.wsServer = server
}

var orderSeq uint64

func generateOrderNumber() string {
	seq := atomic.AddUint64(&orderSeq, 1)
	return fmt.Sprintf("ORD-%s-%04d", time.Now().UTC().Format("20060102150405"), seq%10000)
}

// PlaceOrder validates an order against menu quotas and the ingredient
// ledger and, when every check passes, creates it, occupies the table and
// debits quota and stock in one transaction. The first failed check aborts
// the whole operation with zero side effects.
//
// The caller fills TableID, CustomerName, CustomerClass, BoxCount, HasBag
// and Items (MenuItemID + Quantity); snapshots, status and total are
// assigned here.
func (s *OrderService) PlaceOrder(order *models.Order) (*models.Order, error) {
	if order == nil || len(order.Items) == 0 {
		return nil, validationErrorf("order must contain at least one item")
	}
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return nil, validationErrorf("order line for menu item %d has quantity %d", item.MenuItemID, item.Quantity)
		}
	}

	storeMu.Lock()
	defer storeMu.Unlock()

	err := withConflictRetry(s.db, func(tx *gorm.DB) error {
		// 1. Table must exist.
		var table models.Table
		err := tx.Clauses(lockForUpdate()).First(&table, order.TableID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("table %d does not exist", order.TableID)
		}
		if err != nil {
			return err
		}
		if table.CurrentOrderID != nil {
			return validationErrorf("table %s already has an open order", table.Number)
		}

		// 2. Per-menu-item quota: the summed demand of this order must fit
		// the remaining daily stock.
		menuItems := make(map[uint]*models.MenuItem)
		demand := make(map[uint]int)
		var itemOrder []uint
		for _, line := range order.Items {
			if _, ok := demand[line.MenuItemID]; !ok {
				itemOrder = append(itemOrder, line.MenuItemID)
			}
			demand[line.MenuItemID] += line.Quantity
		}
		for _, id := range itemOrder {
			var item models.MenuItem
			err := tx.Clauses(lockForUpdate()).First(&item, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationErrorf("menu item %d does not exist", id)
			}
			if err != nil {
				return err
			}
			if !item.Unlimited() && demand[id] > item.DailyStock {
				return &InsufficientQuotaError{
					MenuItem:  item.Name,
					Requested: demand[id],
					Available: item.DailyStock,
				}
			}
			menuItems[id] = &item
		}

		// 3. Aggregated ingredient demand: one ledger unit per recipe row
		// per ordered unit.
		required := make(map[uint]int)
		var ingredientOrder []uint
		for _, line := range order.Items {
			var recipe []models.MenuItemIngredient
			if err := tx.Where("menu_item_id = ?", line.MenuItemID).
				Order("position ASC").
				Find(&recipe).Error; err != nil {
				return err
			}
			for _, row := range recipe {
				if _, ok := required[row.IngredientID]; !ok {
					ingredientOrder = append(ingredientOrder, row.IngredientID)
				}
				required[row.IngredientID] += line.Quantity
			}
		}

		ledger := make(map[uint]*models.Ingredient)
		for _, id := range ingredientOrder {
			var ingredient models.Ingredient
			err := tx.Clauses(lockForUpdate()).First(&ingredient, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Recipe row outlived its ingredient; nothing can supply it.
				tx.Unscoped().First(&ingredient, id)
				return &InsufficientStockError{
					Ingredient: ingredient.Name,
					Requested:  required[id],
					Available:  0,
				}
			}
			if err != nil {
				return err
			}
			if required[id] > ingredient.Quantity {
				return &InsufficientStockError{
					Ingredient: ingredient.Name,
					Requested:  required[id],
					Available:  ingredient.Quantity,
				}
			}
			ledger[id] = &ingredient
		}

		// 4. All checks passed; apply everything.
		order.OrderNumber = generateOrderNumber()
		order.Status = models.OrderStatusPending
		var total float64
		for i := range order.Items {
			line := &order.Items[i]
			item := menuItems[line.MenuItemID]
			line.Name = item.Name
			line.Price = item.Price
			line.Position = i
			total += item.Price * float64(line.Quantity)
		}
		order.TotalAmount = total + models.BoxFee*float64(order.BoxCount)

		if err := tx.Create(order).Error; err != nil {
			return err
		}

		table.Status = models.TableOccupied
		table.CurrentOrderID = &order.ID
		if err := tx.Save(&table).Error; err != nil {
			return err
		}

		for _, id := range itemOrder {
			item := menuItems[id]
			if item.Unlimited() {
				continue
			}
			item.DailyStock -= demand[id]
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}

		for _, id := range ingredientOrder {
			ingredient := ledger[id]
			previous := ingredient.Quantity
			ingredient.Quantity -= required[id]
			if err := tx.Save(ingredient).Error; err != nil {
				return err
			}
			if err := recordMovement(tx, ingredient, "sale", -required[id], previous, order.OrderNumber, 0); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	placed, err := s.GetOrder(order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	log.Printf("Order %s placed: table %d, %d lines, total %.2f",
		placed.OrderNumber, placed.TableID, len(placed.Items), placed.TotalAmount)
	s.notifyOrderUpdate(websocket.TypeOrderPlaced, placed)
	s.notifyTableUpdate(placed.TableID, models.TableOccupied)

	return placed, nil
}

// AdvanceOrder moves an order to newStatus, recording attribution and
// synchronizing table occupancy on terminal transitions. Advancing to
// cancelled runs the restock engine inside the same transaction and returns
// any partial-restock warnings.
func (s *OrderService) AdvanceOrder(orderID uint, newStatus models.OrderStatus, actor string, paymentMethod string) ([]string, error) {
	storeMu.Lock()
	defer storeMu.Unlock()

	var warnings []string
	var tableID uint
	err := withConflictRetry(s.db, func(tx *gorm.DB) error {
		warnings = warnings[:0]

		var order models.Order
		err := tx.Clauses(lockForUpdate()).Preload("Items").First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("order %d does not exist", orderID)
		}
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(newStatus) {
			return validationErrorf("cannot transition order %s from %s to %s",
				order.OrderNumber, order.Status, newStatus)
		}

		tableID = order.TableID

		if newStatus == models.OrderStatusCancelled {
			warnings, err = s.cancelInTx(tx, &order)
			return err
		}

		switch newStatus {
		case models.OrderStatusCooking:
			if actor != "" {
				order.ChefName = actor
			}
		case models.OrderStatusServing:
			if actor != "" {
				order.ServerName = actor
			}
		case models.OrderStatusCompleted:
			if paymentMethod == "" {
				return validationErrorf("completing order %s requires a payment method", order.OrderNumber)
			}
			order.PaymentMethod = paymentMethod
			if err := s.releaseTable(tx, &order); err != nil {
				return err
			}
		}

		order.Status = newStatus
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %d advanced to %s", orderID, newStatus)
	if updated, err := s.GetOrder(orderID); err == nil {
		s.notifyOrderUpdate(websocket.TypeOrderUpdate, updated)
	}
	if newStatus.Terminal() {
		s.notifyTableUpdate(tableID, models.TableAvailable)
	}

	return warnings, nil
}

// CancelOrder cancels an order, restoring menu quota and ingredient stock
// for everything that still exists in the catalog and freeing the table.
// Catalog drift never blocks cancellation: vanished items or ingredients are
// skipped and reported as warnings.
func (s *OrderService) CancelOrder(orderID uint) ([]string, error) {
	return s.AdvanceOrder(orderID, models.OrderStatusCancelled, "", "")
}

// cancelInTx reverses the stock effects of an order, marks it cancelled and
// releases its table. Runs inside the caller's transaction so the status
// change and the restock commit or roll back together.
func (s *OrderService) cancelInTx(tx *gorm.DB, order *models.Order) ([]string, error) {
	var warnings []string

	// Quota restoration uses each menu item as it exists now, not the
	// snapshot taken at order time.
	required := make(map[uint]int)
	var ingredientOrder []uint
	for _, line := range order.Items {
		var item models.MenuItem
		err := tx.Clauses(lockForUpdate()).First(&item, line.MenuItemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			warnings = append(warnings, fmt.Sprintf(
				"menu item %q no longer exists; its quota and ingredients were not restored", line.Name))
			continue
		}
		if err != nil {
			return nil, err
		}

		if !item.Unlimited() {
			item.DailyStock += line.Quantity
			if err := tx.Save(&item).Error; err != nil {
				return nil, err
			}
		}

		var recipe []models.MenuItemIngredient
		if err := tx.Where("menu_item_id = ?", item.ID).
			Order("position ASC").
			Find(&recipe).Error; err != nil {
			return nil, err
		}
		for _, row := range recipe {
			if _, ok := required[row.IngredientID]; !ok {
				ingredientOrder = append(ingredientOrder, row.IngredientID)
			}
			required[row.IngredientID] += line.Quantity
		}
	}

	for _, id := range ingredientOrder {
		var ingredient models.Ingredient
		err := tx.Clauses(lockForUpdate()).First(&ingredient, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			warnings = append(warnings, fmt.Sprintf(
				"ingredient %d no longer in the ledger; %d units were not restored", id, required[id]))
			continue
		}
		if err != nil {
			return nil, err
		}

		previous := ingredient.Quantity
		ingredient.Quantity += required[id]
		if err := tx.Save(&ingredient).Error; err != nil {
			return nil, err
		}
		if err := recordMovement(tx, &ingredient, "cancellation", required[id], previous, order.OrderNumber, 0); err != nil {
			return nil, err
		}
	}

	order.Status = models.OrderStatusCancelled
	if err := tx.Save(order).Error; err != nil {
		return nil, err
	}
	if err := s.releaseTable(tx, order); err != nil {
		return nil, err
	}

	for _, w := range warnings {
		log.Printf("Cancel %s: %s", order.OrderNumber, w)
	}
	return warnings, nil
}

// releaseTable frees the table referenced by the order itself. The lookup
// goes through the order's TableID so callers cannot release the wrong
// table.
func (s *OrderService) releaseTable(tx *gorm.DB, order *models.Order) error {
	var table models.Table
	err := tx.Clauses(lockForUpdate()).First(&table, order.TableID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Table removed while the order was open; nothing to release.
		return nil
	}
	if err != nil {
		return err
	}

	if table.CurrentOrderID == nil || *table.CurrentOrderID != order.ID {
		return nil
	}

	return tx.Model(&table).
		Select("status", "current_order_id").
		Updates(map[string]interface{}{
			"status":           models.TableAvailable,
			"current_order_id": nil,
		}).Error
}

// ToggleItemCooked flips the cooked flag on a single order line, identified
// by its stable position. It has no effect on order status or stock.
func (s *OrderService) ToggleItemCooked(orderID uint, index int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).
			Order("position ASC").
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return validationErrorf("order %d does not exist or has no items", orderID)
		}
		if index < 0 || index >= len(items) {
			return validationErrorf("item index %d out of range for order %d", index, orderID)
		}

		item := &items[index]
		item.IsCooked = !item.IsCooked
		return tx.Save(item).Error
	})
}

// Queries

// GetOrder gets an order by ID with its items and table
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.position ASC")
	}).Preload("Table").
		First(&order, id).Error
	return &order, err
}

// GetActiveOrders returns all non-terminal orders in FIFO kitchen order
func (s *OrderService) GetActiveOrders() ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.position ASC")
	}).Preload("Table").
		Where("status NOT IN ?", []models.OrderStatus{
			models.OrderStatusCompleted,
			models.OrderStatusCancelled,
		}).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// GetOrdersByStatus gets orders by status, oldest first
func (s *OrderService) GetOrdersByStatus(status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.position ASC")
	}).Preload("Table").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// GetOrdersByDateRange gets orders within a timestamp range, optionally
// filtered by status. This is the read contract session aggregation and
// reporting are built on.
func (s *OrderService) GetOrdersByDateRange(start, end time.Time, statuses ...models.OrderStatus) ([]models.Order, error) {
	query := s.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.position ASC")
	}).Where("created_at >= ? AND created_at <= ?", start, end)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var orders []models.Order
	err := query.Order("created_at ASC").Find(&orders).Error
	return orders, err
}

// Table management

// GetTables gets all active tables with their current orders
func (s *OrderService) GetTables() ([]models.Table, error) {
	var tables []models.Table
	err := s.db.Preload("CurrentOrder").
		Where("is_active = ?", true).
		Order("floor, number").
		Find(&tables).Error
	return tables, err
}

// GetTable gets a specific table
func (s *OrderService) GetTable(id uint) (*models.Table, error) {
	var table models.Table
	err := s.db.Preload("CurrentOrder").First(&table, id).Error
	return &table, err
}

// CreateTable creates a new table
func (s *OrderService) CreateTable(table *models.Table) error {
	if table.Status == "" {
		table.Status = models.TableAvailable
	}
	return s.db.Create(table).Error
}

// UpdateTableStatus changes a table's status manually (reserved, dirty,
// available). Tables with an attached order are owned by the order state
// machine and cannot be changed here.
func (s *OrderService) UpdateTableStatus(tableID uint, status string) error {
	switch status {
	case models.TableAvailable, models.TableReserved, models.TableDirty:
	default:
		return validationErrorf("invalid manual table status %q", status)
	}

	storeMu.Lock()
	defer storeMu.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		err := tx.Clauses(lockForUpdate()).First(&table, tableID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return validationErrorf("table %d does not exist", tableID)
		}
		if err != nil {
			return err
		}
		if table.CurrentOrderID != nil {
			return validationErrorf("table %s has an open order; close or cancel it first", table.Number)
		}
		return tx.Model(&table).Update("status", status).Error
	})
	if err != nil {
		return err
	}

	s.notifyTableUpdate(tableID, status)
	return nil
}

// DeleteTable soft deletes a table
func (s *OrderService) DeleteTable(id uint) error {
	return s.db.Delete(&models.Table{}, id).Error
}

// Fan-out helpers; all nil-safe, the core works without a running server.

func (s *OrderService) notifyOrderUpdate(msgType websocket.MessageType, order *models.Order) {
	if s.wsServer == nil {
		return
	}
	s.wsServer.SendOrderUpdate(msgType, order)
}

func (s *OrderService) notifyTableUpdate(tableID uint, status string) {
	if s.wsServer == nil {
		return
	}
	s.wsServer.SendTableUpdate(tableID, status)
}
