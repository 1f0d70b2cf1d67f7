// Package maintenance implements the locally hosted agents of the pipeline:
// maintenance scheduling and parts ordering. Both read the factory data
// stores directly and call a model endpoint in-process.
package maintenance

import (
	"context"

	"FactorySense/internal/models"
)

// Store is the data access surface shared by the maintenance agents.
// The production implementation is backed by MongoDB with a Redis
// read-through cache for chat histories.
type Store interface {
	// Work orders (ERP).
	GetWorkOrder(ctx context.Context, workOrderID string) (*models.WorkOrder, error)
	UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error

	// Maintenance data (MES).
	GetMaintenanceHistory(ctx context.Context, machineID string) ([]models.MaintenanceHistory, error)
	GetAvailableMaintenanceWindows(ctx context.Context, daysAhead int) ([]models.MaintenanceWindow, error)
	SaveMaintenanceSchedule(ctx context.Context, schedule *models.MaintenanceSchedule) error

	// Inventory and suppliers (WMS / SCM).
	GetInventoryItems(ctx context.Context, partNumbers []string) ([]models.InventoryItem, error)
	GetSuppliersForParts(ctx context.Context, partNumbers []string) ([]models.Supplier, error)
	SavePartsOrder(ctx context.Context, order *models.PartsOrder) error

	// Persistent chat histories, keyed by machine or work order.
	GetMachineChatHistory(ctx context.Context, machineID string) ([]models.ChatMessage, error)
	SaveMachineChatHistory(ctx context.Context, machineID string, messages []models.ChatMessage) error
	GetWorkOrderChatHistory(ctx context.Context, workOrderID string) ([]models.ChatMessage, error)
	SaveWorkOrderChatHistory(ctx context.Context, workOrderID string, messages []models.ChatMessage) error
}
