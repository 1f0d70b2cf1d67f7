package models

import "time"

// RequiredPart 维修所需的零件。
type RequiredPart struct {
	PartNumber  string `json:"partNumber" bson:"partNumber"`
	PartName    string `json:"partName" bson:"partName"`
	Quantity    int    `json:"quantity" bson:"quantity"`
	IsAvailable bool   `json:"isAvailable" bson:"isAvailable"`
}

// WorkOrder 由维修规划 Agent 产生的工单。
type WorkOrder struct {
	ID                 string         `json:"id" bson:"_id"`
	MachineID          string         `json:"machineId" bson:"machineId"`
	FaultType          string         `json:"faultType" bson:"faultType"`
	Priority           string         `json:"priority" bson:"priority"`
	AssignedTechnician string         `json:"assignedTechnician" bson:"assignedTechnician"`
	RequiredParts      []RequiredPart `json:"requiredParts" bson:"requiredParts"`
	EstimatedDuration  int            `json:"estimatedDuration" bson:"estimatedDuration"` // 分钟
	CreatedAt          time.Time      `json:"createdAt" bson:"createdAt"`
	Status             string         `json:"status" bson:"status"`
}

// 工单状态流转。
const (
	WorkOrderCreated      = "Created"
	WorkOrderScheduled    = "Scheduled"
	WorkOrderReady        = "Ready"
	WorkOrderPartsOrdered = "PartsOrdered"
)

// MaintenanceWindow MES 系统中可用的维护窗口。
type MaintenanceWindow struct {
	ID               string    `json:"id" bson:"_id"`
	StartTime        time.Time `json:"startTime" bson:"startTime"`
	EndTime          time.Time `json:"endTime" bson:"endTime"`
	ProductionImpact string    `json:"productionImpact" bson:"productionImpact"`
	IsAvailable      bool      `json:"isAvailable" bson:"isAvailable"`
}

// MaintenanceSchedule 预测性维护排程结果。
type MaintenanceSchedule struct {
	ID                          string             `json:"id" bson:"_id"`
	WorkOrderID                 string             `json:"workOrderId" bson:"workOrderId"`
	MachineID                   string             `json:"machineId" bson:"machineId"`
	ScheduledDate               time.Time          `json:"scheduledDate" bson:"scheduledDate"`
	MaintenanceWindow           *MaintenanceWindow `json:"maintenanceWindow" bson:"maintenanceWindow"`
	RiskScore                   float64            `json:"riskScore" bson:"riskScore"`
	PredictedFailureProbability float64            `json:"predictedFailureProbability" bson:"predictedFailureProbability"`
	RecommendedAction           string             `json:"recommendedAction" bson:"recommendedAction"`
	Reasoning                   string             `json:"reasoning" bson:"reasoning"`
	CreatedAt                   time.Time          `json:"createdAt" bson:"createdAt"`
}

// MaintenanceHistory 历史维护记录。
type MaintenanceHistory struct {
	ID             string    `json:"id" bson:"_id"`
	MachineID      string    `json:"machineId" bson:"machineId"`
	FaultType      string    `json:"faultType" bson:"faultType"`
	OccurrenceDate time.Time `json:"occurrenceDate" bson:"occurrenceDate"`
	ResolutionDate time.Time `json:"resolutionDate" bson:"resolutionDate"`
	Downtime       int       `json:"downtime" bson:"downtime"` // 分钟
	Cost           float64   `json:"cost" bson:"cost"`
}

// InventoryItem WMS 系统中的库存条目。
type InventoryItem struct {
	ID           string `json:"id" bson:"_id"`
	PartNumber   string `json:"partNumber" bson:"partNumber"`
	PartName     string `json:"partName" bson:"partName"`
	CurrentStock int    `json:"currentStock" bson:"currentStock"`
	MinStock     int    `json:"minStock" bson:"minStock"`
	ReorderPoint int    `json:"reorderPoint" bson:"reorderPoint"`
	Location     string `json:"location" bson:"location"`
}

// Supplier SCM 系统中的供应商信息。
type Supplier struct {
	ID           string   `json:"id" bson:"_id"`
	Name         string   `json:"name" bson:"name"`
	Parts        []string `json:"parts" bson:"parts"`
	LeadTimeDays int      `json:"leadTimeDays" bson:"leadTimeDays"`
	Reliability  string   `json:"reliability" bson:"reliability"`
	ContactEmail string   `json:"contactEmail" bson:"contactEmail"`
}

// OrderItem 零件订单中的单个条目。
type OrderItem struct {
	PartNumber string  `json:"partNumber" bson:"partNumber"`
	PartName   string  `json:"partName" bson:"partName"`
	Quantity   int     `json:"quantity" bson:"quantity"`
	UnitCost   float64 `json:"unitCost" bson:"unitCost"`
	TotalCost  float64 `json:"totalCost" bson:"totalCost"`
}

// PartsOrder 提交给 SCM 系统的零件订单。
type PartsOrder struct {
	ID                   string      `json:"id" bson:"_id"`
	WorkOrderID          string      `json:"workOrderId" bson:"workOrderId"`
	OrderItems           []OrderItem `json:"orderItems" bson:"orderItems"`
	SupplierID           string      `json:"supplierId" bson:"supplierId"`
	SupplierName         string      `json:"supplierName" bson:"supplierName"`
	TotalCost            float64     `json:"totalCost" bson:"totalCost"`
	ExpectedDeliveryDate time.Time   `json:"expectedDeliveryDate" bson:"expectedDeliveryDate"`
	OrderStatus          string      `json:"orderStatus" bson:"orderStatus"`
	CreatedAt            time.Time   `json:"createdAt" bson:"createdAt"`
}

// ChatMessage 持久化的对话消息。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
