package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"FactorySense/internal/models"
	"FactorySense/pkg/logger"
)

// Collection names inside the factory database.
const (
	collWorkOrders           = "WorkOrders"
	collMaintenanceHistory   = "MaintenanceHistory"
	collMaintenanceWindows   = "MaintenanceWindows"
	collMaintenanceSchedules = "MaintenanceSchedules"
	collChatHistories        = "ChatHistories"
	collPartsInventory       = "PartsInventory"
	collSuppliers            = "Suppliers"
	collPartsOrders          = "PartsOrders"
)

const chatHistoryCacheTTL = 10 * time.Minute

// MongoStore implements Store on top of MongoDB. A Redis client, when
// provided, acts as a read-through cache for chat histories so repeated
// scheduling rounds for the same machine avoid a Mongo round trip.
type MongoStore struct {
	db    *mongo.Database
	cache *redis.Client
	log   *logger.Logger
}

func NewMongoStore(client *mongo.Client, dbName string, cache *redis.Client) *MongoStore {
	return &MongoStore{
		db:    client.Database(dbName),
		cache: cache,
		log:   logger.New("maintenance-store", "", ""),
	}
}

func (s *MongoStore) GetWorkOrder(ctx context.Context, workOrderID string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := s.db.Collection(collWorkOrders).FindOne(ctx, bson.M{"_id": workOrderID}).Decode(&wo)
	if err != nil {
		return nil, fmt.Errorf("work order %s: %w", workOrderID, err)
	}
	return &wo, nil
}

func (s *MongoStore) UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error {
	_, err := s.db.Collection(collWorkOrders).UpdateOne(ctx,
		bson.M{"_id": workOrderID},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update work order %s status: %w", workOrderID, err)
	}
	return nil
}

func (s *MongoStore) GetMaintenanceHistory(ctx context.Context, machineID string) ([]models.MaintenanceHistory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurrenceDate", Value: -1}})
	cur, err := s.db.Collection(collMaintenanceHistory).Find(ctx, bson.M{"machineId": machineID}, opts)
	if err != nil {
		return nil, fmt.Errorf("maintenance history for %s: %w", machineID, err)
	}
	defer cur.Close(ctx)

	var history []models.MaintenanceHistory
	if err := cur.All(ctx, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GetAvailableMaintenanceWindows returns the free windows over the next
// daysAhead days. When the planning system has not published any windows
// yet, a nightly low-impact window per day is synthesized so scheduling
// can still proceed.
func (s *MongoStore) GetAvailableMaintenanceWindows(ctx context.Context, daysAhead int) ([]models.MaintenanceWindow, error) {
	now := time.Now().UTC()
	until := now.AddDate(0, 0, daysAhead)
	filter := bson.M{
		"isAvailable": true,
		"startTime":   bson.M{"$gte": now, "$lte": until},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})
	cur, err := s.db.Collection(collMaintenanceWindows).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("maintenance windows: %w", err)
	}
	defer cur.Close(ctx)

	var windows []models.MaintenanceWindow
	if err := cur.All(ctx, &windows); err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		s.log.Warn("no maintenance windows published, falling back to nightly windows")
		windows = defaultNightlyWindows(now, daysAhead)
	}
	return windows, nil
}

// defaultNightlyWindows builds one 22:00-06:00 window per night with low
// production impact.
func defaultNightlyWindows(from time.Time, days int) []models.MaintenanceWindow {
	windows := make([]models.MaintenanceWindow, 0, days)
	for i := 1; i <= days; i++ {
		day := from.AddDate(0, 0, i)
		start := time.Date(day.Year(), day.Month(), day.Day(), 22, 0, 0, 0, time.UTC)
		windows = append(windows, models.MaintenanceWindow{
			ID:               fmt.Sprintf("mw-%s-night", day.Format("2006-01-02")),
			StartTime:        start,
			EndTime:          start.Add(8 * time.Hour),
			IsAvailable:      true,
			ProductionImpact: "Low",
		})
	}
	return windows
}

func (s *MongoStore) SaveMaintenanceSchedule(ctx context.Context, schedule *models.MaintenanceSchedule) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.db.Collection(collMaintenanceSchedules).ReplaceOne(ctx, bson.M{"_id": schedule.ID}, schedule, opts)
	if err != nil {
		return fmt.Errorf("save maintenance schedule %s: %w", schedule.ID, err)
	}
	return nil
}

// GetInventoryItems matches either the part number or the document id so
// callers can pass whichever identifier the work order carries.
func (s *MongoStore) GetInventoryItems(ctx context.Context, partNumbers []string) ([]models.InventoryItem, error) {
	if len(partNumbers) == 0 {
		return nil, nil
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"partNumber": bson.M{"$in": partNumbers}},
		bson.M{"_id": bson.M{"$in": partNumbers}},
	}}
	cur, err := s.db.Collection(collPartsInventory).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("inventory items: %w", err)
	}
	defer cur.Close(ctx)

	var items []models.InventoryItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetSuppliersForParts returns suppliers stocking at least one of the
// given parts. An empty supplier catalog falls back to two built-in
// suppliers so ordering keeps working in demo environments.
func (s *MongoStore) GetSuppliersForParts(ctx context.Context, partNumbers []string) ([]models.Supplier, error) {
	filter := bson.M{}
	if len(partNumbers) > 0 {
		filter["parts"] = bson.M{"$in": partNumbers}
	}
	cur, err := s.db.Collection(collSuppliers).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("suppliers: %w", err)
	}
	defer cur.Close(ctx)

	var suppliers []models.Supplier
	if err := cur.All(ctx, &suppliers); err != nil {
		return nil, err
	}
	if len(suppliers) == 0 {
		s.log.Warn("no suppliers in catalog, falling back to default suppliers")
		suppliers = defaultSuppliers(partNumbers)
	}
	return suppliers, nil
}

func defaultSuppliers(partNumbers []string) []models.Supplier {
	return []models.Supplier{
		{
			ID:           "supplier-001",
			Name:         "Industrial Parts Supply Co.",
			Reliability:  "High",
			LeadTimeDays: 3,
			Parts:        partNumbers,
		},
		{
			ID:           "supplier-002",
			Name:         "Quick Parts Ltd.",
			Reliability:  "Medium",
			LeadTimeDays: 1,
			Parts:        partNumbers,
		},
	}
}

func (s *MongoStore) SavePartsOrder(ctx context.Context, order *models.PartsOrder) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.db.Collection(collPartsOrders).ReplaceOne(ctx, bson.M{"_id": order.ID}, order, opts)
	if err != nil {
		return fmt.Errorf("save parts order %s: %w", order.ID, err)
	}
	return nil
}

// chatHistoryDoc is the persisted shape of a conversation history.
type chatHistoryDoc struct {
	ID          string `bson:"_id"`
	EntityID    string `bson:"entityId"`
	EntityType  string `bson:"entityType"`
	HistoryJSON string `bson:"historyJson"`
	Purpose     string `bson:"purpose"`
	UpdatedAt   string `bson:"updatedAt"`
}

func (s *MongoStore) GetMachineChatHistory(ctx context.Context, machineID string) ([]models.ChatMessage, error) {
	return s.getChatHistory(ctx, "machine", machineID)
}

func (s *MongoStore) SaveMachineChatHistory(ctx context.Context, machineID string, messages []models.ChatMessage) error {
	return s.saveChatHistory(ctx, "machine", machineID, "maintenance_scheduling", messages)
}

func (s *MongoStore) GetWorkOrderChatHistory(ctx context.Context, workOrderID string) ([]models.ChatMessage, error) {
	return s.getChatHistory(ctx, "workorder", workOrderID)
}

func (s *MongoStore) SaveWorkOrderChatHistory(ctx context.Context, workOrderID string, messages []models.ChatMessage) error {
	return s.saveChatHistory(ctx, "workorder", workOrderID, "parts_ordering", messages)
}

func chatHistoryKey(entityType, entityID string) string {
	return fmt.Sprintf("chat:%s:%s", entityType, entityID)
}

func (s *MongoStore) getChatHistory(ctx context.Context, entityType, entityID string) ([]models.ChatMessage, error) {
	key := chatHistoryKey(entityType, entityID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
			var messages []models.ChatMessage
			if err := json.Unmarshal([]byte(raw), &messages); err == nil {
				return messages, nil
			}
			// Corrupt cache entry, fall through to Mongo.
			s.cache.Del(ctx, key)
		}
	}

	var doc chatHistoryDoc
	err := s.db.Collection(collChatHistories).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat history %s: %w", key, err)
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal([]byte(doc.HistoryJSON), &messages); err != nil {
		return nil, fmt.Errorf("decode chat history %s: %w", key, err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, doc.HistoryJSON, chatHistoryCacheTTL)
	}
	return messages, nil
}

func (s *MongoStore) saveChatHistory(ctx context.Context, entityType, entityID, purpose string, messages []models.ChatMessage) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	key := chatHistoryKey(entityType, entityID)
	doc := chatHistoryDoc{
		ID:          key,
		EntityID:    entityID,
		EntityType:  entityType,
		HistoryJSON: string(raw),
		Purpose:     purpose,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.db.Collection(collChatHistories).ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("save chat history %s: %w", key, err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, string(raw), chatHistoryCacheTTL)
	}
	return nil
}
