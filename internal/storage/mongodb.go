package storage

import (
	"context"
	"fmt"
	"time"

	"campaign-engine/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore implements Store on top of MongoDB. Conditional transitions use
// filtered updates and counters use $inc, so claims and analytics stay
// correct under concurrent worker runs and tracking hits.
type MongoStore struct {
	client     *mongo.Client
	events     *mongo.Collection
	campaigns  *mongo.Collection
	templates  *mongo.Collection
	users      *mongo.Collection
	deliveries *mongo.Collection
	logger     *zap.Logger
}

func NewMongoStore(uri, database string, logger *zap.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetSocketTimeout(30 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logger.Info("Successfully connected to MongoDB",
		zap.String("database", database),
	)

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		events:     db.Collection("events"),
		campaigns:  db.Collection("campaigns"),
		templates:  db.Collection("templates"),
		users:      db.Collection("users"),
		deliveries: db.Collection("deliveries"),
		logger:     logger,
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "processed", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := s.events.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return err
	}

	campaignIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "trigger_event_type", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.campaigns.Indexes().CreateMany(ctx, campaignIndexes); err != nil {
		return err
	}

	templateIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.templates.Indexes().CreateMany(ctx, templateIndexes); err != nil {
		return err
	}

	deliveryIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tracking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_for", Value: 1}}},
		{Keys: bson.D{{Key: "provider_message_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		// One delivery per (event, campaign) pair.
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "campaign_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := s.deliveries.Indexes().CreateMany(ctx, deliveryIndexes); err != nil {
		return err
	}

	return nil
}

// Events

func (s *MongoStore) InsertEvent(ctx context.Context, event *models.Event) error {
	_, err := s.events.InsertOne(ctx, event)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *MongoStore) UnprocessedEvents(ctx context.Context, limit int) ([]*models.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.events.Find(ctx, bson.M{"processed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*models.Event
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *MongoStore) AppendTriggeredCampaign(ctx context.Context, eventID string, tc models.TriggeredCampaign) error {
	update := bson.M{
		"$push": bson.M{"triggered_campaigns": tc},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := s.events.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	return err
}

func (s *MongoStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	update := bson.M{
		"$set": bson.M{
			"processed":  true,
			"updated_at": time.Now().UTC(),
		},
	}
	_, err := s.events.UpdateOne(ctx, bson.M{"_id": eventID}, update)
	return err
}

// Campaigns

func (s *MongoStore) InsertCampaign(ctx context.Context, campaign *models.Campaign) error {
	_, err := s.campaigns.InsertOne(ctx, campaign)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.campaigns.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (s *MongoStore) ActiveCampaignsByTrigger(ctx context.Context, eventType string) ([]*models.Campaign, error) {
	filter := bson.M{
		"trigger_event_type": eventType,
		"status":             models.CampaignStatusActive,
	}

	cursor, err := s.campaigns.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var campaigns []*models.Campaign
	if err = cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (s *MongoStore) IncrementCampaignStat(ctx context.Context, campaignID, stat string, delta int64) error {
	update := bson.M{
		"$inc": bson.M{"analytics." + stat: delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.campaigns.UpdateOne(ctx, bson.M{"_id": campaignID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Templates

func (s *MongoStore) InsertTemplate(ctx context.Context, template *models.Template) error {
	_, err := s.templates.InsertOne(ctx, template)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var template models.Template
	err := s.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// Users

func (s *MongoStore) InsertUser(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Deliveries

func (s *MongoStore) InsertDelivery(ctx context.Context, delivery *models.Delivery) error {
	_, err := s.deliveries.InsertOne(ctx, delivery)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) GetDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	return s.findDelivery(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetDeliveryByTrackingID(ctx context.Context, trackingID string) (*models.Delivery, error) {
	return s.findDelivery(ctx, bson.M{"tracking_id": trackingID})
}

func (s *MongoStore) GetDeliveryByProviderMessageID(ctx context.Context, messageID string) (*models.Delivery, error) {
	return s.findDelivery(ctx, bson.M{"provider_message_id": messageID})
}

func (s *MongoStore) findDelivery(ctx context.Context, filter bson.M) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.deliveries.FindOne(ctx, filter).Decode(&delivery)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (s *MongoStore) DueDeliveries(ctx context.Context, now time.Time, limit int) ([]*models.Delivery, error) {
	filter := bson.M{
		"status":        models.DeliveryStatusScheduled,
		"scheduled_for": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_for", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.deliveries.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var deliveries []*models.Delivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (s *MongoStore) ClaimDelivery(ctx context.Context, id string) (bool, error) {
	filter := bson.M{
		"_id":    id,
		"status": models.DeliveryStatusScheduled,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.DeliveryStatusSending,
			"updated_at": time.Now().UTC(),
		},
	}
	res, err := s.deliveries.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) MarkDeliverySent(ctx context.Context, id, providerMessageID string, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"status":              models.DeliveryStatusSent,
			"sent_at":             at,
			"provider_message_id": providerMessageID,
			"updated_at":          at,
		},
	}
	_, err := s.deliveries.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *MongoStore) MarkDeliveryFailed(ctx context.Context, id, errorMessage string) error {
	update := bson.M{
		"$set": bson.M{
			"status":        models.DeliveryStatusFailed,
			"error_message": errorMessage,
			"updated_at":    time.Now().UTC(),
		},
	}
	_, err := s.deliveries.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *MongoStore) TransitionDelivery(ctx context.Context, id string, to models.DeliveryStatus, at time.Time) (bool, error) {
	set := bson.M{
		"status":     to,
		"updated_at": at,
	}
	if field := statusTimestampField(to); field != "" {
		set[field] = at
	}

	// Forward-only: the filter admits only statuses below the target rank,
	// so a clicked delivery never rewinds to opened and a late delivered
	// callback never downgrades an opened one.
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": transitionableFrom(to)},
	}
	res, err := s.deliveries.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) IncrementLinkClick(ctx context.Context, deliveryID string, linkIndex int, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{fmt.Sprintf("links.%d.click_count", linkIndex): int64(1)},
		"$set": bson.M{
			fmt.Sprintf("links.%d.last_clicked_at", linkIndex): at,
			"updated_at": at,
		},
	}
	res, err := s.deliveries.UpdateOne(ctx, bson.M{"_id": deliveryID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// statusTimestampField maps a status to the timestamp stamped on first entry.
func statusTimestampField(status models.DeliveryStatus) string {
	switch status {
	case models.DeliveryStatusSent:
		return "sent_at"
	case models.DeliveryStatusDelivered:
		return "delivered_at"
	case models.DeliveryStatusOpened:
		return "opened_at"
	case models.DeliveryStatusClicked:
		return "clicked_at"
	}
	return ""
}
