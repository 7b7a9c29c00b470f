package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agrikart/api/models"
)

// MongoProducts implements ProductStore over a products collection.
type MongoProducts struct {
	col *mongo.Collection
}

func NewMongoProducts(db *mongo.Database) *MongoProducts {
	return &MongoProducts{col: db.Collection("products")}
}

var _ ProductStore = (*MongoProducts)(nil)

func (s *MongoProducts) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, p)
	return err
}

func (s *MongoProducts) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoProducts) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a product. Orders keep referencing it, so the
// document itself is never removed.
func (s *MongoProducts) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"active": false, "updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProducts) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["active"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Query != "" {
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": f.Query, "$options": "i"}},
			{"tags": bson.M{"$regex": f.Query, "$options": "i"}},
		}
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit)
	skip := (page - 1) * limit
	cursor, err := s.col.Find(ctx, filter, &options.FindOptions{
		Skip:  &skip,
		Limit: &limit,
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// DecrementStock is the stock reservation: the stock guard and the decrement
// run as one conditional update, so two concurrent orders can never both take
// the last unit.
func (s *MongoProducts) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "active": true, "stock": bson.M{"$gte": qty}},
		bson.M{"$inc": bson.M{"stock": -qty}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	// Guard failed: tell a missing product apart from one that is out of stock.
	err = s.col.FindOne(ctx, bson.M{"_id": id, "active": true}).Err()
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrInsufficientStock
}

// Restock reverses a decrement on cancellation or refund. A missing product
// is not an error: cancelled orders may reference products removed since.
func (s *MongoProducts) Restock(ctx context.Context, id primitive.ObjectID, qty int) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": qty}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	return err
}

// MongoOrders implements OrderStore over an orders collection.
type MongoOrders struct {
	col *mongo.Collection
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{col: db.Collection("orders")}
}

var _ OrderStore = (*MongoOrders)(nil)

func (s *MongoOrders) Create(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, o)
	return err
}

func (s *MongoOrders) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *MongoOrders) Update(ctx context.Context, o *models.Order) error {
	o.UpdatedAt = time.Now()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": o.ID}, o)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func orderFilterDoc(f OrderFilter) bson.M {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	created := bson.M{}
	if f.From != nil {
		created["$gte"] = *f.From
	}
	if f.To != nil {
		created["$lte"] = *f.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return filter
}

func (s *MongoOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := orderFilterDoc(f)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit)
	skip := (page - 1) * limit
	cursor, err := s.col.Find(ctx, filter, &options.FindOptions{
		Skip:  &skip,
		Limit: &limit,
		Sort:  bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *MongoOrders) Stats(ctx context.Context, f OrderFilter) (*OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: orderFilterDoc(f)}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$status",
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$totalAmount"},
		}}},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := &OrderStats{ByStatus: make(map[string]int64)}
	for cursor.Next(ctx) {
		var row struct {
			Status  string  `bson:"_id"`
			Count   int64   `bson:"count"`
			Revenue float64 `bson:"revenue"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
		if row.Status != models.OrderCancelled {
			stats.TotalRevenue += row.Revenue
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// MongoAddresses implements AddressStore over an addresses collection.
type MongoAddresses struct {
	col *mongo.Collection
}

func NewMongoAddresses(db *mongo.Database) *MongoAddresses {
	return &MongoAddresses{col: db.Collection("addresses")}
}

var _ AddressStore = (*MongoAddresses)(nil)

func (s *MongoAddresses) Create(ctx context.Context, a *models.Address) error {
	if a.Id.IsZero() {
		a.Id = primitive.NewObjectID()
	}
	if a.IsDefault {
		if err := s.unsetDefaults(ctx, a.UserId, a.Id); err != nil {
			return err
		}
	}
	_, err := s.col.InsertOne(ctx, a)
	return err
}

func (s *MongoAddresses) Update(ctx context.Context, a *models.Address) error {
	if a.IsDefault {
		if err := s.unsetDefaults(ctx, a.UserId, a.Id); err != nil {
			return err
		}
	}
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": a.Id, "userId": a.UserId}, a)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// unsetDefaults keeps the at-most-one-default invariant: whenever an address
// is saved with the flag set, every other address of the user loses it.
func (s *MongoAddresses) unsetDefaults(ctx context.Context, userID, except primitive.ObjectID) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"userId": userID, "_id": bson.M{"$ne": except}},
		bson.M{"$set": bson.M{"isDefault": false}},
	)
	return err
}

func (s *MongoAddresses) GetByID(ctx context.Context, id, userID primitive.ObjectID) (*models.Address, error) {
	var a models.Address
	err := s.col.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MongoAddresses) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	cursor, err := s.col.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	addresses := make([]models.Address, 0)
	if err := cursor.All(ctx, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (s *MongoAddresses) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoUsers implements UserStore over a users collection.
type MongoUsers struct {
	col *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{col: db.Collection("users")}
}

var _ UserStore = (*MongoUsers)(nil)

func (s *MongoUsers) Create(ctx context.Context, u *models.User) error {
	err := s.col.FindOne(ctx, bson.M{"email": u.Email}).Err()
	if err == nil {
		return ErrDuplicateEmail
	}
	if err != mongo.ErrNoDocuments {
		return err
	}
	if u.Id.IsZero() {
		u.Id = primitive.NewObjectID()
	}
	_, err = s.col.InsertOne(ctx, u)
	return err
}

func (s *MongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizePage(page, limit int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
