package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hermes-backend/models"
)

var (
	_ Backend = (*MongoBackend)(nil)
	_ Store   = (*mongoRecords)(nil)
)

const countersCollection = "counters"

// nameCollation sorts and compares names case-insensitively.
var nameCollation = &options.Collation{Locale: "id", Strength: 2}

// MongoBackend stores each variant in its own collection. Surrogate ids
// come from a counters collection so records keep integer ids.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects and pings MongoDB.
func OpenMongo(ctx context.Context, opts Options) (*MongoBackend, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	uri := opts.MongoURI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := opts.MongoDatabase
	if dbName == "" {
		dbName = "hermes"
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if opts.MaxOpenConns > 0 {
		clientOpts.SetMaxPoolSize(uint64(opts.MaxOpenConns))
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("gagal terhubung ke MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("gagal melakukan ping ke MongoDB: %w", err)
	}

	return &MongoBackend{client: client, db: client.Database(dbName)}, nil
}

func (b *MongoBackend) Driver() string { return DriverMongo }

func (b *MongoBackend) Ping(ctx context.Context) error {
	return translateMongo(b.client.Ping(ctx, nil))
}

func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}

// Migrate creates the unique and lookup indexes of each variant.
func (b *MongoBackend) Migrate(ctx context.Context, variants ...models.Variant) error {
	for _, v := range variants {
		indexes := []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: v.KeyField, Value: 1}},
				Options: options.Index().SetName("uniq_" + v.KeyField).SetUnique(true),
			},
			{
				Keys: bson.D{{Key: models.FieldChatIdentity.Column(), Value: 1}},
				Options: options.Index().
					SetName("uniq_telegram_id").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{models.FieldChatIdentity.Column(): bson.M{"$exists": true}}),
			},
			{
				Keys:    bson.D{{Key: "nama", Value: 1}},
				Options: options.Index().SetName("idx_nama").SetCollation(nameCollation),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}},
				Options: options.Index().SetName("idx_status"),
			},
		}
		if _, err := b.db.Collection(v.Table).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("tidak dapat membuat index %s: %w", v.Table, translateMongo(err))
		}
	}
	return nil
}

func (b *MongoBackend) Records(v models.Variant) Store {
	return &mongoRecords{
		coll:     b.db.Collection(v.Table),
		counters: b.db.Collection(countersCollection),
		v:        v,
	}
}

type mongoRecords struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	v        models.Variant
}

func (s *mongoRecords) Variant() models.Variant { return s.v }

func (s *mongoRecords) decode(doc bson.M) (*models.Record, error) {
	rec := &models.Record{KeyField: s.v.KeyField, Metadata: map[string]any{}}

	id, ok := doc["_id"].(int64)
	if !ok {
		return nil, fmt.Errorf("unexpected _id %v in %s", doc["_id"], s.v.Table)
	}
	rec.ID = id
	rec.NaturalKey, _ = doc[s.v.KeyField].(string)
	rec.Name, _ = doc[models.FieldName.Column()].(string)

	for _, f := range models.ColumnFields[1:] {
		if v, ok := doc[f.Column()].(string); ok {
			val := v
			rec.Set(f, &val)
		}
	}
	if v, ok := doc[models.FieldChatIdentity.Column()].(string); ok {
		rec.ChatIdentity = &v
	}
	if s.v.HasMetadata {
		if m, ok := doc["additional_data"].(bson.M); ok {
			rec.Metadata = map[string]any(m)
		}
	}
	if t, ok := doc["created_at"].(primitive.DateTime); ok {
		rec.CreatedAt = t.Time().UTC()
	}
	if t, ok := doc["updated_at"].(primitive.DateTime); ok {
		rec.UpdatedAt = t.Time().UTC()
	}
	return rec, nil
}

func (s *mongoRecords) findOne(ctx context.Context, filter bson.M) (*models.Record, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, translateMongo(err)
	}
	return s.decode(doc)
}

func (s *mongoRecords) find(ctx context.Context, filter bson.M) ([]models.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "nama", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(nameCollation)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	defer cursor.Close(ctx)

	records := []models.Record{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := s.decode(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, translateMongo(err)
	}
	return records, nil
}

func (s *mongoRecords) List(ctx context.Context) ([]models.Record, error) {
	return s.find(ctx, bson.M{})
}

func (s *mongoRecords) GetByID(ctx context.Context, id int64) (*models.Record, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoRecords) GetByNaturalKey(ctx context.Context, key string) (*models.Record, error) {
	return s.findOne(ctx, bson.M{s.v.KeyField: key})
}

func (s *mongoRecords) GetByChatIdentity(ctx context.Context, handle string) (*models.Record, error) {
	return s.findOne(ctx, bson.M{models.FieldChatIdentity.Column(): handle})
}

func (s *mongoRecords) SearchByName(ctx context.Context, fragment string) ([]models.Record, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(fragment), Options: "i"}
	return s.find(ctx, bson.M{"nama": pattern})
}

func (s *mongoRecords) ListByStatus(ctx context.Context, status string) ([]models.Record, error) {
	return s.find(ctx, bson.M{"status": status})
}

func (s *mongoRecords) FindByMetadata(ctx context.Context, key string, value any) ([]models.Record, error) {
	if !s.v.HasMetadata {
		return nil, fmt.Errorf("%w: %s has no additional_data", models.ErrUnsupported, s.v.Table)
	}
	if err := validateMetadataKey(key); err != nil {
		return nil, err
	}
	return s.find(ctx, bson.M{"additional_data." + key: value})
}

// nextID increments the per-table sequence.
func (s *mongoRecords) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": s.v.Table},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, translateMongo(err)
	}
	return counter.Seq, nil
}

// fieldUpdate splits the full-replace fields of in into $set and $unset.
func (s *mongoRecords) fieldUpdate(in models.Input) (bson.M, bson.M) {
	set := bson.M{s.v.KeyField: in.NaturalKey}
	unset := bson.M{}
	for _, f := range models.ColumnFields {
		switch f {
		case models.FieldName:
			set[f.Column()] = in.Name
		case models.FieldStatus:
			set[f.Column()] = statusOrDefault(in.Status)
		default:
			if v := in.Value(f); v != "" {
				set[f.Column()] = v
			} else {
				unset[f.Column()] = ""
			}
		}
	}
	if s.v.HasMetadata {
		meta := in.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		set["additional_data"] = cloneMetadata(meta)
	}
	return set, unset
}

func (s *mongoRecords) Create(ctx context.Context, in models.Input) (*models.Record, error) {
	existing, err := s.GetByNaturalKey(ctx, in.NaturalKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s %s", models.ErrConflict, s.v.KeyField, in.NaturalKey)
	}

	id, err := s.nextID(ctx)
	if err != nil {
		return nil, err
	}
	doc, _ := s.fieldUpdate(in)
	now := time.Now().UTC()
	doc["_id"] = id
	doc["created_at"] = now
	doc["updated_at"] = now

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, translateMongo(err)
	}
	return s.mustGet(ctx, id)
}

func (s *mongoRecords) Replace(ctx context.Context, id int64, in models.Input) (*models.Record, error) {
	set, unset := s.fieldUpdate(in)
	set["updated_at"] = time.Now().UTC()
	if err := s.updateOne(ctx, id, set, unset); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

func (s *mongoRecords) Patch(ctx context.Context, id int64, p *models.Patch) (*models.Record, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return s.mustGet(ctx, id)
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	for _, f := range p.Fields() {
		if v, _ := p.Get(f); v != nil {
			set[f.Column()] = *v
		} else {
			unset[f.Column()] = ""
		}
	}
	if err := s.updateOne(ctx, id, set, unset); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, id)
}

func (s *mongoRecords) PatchMetadataKey(ctx context.Context, id int64, key string, value any) error {
	if !s.v.HasMetadata {
		return fmt.Errorf("%w: %s has no additional_data", models.ErrUnsupported, s.v.Table)
	}
	if err := validateMetadataKey(key); err != nil {
		return err
	}
	set := bson.M{
		"additional_data." + key: value,
		"updated_at":             time.Now().UTC(),
	}
	return s.updateOne(ctx, id, set, nil)
}

func (s *mongoRecords) Delete(ctx context.Context, id int64) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return translateMongo(err)
}

func (s *mongoRecords) updateOne(ctx context.Context, id int64, set, unset bson.M) error {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translateMongo(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *mongoRecords) mustGet(ctx context.Context, id int64) (*models.Record, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	return err
}
