package database

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"smart-cart-service/apperrors"
)

// MongoLedger is the remote ledger client: a thin document get/set/update/
// query layer over MongoDB plus the process-wide connectivity state.
//
// Every operation is bounded by the configured timeout and reports any
// transport failure as ErrRemoteUnavailable. The ledger never retries;
// the synchronizer and the relay own fallback policy. While the state is
// already Offline, calls short-circuit to ErrRemoteUnavailable immediately;
// only the connectivity probe re-establishes Online, so callers are not
// stalled by a dead link on every write.
type MongoLedger struct {
	db      *mongo.Database
	timeout time.Duration
	log     *zap.Logger

	online atomic.Bool
	forced atomic.Bool // force-offline switch, wins over probing
}

// NewMongoLedger wraps a database handle. db may be nil (no remote
// configured or the initial dial failed); the ledger then reports Offline
// until a later probe succeeds, which for a nil handle is never, matching
// a cart provisioned without credentials.
func NewMongoLedger(db *mongo.Database, timeout time.Duration, log *zap.Logger) *MongoLedger {
	l := &MongoLedger{db: db, timeout: timeout, log: log}
	l.online.Store(db != nil)
	return l
}

// Online reports the last known connectivity state.
func (l *MongoLedger) Online() bool {
	if l.forced.Load() {
		return false
	}
	return l.online.Load()
}

// ForceOffline pins the ledger to Offline regardless of probing. Used by
// tests and by operators draining a cart before maintenance.
func (l *MongoLedger) ForceOffline(force bool) {
	l.forced.Store(force)
}

// ProbeConnectivity issues a lightweight ping and updates the connectivity
// state as a side effect.
func (l *MongoLedger) ProbeConnectivity(ctx context.Context) bool {
	if l.forced.Load() {
		l.online.Store(false)
		return false
	}
	if l.db == nil {
		l.online.Store(false)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		if l.online.Swap(false) {
			l.log.Warn("remote ledger went offline", zap.Error(err))
		}
		return false
	}
	if !l.online.Swap(true) {
		l.log.Info("remote ledger back online")
	}
	return true
}

// CreateDocument inserts data into a collection and returns the generated id.
func (l *MongoLedger) CreateDocument(ctx context.Context, collection string, data map[string]any) (string, error) {
	if !l.Online() {
		return "", apperrors.ErrRemoteUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	id := primitive.NewObjectID().Hex()
	doc := bson.M{"_id": id}
	for k, v := range data {
		doc[k] = v
	}

	if _, err := l.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", l.remoteFailure("insert", collection, err)
	}
	return id, nil
}

// GetDocument fetches a document by id. A missing document is ErrNotFound,
// distinct from transport failure.
func (l *MongoLedger) GetDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	if !l.Online() {
		return nil, apperrors.ErrRemoteUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var doc bson.M
	err := l.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, l.remoteFailure("find", collection, err)
	}
	return fromBSON(doc), nil
}

// UpdateDocument applies a partial $set update, creating the document when
// it does not exist yet. Upsert keeps ids minted during an outage writable
// once the link returns.
func (l *MongoLedger) UpdateDocument(ctx context.Context, collection, id string, partial map[string]any) error {
	if !l.Online() {
		return apperrors.ErrRemoteUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	if _, err := l.db.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": bson.M(partial)}, opts); err != nil {
		return l.remoteFailure("update", collection, err)
	}
	return nil
}

// QueryByField returns up to limit documents where field equals value,
// sorted by orderBy descending (newest first when ordering on a timestamp).
func (l *MongoLedger) QueryByField(ctx context.Context, collection, field string, value any, orderBy string, limit int64) ([]map[string]any, error) {
	if !l.Online() {
		return nil, apperrors.ErrRemoteUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	filter := bson.M{}
	if field != "" {
		filter[field] = value
	}
	findOptions := options.Find()
	if orderBy != "" {
		findOptions.SetSort(bson.D{{Key: orderBy, Value: -1}})
	}
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := l.db.Collection(collection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, l.remoteFailure("query", collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, l.remoteFailure("query", collection, err)
	}

	docs := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, fromBSON(d))
	}
	return docs, nil
}

func (l *MongoLedger) remoteFailure(op, collection string, err error) error {
	if l.online.Swap(false) {
		l.log.Warn("remote ledger call failed, marking offline",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Error(err),
		)
	}
	return apperrors.Wrap(apperrors.ErrRemoteUnavailable, err)
}

// fromBSON normalizes driver types into plain maps so the rest of the core
// handles one document shape regardless of which store produced it.
func fromBSON(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = normalizeBSON(v)
	}
	return out
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSON(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case bson.A:
		arr := make([]any, len(t))
		for i, e := range t {
			arr[i] = normalizeBSON(e)
		}
		return arr
	case primitive.DateTime:
		return t.Time()
	default:
		return v
	}
}
