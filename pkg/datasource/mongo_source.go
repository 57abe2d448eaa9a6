package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/certcraft/certcraft/pkg/dataset"
)

// MongoConfig configures a MongoSource. Exactly one of ConnString or
// DBConfig must be provided; ConnString wins when both are set. Database
// defaults to the DBConfig database when unset.
type MongoConfig struct {
	ConnString string
	DBConfig   *DBConfig
	SRV        bool // build a mongodb+srv URI from the DBConfig
	Database   string
	Collection string
	Filter     map[string]any // filter document run by LoadData
	Logger     *slog.Logger
}

// MongoSource loads tabular data from a MongoDB collection. Column names
// come from the first matched document; later documents contribute only
// those fields.
type MongoSource struct {
	cfg        MongoConfig
	connString string
	database   string
	client     *mongo.Client
	collection *mongo.Collection
	connected  bool
	logger     *slog.Logger
}

// NewMongoSource creates a MongoSource, resolving and validating the
// connection target eagerly.
func NewMongoSource(cfg MongoConfig) (*MongoSource, error) {
	connString, err := resolveConnTarget(cfg.ConnString, cfg.DBConfig, func(c DBConfig) string {
		return c.MongoURI(cfg.SRV)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid mongo source config: %w", err)
	}

	database := cfg.Database
	if database == "" && cfg.DBConfig != nil {
		database = cfg.DBConfig.Database()
	}
	if database == "" {
		return nil, fmt.Errorf("invalid mongo source config: database name is required")
	}

	if cfg.Collection == "" {
		return nil, fmt.Errorf("invalid mongo source config: collection name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MongoSource{
		cfg:        cfg,
		connString: connString,
		database:   database,
		logger:     logger,
	}, nil
}

// InitializePool creates the client with the given pool bounds and verifies
// the server is reachable.
func (s *MongoSource) InitializePool(ctx context.Context, minConns, maxConns int) error {
	if err := validatePoolBounds(minConns, maxConns); err != nil {
		return err
	}

	opts := options.Client().
		ApplyURI(s.connString).
		SetMinPoolSize(uint64(minConns)).
		SetMaxPoolSize(uint64(maxConns))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	s.client = client
	s.logger.Info("Initialized mongo client.", "min", minConns, "max", maxConns)
	return nil
}

// Connect verifies the server again and binds the collection handle.
func (s *MongoSource) Connect(ctx context.Context) error {
	if s.client == nil {
		return ErrPoolNotInitialized
	}
	if s.connected {
		return nil
	}

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	s.collection = s.client.Database(s.database).Collection(s.cfg.Collection)
	s.connected = true
	return nil
}

// Disconnect closes the client and its pool. A new InitializePool is
// required before reconnecting.
func (s *MongoSource) Disconnect(ctx context.Context) error {
	if !s.connected {
		return ErrNotConnected
	}

	err := s.client.Disconnect(ctx)
	s.client = nil
	s.collection = nil
	s.connected = false
	if err != nil {
		return fmt.Errorf("failed to disconnect mongo client: %w", err)
	}
	return nil
}

// Connected reports whether the collection handle is bound.
func (s *MongoSource) Connected() bool {
	return s.connected
}

// LoadData runs the configured filter document against the collection and
// maps the matched documents to a Dataset.
func (s *MongoSource) LoadData(ctx context.Context) (*dataset.Dataset, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}

	filter := bson.M{}
	for k, v := range s.cfg.Filter {
		filter[k] = v
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo find failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode mongo document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor failed: %w", err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrEmptyCollection, s.database, s.cfg.Collection)
	}

	columns := documentKeys(docs[0])
	ds, err := dataset.New(columns)
	if err != nil {
		return nil, fmt.Errorf("invalid mongo document keys: %w", err)
	}

	for _, doc := range docs {
		byKey := make(map[string]any, len(doc))
		for _, el := range doc {
			byKey[el.Key] = el.Value
		}
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := byKey[col]; ok {
				cells[i] = mongoCellString(v)
			}
		}
		if err := ds.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("bad mongo row: %w", err)
		}
	}

	return ds, nil
}

// Columns samples one document and returns its keys. An empty or missing
// collection is an error.
func (s *MongoSource) Columns(ctx context.Context) ([]string, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}

	var doc bson.D
	err := s.collection.FindOne(ctx, bson.D{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s.%s", ErrEmptyCollection, s.database, s.cfg.Collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sample mongo document: %w", err)
	}

	return documentKeys(doc), nil
}

// documentKeys returns the field names of a document in document order.
func documentKeys(doc bson.D) []string {
	keys := make([]string, len(doc))
	for i, el := range doc {
		keys[i] = el.Key
	}
	return keys
}

// mongoCellString renders BSON values as dataset cells, keeping ObjectIDs
// and datetimes readable.
func mongoCellString(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	default:
		return cellString(v)
	}
}
