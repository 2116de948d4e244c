// Package store persists finished evaluation rounds to MongoDB.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

const (
	CollEvalRound = "eval_round"

	EvalRoundFieldRunID     = "runID"
	EvalRoundFieldDataset   = "dataset"
	EvalRoundFieldCreatedAt = "createdAt"
)

var ErrRoundNotFound = errors.New("evaluation round not found")

// EvalRound is one finished evaluation of one dataset by one process group.
type EvalRound struct {
	RunID     string        `json:"runID" bson:"runID"`
	Dataset   string        `json:"dataset" bson:"dataset"`
	Kind      string        `json:"kind" bson:"kind"`
	WorldSize int           `json:"worldSize" bson:"worldSize"`
	Metrics   types.Metrics `json:"metrics" bson:"metrics"`
	CreatedAt int64         `json:"createdAt" bson:"createdAt"`
}

// NewRound stamps a round document with a fresh run id and creation time.
func NewRound(dataset, kind string, worldSize int, metrics types.Metrics) *EvalRound {
	return &EvalRound{
		RunID:     uuid.New().String(),
		Dataset:   dataset,
		Kind:      kind,
		WorldSize: worldSize,
		Metrics:   metrics,
		CreatedAt: time.Now().Unix(),
	}
}

type Store struct {
	col *mongo.Collection
}

// New connects to MongoDB and binds the round collection.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Store{col: client.Database(database).Collection(CollEvalRound)}, nil
}

// NewWithCollection binds an existing collection, for callers that manage the
// client themselves.
func NewWithCollection(col *mongo.Collection) *Store {
	return &Store{col: col}
}

func (s *Store) Close(ctx context.Context) error {
	return s.col.Database().Client().Disconnect(ctx)
}

func (s *Store) Insert(ctx context.Context, round *EvalRound) error {
	if round == nil {
		return nil
	}
	if _, err := s.col.InsertOne(ctx, round); err != nil {
		log.WithError(err).Error("failed to insert evaluation round")
		return err
	}
	return nil
}

func (s *Store) FindByRun(ctx context.Context, runID string) (*EvalRound, error) {
	round := &EvalRound{}
	if err := s.col.FindOne(ctx, bson.M{EvalRoundFieldRunID: runID}).Decode(round); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return round, nil
}

// FindByDataset lists the rounds recorded for a dataset, newest first.
func (s *Store) FindByDataset(ctx context.Context, dataset string) ([]*EvalRound, error) {
	cur, err := s.col.Find(ctx, bson.M{EvalRoundFieldDataset: dataset},
		options.Find().SetSort(bson.M{EvalRoundFieldCreatedAt: -1}))
	if err != nil {
		return nil, err
	}
	var rounds []*EvalRound
	if err := cur.All(ctx, &rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}
