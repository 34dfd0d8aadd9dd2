package databases

// go generate: mockery --name SchedulerLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nyagrik/nyay-api/models"
)

const schedulerLockName = "schedulerlocks"

// SchedulerLockDatabase provides a mongo-backed distributed lock so cron jobs
// run on a single instance only
type SchedulerLockDatabase interface {
	EnsureIndexes(ctx context.Context) error
	TryAcquireLock(ctx context.Context, jobName, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, jobName, instanceID string) error
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db: db,
	}
}

// EnsureIndexes creates the unique index on jobName that the acquire upsert
// relies on for mutual exclusion. Must run before the first TryAcquireLock.
func (s *schedulerLockDatabase) EnsureIndexes(ctx context.Context) error {
	unique := true
	_, err := s.db.Collection(schedulerLockName).CreateIndex(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "jobName", Value: 1}},
		Options: &options.IndexOptions{Unique: &unique},
	})
	return err
}

// TryAcquireLock upserts the lock document if it is absent or expired.
// Returns false when another live instance holds the lock. The unique index
// on jobName turns a racing insert into a duplicate key error.
func (s *schedulerLockDatabase) TryAcquireLock(ctx context.Context, jobName, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"jobName":   jobName,
		"expiresAt": bson.M{"$lt": primitive.NewDateTimeFromTime(now)},
	}
	update := bson.M{
		"$set": models.SchedulerLock{
			JobName:    jobName,
			InstanceID: instanceID,
			ExpiresAt:  primitive.NewDateTimeFromTime(now.Add(ttl)),
		},
	}
	upsert := true
	res, err := s.db.Collection(schedulerLockName).UpdateOne(ctx, filter, update, &options.UpdateOptions{Upsert: &upsert})
	if err != nil {
		// a duplicate key error means a live lock document exists
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.MatchedCount > 0 || res.UpsertedCount > 0, nil
}

// ReleaseLock deletes the lock only if this instance still owns it
func (s *schedulerLockDatabase) ReleaseLock(ctx context.Context, jobName, instanceID string) error {
	return s.db.Collection(schedulerLockName).DeleteOne(ctx, bson.M{
		"jobName":    jobName,
		"instanceId": instanceID,
	})
}
