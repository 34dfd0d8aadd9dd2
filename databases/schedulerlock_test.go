package databases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/databases/mocks"
)

func TestSchedulerLockDatabase_TryAcquireLock(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{UpsertedCount: 1}, nil).Once()

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerlocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "hearing_reminder_job", "instance-1", 10*time.Minute)
	assert.NoError(t, err)
	assert.True(t, acquired)

	// the unique jobName index turns a racing upsert into a duplicate key
	// error, which means another live instance holds the lock
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}).Once()

	acquired, err = lockDba.TryAcquireLock(context.Background(), "hearing_reminder_job", "instance-2", 10*time.Minute)
	assert.NoError(t, err)
	assert.False(t, acquired)

	// any other store failure must surface, not masquerade as contention
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("mocked-error")).Once()

	acquired, err = lockDba.TryAcquireLock(context.Background(), "hearing_reminder_job", "instance-3", 10*time.Minute)
	assert.Error(t, err)
	assert.False(t, acquired)
}

func TestSchedulerLockDatabase_EnsureIndexes(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("CreateIndex", mock.Anything, mock.Anything).
		Return("jobName_1", nil).Run(func(args mock.Arguments) {
		model := args.Get(1).(mongo.IndexModel)
		assert.NotNil(t, model.Options.Unique)
		assert.True(t, *model.Options.Unique)
	})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerlocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	err := lockDba.EnsureIndexes(context.Background())
	assert.NoError(t, err)
}

func TestSchedulerLockDatabase_ReleaseLock(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("DeleteOne", mock.Anything, mock.Anything).
		Return(nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerlocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	err := lockDba.ReleaseLock(context.Background(), "hearing_reminder_job", "instance-1")
	assert.NoError(t, err)
}
