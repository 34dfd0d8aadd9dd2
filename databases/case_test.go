package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nyagrik/nyay-api/databases"
	"github.com/nyagrik/nyay-api/databases/mocks"
	"github.com/nyagrik/nyay-api/models"
)

func TestCaseDatabase_UpdateOneReturnsMatchCounts(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), bson.M{"matched": true}, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", context.Background(), bson.M{"matched": false}, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	res, err := caseDba.UpdateOne(context.Background(), bson.M{"matched": true}, bson.M{"$set": bson.M{"case.status": "in_progress"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)

	// a compare-and-set losing the race matches nothing
	res, err = caseDba.UpdateOne(context.Background(), bson.M{"matched": false}, bson.M{"$set": bson.M{"case.status": "in_progress"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), res.MatchedCount)
}

func TestCaseDatabase_InsertOne(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	insertResult := &mocks.InsertOneResultHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("InsertOne", context.Background(), mock.Anything).
		Return(insertResult, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	res, err := caseDba.InsertOne(context.Background(), models.Case{})
	assert.NoError(t, err)
	assert.NotNil(t, res)
}

func TestCaseDatabase_FindErrorPropagates(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), mock.Anything).
		Return(nil, errors.New("mocked-error"))

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "cases").Return(collectionHelper)

	caseDba := databases.NewCaseDatabase(dbHelper)

	cases, err := caseDba.Find(context.Background(), bson.M{"case.status": "open"})
	assert.Nil(t, cases)
	assert.EqualError(t, err, "mocked-error")
}
