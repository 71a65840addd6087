package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fiscus-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_Put_DuplicateID(t *testing.T) {
	api := new(mockAPI)
	repo := NewUserRepo(api, "users")
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	err := repo.Put(context.Background(), &domain.User{UserID: "u1"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUserRepo_Get_NotFound(t *testing.T) {
	api := new(mockAPI)
	repo := NewUserRepo(api, "users")
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := repo.Get(context.Background(), "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_GetByEmail(t *testing.T) {
	api := new(mockAPI)
	repo := NewUserRepo(api, "users")
	item, err := attributevalue.MarshalMap(domain.User{UserID: "u1", Email: "a@b.co"})
	require.NoError(t, err)
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == "email-index"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	u, err := repo.GetByEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	api := new(mockAPI)
	repo := NewUserRepo(api, "users")
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := repo.GetByEmail(context.Background(), "nobody@b.co")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_SetPasswordHash_MissingUser(t *testing.T) {
	api := new(mockAPI)
	repo := NewUserRepo(api, "users")
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.ConditionExpression) == "attribute_exists(#pk)" &&
			in.ExpressionAttributeNames["#f0"] == "password_hash"
	})).Return(nil, &types.ConditionalCheckFailedException{})

	err := repo.SetPasswordHash(context.Background(), "ghost", "hash")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	api.AssertExpectations(t)
}
