package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoKeyValueStore
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type dynamoKey struct {
	Key string `dynamodbav:"key"`
}

type dynamoItem struct {
	Key       string    `dynamodbav:"key"`
	Value     string    `dynamodbav:"value"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// DynamoKeyValueStore keeps values in a DynamoDB table with string hash key "key".
// The table must already exist.
type DynamoKeyValueStore struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

func NewDynamoKeyValueStore(client DynamoAPI, table string) *DynamoKeyValueStore {
	return &DynamoKeyValueStore{client: client, table: table, now: func() time.Time { return time.Now().UTC() }}
}

// CheckTable verifies the table is reachable (read-only)
func (s *DynamoKeyValueStore) CheckTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("%w: describe table %s: %v", ErrPersistenceUnavailable, s.table, err)
	}
	return nil
}

func (s *DynamoKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	k, err := attributevalue.MarshalMap(dynamoKey{Key: key})
	if err != nil {
		return "", false, fmt.Errorf("marshal dynamo key: %w", err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: dynamo get %s: %v", ErrPersistenceUnavailable, key, err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, fmt.Errorf("%w: dynamo item %s: %v", ErrMalformedStoredData, key, err)
	}
	return item.Value, true, nil
}

func (s *DynamoKeyValueStore) Set(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(dynamoItem{Key: key, Value: value, UpdatedAt: s.now()})
	if err != nil {
		return fmt.Errorf("marshal dynamo item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: dynamo put %s: %v", ErrPersistenceUnavailable, key, err)
	}
	return nil
}

func (s *DynamoKeyValueStore) Delete(ctx context.Context, key string) error {
	k, err := attributevalue.MarshalMap(dynamoKey{Key: key})
	if err != nil {
		return fmt.Errorf("marshal dynamo key: %w", err)
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       k,
	})
	if err != nil {
		return fmt.Errorf("%w: dynamo delete %s: %v", ErrPersistenceUnavailable, key, err)
	}
	return nil
}
