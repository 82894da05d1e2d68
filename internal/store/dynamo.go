package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/metrics"
	"github.com/taskhive/todo-api/internal/models"
)

// observe reports the outcome and latency of a persistence call.
func observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordStoreOperation(operation, status, time.Since(start))
}

// Each table keeps its rows under a string partition key plus a single
// counter record that hands out monotonically increasing integer ids
// via an atomic ADD. The users table carries a username-index GSI; the
// items table carries an owner-index GSI keyed by owner_id.
const (
	counterPK   = "counter"
	counterAttr = "seq"
)

type userRecord struct {
	PK string `dynamodbav:"pk"`
	models.User
}

type itemRecord struct {
	PK string `dynamodbav:"pk"`
	models.Item
}

func userKey(id int64) string { return "user#" + strconv.FormatInt(id, 10) }
func itemKey(id int64) string { return "item#" + strconv.FormatInt(id, 10) }

// nextID atomically increments the table's counter record and returns
// the new value.
func nextID(ctx context.Context, client *dynamodb.Client, table string) (int64, error) {
	out, err := client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: counterPK},
		},
		UpdateExpression: aws.String("ADD " + counterAttr + " :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("counter update failed: %w", err)
	}

	attr, ok := out.Attributes[counterAttr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter attribute missing from update result")
	}
	id, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter value %q is not an integer: %w", attr.Value, err)
	}
	return id, nil
}

// DynamoUserStore implements UserStore on a DynamoDB table.
type DynamoUserStore struct {
	client *dynamodb.Client
	table  string
	logger *logrus.Logger
}

// NewDynamoUserStore creates a user store bound to the configured table.
func NewDynamoUserStore(client *dynamodb.Client, cfg *config.DynamoDBConfig, logger *logrus.Logger) *DynamoUserStore {
	return &DynamoUserStore{client: client, table: cfg.UsersTableName, logger: logger}
}

// Ping checks that the backing table is reachable.
func (s *DynamoUserStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return fmt.Errorf("dynamodb unavailable: %w", err)
	}
	return nil
}

func (s *DynamoUserStore) FindByUsername(ctx context.Context, username string) (user *models.User, err error) {
	start := time.Now()
	defer func() { observe("user.find_by_username", start, err) }()

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String("username-index"),
		KeyConditionExpression: aws.String("username = :username"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var rec userRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &rec.User, nil
}

func (s *DynamoUserStore) Create(ctx context.Context, user *models.User) (created *models.User, err error) {
	start := time.Now()
	defer func() { observe("user.create", start, err) }()

	taken, err := UsernameExists(ctx, s, user.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateUsername
	}

	id, err := nextID(ctx, s.client, s.table)
	if err != nil {
		return nil, err
	}

	rec := *user
	rec.ID = id

	item, err := attributevalue.MarshalMap(userRecord{PK: userKey(id), User: rec})
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put item failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  rec.ID,
		"username": rec.Username,
	}).Debug("User record created")

	return &rec, nil
}

// DynamoItemStore implements ItemStore on a DynamoDB table.
type DynamoItemStore struct {
	client *dynamodb.Client
	table  string
	logger *logrus.Logger
}

// NewDynamoItemStore creates an item store bound to the configured table.
func NewDynamoItemStore(client *dynamodb.Client, cfg *config.DynamoDBConfig, logger *logrus.Logger) *DynamoItemStore {
	return &DynamoItemStore{client: client, table: cfg.ItemsTableName, logger: logger}
}

func (s *DynamoItemStore) ListByOwner(ctx context.Context, ownerID int64) (items []models.Item, err error) {
	start := time.Now()
	defer func() { observe("item.list_by_owner", start, err) }()

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String("owner-index"),
		KeyConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberN{Value: strconv.FormatInt(ownerID, 10)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	items = make([]models.Item, 0, len(result.Items))
	for _, raw := range result.Items {
		var rec itemRecord
		if err := attributevalue.UnmarshalMap(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		items = append(items, rec.Item)
	}

	// GSI order is undefined; ids are assigned sequentially, so sorting
	// by id restores insertion order.
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}

func (s *DynamoItemStore) Create(ctx context.Context, ownerID int64, item *models.Item) (created *models.Item, err error) {
	start := time.Now()
	defer func() { observe("item.create", start, err) }()

	id, err := nextID(ctx, s.client, s.table)
	if err != nil {
		return nil, err
	}

	rec := *item
	rec.ID = id
	rec.OwnerID = ownerID

	raw, err := attributevalue.MarshalMap(itemRecord{PK: itemKey(id), Item: rec})
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                raw,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		return nil, fmt.Errorf("put item failed: %w", err)
	}

	return &rec, nil
}

func (s *DynamoItemStore) FindOwned(ctx context.Context, ownerID, itemID int64) (item *models.Item, err error) {
	start := time.Now()
	defer func() { observe("item.find_owned", start, err) }()

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: itemKey(itemID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var rec itemRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	if rec.OwnerID != ownerID {
		// Indistinguishable from a missing item on purpose.
		return nil, ErrNotFound
	}
	return &rec.Item, nil
}

func (s *DynamoItemStore) Update(ctx context.Context, ownerID, itemID int64, patch models.ItemPatch) (item *models.Item, err error) {
	start := time.Now()
	defer func() { observe("item.update", start, err) }()

	current, err := s.FindOwned(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	updated := *current
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.IsComplete != nil {
		updated.IsComplete = *patch.IsComplete
	}

	raw, err := attributevalue.MarshalMap(itemRecord{PK: itemKey(itemID), Item: updated})
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                raw,
		ConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberN{Value: strconv.FormatInt(ownerID, 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("put item failed: %w", err)
	}

	return &updated, nil
}

func (s *DynamoItemStore) Delete(ctx context.Context, ownerID, itemID int64) (item *models.Item, err error) {
	start := time.Now()
	defer func() { observe("item.delete", start, err) }()

	if _, err := s.FindOwned(ctx, ownerID, itemID); err != nil {
		return nil, err
	}

	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: itemKey(itemID)},
		},
		ConditionExpression: aws.String("owner_id = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberN{Value: strconv.FormatInt(ownerID, 10)},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete item failed: %w", err)
	}

	var rec itemRecord
	if err := attributevalue.UnmarshalMap(result.Attributes, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &rec.Item, nil
}
