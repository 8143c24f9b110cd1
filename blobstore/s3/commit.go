package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cohenw/hilbertcluster/blobstore"
)

// ErrConcurrentCommit is returned when another writer committed the
// same version first.
var ErrConcurrentCommit = errors.New("concurrent snapshot commit detected")

// DDBClient is the subset of the DynamoDB API the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// CommitStore publishes versioned snapshots: blob content goes to S3
// under a version-suffixed key, then a DynamoDB conditional write
// advances the latest-version pointer. S3 alone has no compare-and-swap,
// so the pointer is what lets concurrent writers coordinate safely.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 bucket/prefix joined with
//     the snapshot name ("s3://bucket/prefix/name")
//   - Sort key: version (number) - monotonically increasing version
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name hilbertcluster-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     blobstore.Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// NewCommitStore creates a commit store over an existing blob store,
// usually an S3 Store. baseURI should be "s3://bucket/prefix"; the
// partition key for a name is baseURI + "/" + name.
func NewCommitStore(store blobstore.Store, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Commit writes data as the next version of name and advances the
// latest pointer. It returns the committed version.
func (c *CommitStore) Commit(ctx context.Context, name string, data []byte) (uint64, error) {
	current, _, err := c.latest(ctx, name)
	if err != nil {
		return 0, err
	}
	version := current + 1

	key := versionedKey(name, version)
	if err := c.store.Put(ctx, key, data); err != nil {
		return 0, err
	}

	_, err = c.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: c.partitionKey(name)},
			"version":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
			"blob_key": &types.AttributeValueMemberS{Value: key},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentCommit
		}
		return 0, fmt.Errorf("commit version to DynamoDB: %w", err)
	}

	return version, nil
}

// Latest reads the most recently committed version of name. Returns
// blobstore.ErrNotFound when nothing was ever committed.
func (c *CommitStore) Latest(ctx context.Context, name string) ([]byte, uint64, error) {
	version, key, err := c.latest(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	if version == 0 {
		return nil, 0, blobstore.ErrNotFound
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	return data, version, nil
}

func (c *CommitStore) partitionKey(name string) string {
	return c.baseURI + "/" + name
}

func (c *CommitStore) latest(ctx context.Context, name string) (uint64, string, error) {
	resp, err := c.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: c.partitionKey(name)},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	keyAttr, ok := item["blob_key"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid blob_key attribute in DynamoDB")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("parse version: %w", err)
	}

	return version, keyAttr.Value, nil
}

func versionedKey(name string, version uint64) string {
	return fmt.Sprintf("%s.v%06d", name, version)
}
