/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/rs/zerolog"

	"github.com/suparena/persistence/cloud"
	perrors "github.com/suparena/persistence/errors"
	"github.com/suparena/persistence/storagemodels"
)

// API is the subset of the DynamoDB client used by Container
type API interface {
	DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
}

// DefaultIndexMap keys items by scope and entity, then by object key
func DefaultIndexMap() map[string]string {
	return map[string]string{
		"PK": "{Scope}#{Entity}",
		"SK": "{Key}",
	}
}

// Container implements cloud.Container over DynamoDB tables.
type Container struct {
	client       API
	indexMap     map[string]string
	maxRetries   int
	retryBackoff time.Duration
	log          zerolog.Logger
}

// Option configures a Container
type Option func(*Container)

// WithIndexMap replaces the key macros. The map must produce PK and SK.
func WithIndexMap(indexMap map[string]string) Option {
	return func(c *Container) {
		c.indexMap = indexMap
	}
}

// WithRetry sets how often throttled writes are retried and the base backoff
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Container) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
		if backoff > 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithLogger sets the container logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Container) {
		c.log = logger
	}
}

// New creates a Container over client
func New(client API, opts ...Option) *Container {
	c := &Container{
		client:       client,
		indexMap:     DefaultIndexMap(),
		maxRetries:   3,
		retryBackoff: 100 * time.Millisecond,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientConfig selects the account and endpoint of the DynamoDB client
type ClientConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. DynamoDB Local.
	Endpoint string
}

// NewClient initializes a DynamoDB client. Static credentials are used when
// both keys are set, the default credential chain otherwise.
func NewClient(ctx context.Context, cfg ClientConfig) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Verify checks that the table named containerID exists
func (c *Container) Verify(ctx context.Context, containerID string, scope storagemodels.CloudScope) error {
	out, err := c.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(containerID)})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return fmt.Errorf("%w: table %s", cloud.ErrContainerNotFound, containerID)
		}
		return fmt.Errorf("describe table %s: %w", containerID, err)
	}
	if out.Table != nil && out.Table.TableStatus == types.TableStatusDeleting {
		return fmt.Errorf("%w: table %s is being deleted", cloud.ErrContainerNotFound, containerID)
	}
	return nil
}

// Push writes changes to the table named containerID, in order
func (c *Container) Push(ctx context.Context, containerID string, scope storagemodels.CloudScope, changes []storagemodels.CloudChange) error {
	for _, change := range changes {
		var err error
		switch change.Op {
		case storagemodels.OpDelete:
			err = c.withRetry(ctx, func() error { return c.delete(ctx, containerID, scope, change) })
		default:
			err = c.withRetry(ctx, func() error { return c.put(ctx, containerID, scope, change) })
		}
		if perrors.IsConditionFailed(err) {
			c.log.Debug().Err(err).Str("object", change.ID.String()).Int64("version", change.Version).Msg("skipped stale put")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", change.Op, change.ID, err)
		}
	}
	return nil
}

// putCondition keeps a replayed change from overwriting a newer version
const putCondition = "attribute_not_exists(#v) OR #v <= :v"

// item is the stored shape of one mirrored object
type item struct {
	Scope     string `dynamodbav:"Scope"`
	Entity    string `dynamodbav:"Entity"`
	Key       string `dynamodbav:"Key"`
	Version   int64  `dynamodbav:"Version"`
	Data      string `dynamodbav:"Data,omitempty"`
	ChangedAt string `dynamodbav:"ChangedAt"`
}

func newItem(scope storagemodels.CloudScope, change storagemodels.CloudChange) item {
	return item{
		Scope:     string(scope),
		Entity:    change.ID.Entity,
		Key:       change.ID.Key,
		Version:   change.Version,
		Data:      string(change.Data),
		ChangedAt: strfmt.DateTime(change.ChangedAt.UTC()).String(),
	}
}

func (c *Container) put(ctx context.Context, table string, scope storagemodels.CloudScope, change storagemodels.CloudChange) error {
	it := newItem(scope, change)
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	expanded, err := expandMacros(c.indexMap, it)
	if err != nil {
		return err
	}
	for k, v := range expanded {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}

	_, err = c.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:           aws.String(table),
		Item:                av,
		ConditionExpression: aws.String(putCondition),
		ExpressionAttributeNames: map[string]string{
			"#v": "Version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": av["Version"],
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return perrors.NewConditionFailedError("PutItem", putCondition)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

func (c *Container) delete(ctx context.Context, table string, scope storagemodels.CloudScope, change storagemodels.CloudChange) error {
	expanded, err := expandMacros(c.indexMap, newItem(scope, change))
	if err != nil {
		return err
	}
	key, err := buildKeyFromExpanded(expanded)
	if err != nil {
		return err
	}

	_, err = c.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("DeleteItem failed: %w", err)
	}
	return nil
}

func (c *Container) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			return lastErr
		}
		if attempt < c.maxRetries {
			backoff := time.Duration(attempt+1) * c.retryBackoff
			c.log.Warn().Err(lastErr).Dur("backoff", backoff).Int("attempt", attempt+1).Msg("retrying DynamoDB write")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("write failed after %d retries: %w", c.maxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills each template of indexMap with the attributes of
// keysInput. Unknown or non scalar attributes expand to "".
func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for fieldName, template := range indexMap {
		res[fieldName] = macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			switch tv := av[strings.Trim(macro, "{}")].(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				return ""
			}
		})
	}
	return res, nil
}

// buildKeyFromExpanded builds the table key. PK and SK must be non-empty.
func buildKeyFromExpanded(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]
	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

var _ cloud.Container = (*Container)(nil)
