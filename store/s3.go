package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/throttle"
)

// DefaultStateKey is the object key the throttle state lives under.
const DefaultStateKey = "kevwatch/throttle-state.json"

// s3Api is the slice of the S3 client the store uses. Tests fake it.
type s3Api interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the throttle state as a JSON object in a bucket, so
// scheduled runs on stateless workers share the learned rate.
type S3Store struct {
	client s3Api
	bucket string
	key    string
	logger logger.Logger
}

var _ Store = &S3Store{}

// NewS3Store builds a store against a real bucket, resolving AWS
// credentials from the default chain.
func NewS3Store(ctx context.Context, bucket, region string, log logger.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		key:    DefaultStateKey,
		logger: log,
	}, nil
}

func newS3StoreWithClient(client s3Api, bucket string, log logger.Logger) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		key:    DefaultStateKey,
		logger: log,
	}
}

func (s *S3Store) Load(ctx context.Context) (*throttle.State, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	var state throttle.State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warnf("store: discarding corrupt throttle state at s3://%s/%s: %v", s.bucket, s.key, err)
		return nil, nil
	}
	return &state, nil
}

func (s *S3Store) Save(ctx context.Context, state *throttle.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}
