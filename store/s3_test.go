package store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killrazor/kevwatch/logger"
	"github.com/killrazor/kevwatch/throttle"
)

// fakeS3 is an in-memory single-object bucket.
type fakeS3 struct {
	object []byte
	getErr error
	putErr error

	lastBucket string
	lastKey    string
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastBucket = *params.Bucket
	f.lastKey = *params.Key
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.object == nil {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(f.object)),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastBucket = *params.Bucket
	f.lastKey = *params.Key
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.object = data
	return &s3.PutObjectOutput{}, nil
}

func Test_S3Store_FirstRun(t *testing.T) {
	s := newS3StoreWithClient(&fakeS3{}, "state-bucket", &logger.Noop{})

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func Test_S3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{}
	s := newS3StoreWithClient(fake, "state-bucket", &logger.Noop{})

	in := &throttle.State{Concurrency: 4, DelayMs: 250, Consecutive429s: 1}
	require.NoError(t, s.Save(context.Background(), in))
	assert.Equal(t, "state-bucket", fake.lastBucket)
	assert.Equal(t, DefaultStateKey, fake.lastKey)

	out, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Concurrency, out.Concurrency)
	assert.Equal(t, in.DelayMs, out.DelayMs)
	assert.Equal(t, in.Consecutive429s, out.Consecutive429s)
}

func Test_S3Store_CorruptStateIsNotFatal(t *testing.T) {
	fake := &fakeS3{object: []byte(`not json`)}
	s := newS3StoreWithClient(fake, "state-bucket", &logger.Noop{})

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
}

func Test_S3Store_GetErrorPropagates(t *testing.T) {
	fake := &fakeS3{getErr: assert.AnError}
	s := newS3StoreWithClient(fake, "state-bucket", &logger.Noop{})

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
