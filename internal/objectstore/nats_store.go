// Package objectstore stores audio blobs in a NATS JetStream object bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// AudioStore implements core.ObjectStore over a JetStream object bucket. It
// holds the raw audio exchanged with workers: uploads awaiting transcription
// and synthesized output awaiting pickup.
type AudioStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the audio bucket, or binds to it when it already exists, and
// returns a store over it.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*AudioStore, error) {
	store, createErr := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Audio blobs for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if createErr != nil {
		if !errors.Is(createErr, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create audio bucket '%s': %w", bucketName, createErr)
		}

		var bindErr error

		store, bindErr = jetstreamContext.ObjectStore(bucketName)
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind to existing audio bucket '%s': %w", bucketName, bindErr)
		}
	}

	return &AudioStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves one audio blob by key.
func (s *AudioStore) Download(_ context.Context, key string) ([]byte, error) {
	object, getErr := s.store.Get(key)
	if getErr != nil {
		return nil, fmt.Errorf("failed to get audio '%s' from bucket '%s': %w", key, s.bucket, getErr)
	}

	data, readErr := io.ReadAll(object)
	closeErr := object.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close audio '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores one audio blob under key, replacing any previous object with
// the same key.
func (s *AudioStore) Upload(_ context.Context, key string, data []byte) error {
	_, putErr := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if putErr != nil {
		return fmt.Errorf("failed to put audio '%s' to bucket '%s': %w", key, s.bucket, putErr)
	}

	return nil
}
