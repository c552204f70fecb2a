package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/acme/text-to-call/internal/config"
	"github.com/acme/text-to-call/internal/domain"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

const (
	audioContentType  = "audio/wav"
	scriptContentType = "application/xml"
)

// publicReadPolicy grants anonymous read on every object in a container
// so the telephony provider can fetch the audio and the call script.
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// BlobStore persists pipeline artifacts in object storage.
type BlobStore struct {
	client     *minio.Client
	region     string
	publicHost string
}

// New connects a blob store from configuration.
func New(cfg config.StorageConfig) (*BlobStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: storage endpoint not configured", apperrors.ErrMissingStorageConfig)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init client: %w", err)
	}

	host := cfg.PublicHost
	if host == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		host = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &BlobStore{client: client, region: cfg.Region, publicHost: host}, nil
}

// ValidateAudioBlobName enforces the ".wav"-only format policy.
func ValidateAudioBlobName(name string) error {
	if !strings.HasSuffix(strings.ToLower(name), ".wav") {
		return fmt.Errorf("%w: %q (only .wav is supported)", apperrors.ErrUnsupportedFormat, name)
	}
	return nil
}

// ScriptBlobName derives the call script object name from the audio
// object name by swapping the extension.
func ScriptBlobName(audioName string) string {
	if len(audioName) < len(".wav") {
		return audioName + ".xml"
	}
	return audioName[:len(audioName)-len(".wav")] + ".xml"
}

// UploadAudio stores synthesized audio and returns its public URI.
func (s *BlobStore) UploadAudio(ctx context.Context, target domain.StorageTarget, data []byte) (string, error) {
	if err := ValidateAudioBlobName(target.BlobName); err != nil {
		return "", err
	}
	return s.upload(ctx, target.Container, target.BlobName, data, audioContentType)
}

// UploadScript stores the call-control document next to the audio and
// returns its public URI.
func (s *BlobStore) UploadScript(ctx context.Context, target domain.StorageTarget, document string) (string, error) {
	name := ScriptBlobName(target.BlobName)
	return s.upload(ctx, target.Container, name, []byte(document), scriptContentType)
}

func (s *BlobStore) upload(ctx context.Context, container, name string, data []byte, contentType string) (string, error) {
	if err := s.ensureContainer(ctx, container); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, container, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s/%s: %v", apperrors.ErrStorageUploadFailed, container, name, err)
	}

	return s.publicURL(container, name), nil
}

// ensureContainer creates the container when absent and re-applies the
// public-read policy on every call; re-applying is redundant but
// idempotent.
func (s *BlobStore) ensureContainer(ctx context.Context, container string) error {
	exists, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return fmt.Errorf("%w: check container %s: %v", apperrors.ErrStorageUploadFailed, container, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("%w: create container %s: %v", apperrors.ErrStorageUploadFailed, container, err)
		}
	}

	policy := fmt.Sprintf(publicReadPolicy, container)
	if err := s.client.SetBucketPolicy(ctx, container, policy); err != nil {
		return fmt.Errorf("%w: set container policy %s: %v", apperrors.ErrStorageUploadFailed, container, err)
	}
	return nil
}

func (s *BlobStore) publicURL(container, name string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicHost, container, url.PathEscape(name))
}
