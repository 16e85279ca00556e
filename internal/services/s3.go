package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
)

// requestTimeout bounds every network call inside a session so a hung
// storage backend cannot hold connections open indefinitely.
const requestTimeout = 30 * time.Second

// BucketSession is the request-scoped handle onto one project's bucket:
// resolved endpoint, credentials and bucket name. Never cached across
// requests; callers must Close on every exit path.
type BucketSession struct {
	client    *minio.Client
	transport *http.Transport
	bucket    string
}

// OpenBucketSession resolves a project's delivery unit configuration
// into a usable session. Any missing endpoint/credential/bucket is a
// configuration error for that project, not retryable by the caller.
func OpenBucketSession(project models.Project, unit models.DeliveryUnit, useSSL bool) (*BucketSession, error) {
	if unit.Endpoint == "" || unit.AccessKey == "" || unit.SecretKey == "" {
		return nil, fmt.Errorf("%w: delivery unit %q incomplete for project %s",
			errvalues.ErrConfiguration, unit.Name, project.ID)
	}
	if project.Bucket == "" {
		return nil, fmt.Errorf("%w: project %s has no bucket name",
			errvalues.ErrConfiguration, project.ID)
	}

	// The session owns its transport so Close can drop connections
	// opened with this project's credentials.
	transport := &http.Transport{
		ResponseHeaderTimeout: requestTimeout,
		IdleConnTimeout:       requestTimeout,
	}
	client, err := minio.New(unit.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(unit.AccessKey, unit.SecretKey, ""),
		Secure:    useSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating S3 client: %v", errvalues.ErrConfiguration, err)
	}

	return &BucketSession{client: client, transport: transport, bucket: project.Bucket}, nil
}

// Close releases the session's connections, capping credential
// lifetime to the request that opened it. Safe on nil and after a
// previous Close.
func (s *BucketSession) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.transport.CloseIdleConnections()
	s.client = nil
}

// Bucket returns the bucket name the session is bound to.
func (s *BucketSession) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the bucket if it does not exist yet. Called at
// project creation so uploads never race bucket provisioning.
func (s *BucketSession) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: checking bucket %s: %v", errvalues.ErrTransient, s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: creating bucket %s: %v", errvalues.ErrTransient, s.bucket, err)
	}
	log.Printf("[S3] created bucket %s", s.bucket)
	return nil
}

// ObjectExists probes for an object with a head-style request. A
// missing object is a normal false; transport and auth failures are
// reported as transient errors so callers can tell them apart.
func (s *BucketSession) ObjectExists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false, fmt.Errorf("%w: stat %s/%s timed out", errvalues.ErrTransient, s.bucket, key)
	}
	return false, fmt.Errorf("%w: stat %s/%s: %v", errvalues.ErrTransient, s.bucket, key, err)
}

// RemoveAll deletes every object in the bucket. An empty bucket counts
// as already removed. Per-object delete failures are aggregated into
// the returned message instead of aborting on the first one, so the
// caller sees the full extent of what remains.
func (s *BucketSession) RemoveAll(ctx context.Context) (bool, string) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ListObjects exhausts all pages internally and streams keys.
	objectsCh := s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Recursive: true,
	})

	toDelete := make(chan minio.ObjectInfo, 100)
	var listErr error
	count := 0
	go func() {
		defer close(toDelete)
		for obj := range objectsCh {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			count++
			// RemoveObjects stops consuming when the context is
			// cancelled; without the Done branch this send could
			// block past the buffer forever.
			select {
			case toDelete <- obj:
			case <-listCtx.Done():
				return
			}
		}
	}()

	var failed []string
	for rmErr := range s.client.RemoveObjects(ctx, s.bucket, toDelete, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", rmErr.ObjectName, rmErr.Err))
		}
	}

	if listErr != nil {
		return false, fmt.Sprintf("listing bucket %s failed: %v", s.bucket, listErr)
	}
	if len(failed) > 0 {
		log.Printf("[S3] remove-all on %s left %d objects undeleted", s.bucket, len(failed))
		return false, fmt.Sprintf("%d of %d objects not deleted: %s",
			len(failed), count, strings.Join(failed, "; "))
	}
	if count == 0 {
		return true, "bucket already empty"
	}
	return true, fmt.Sprintf("removed %d objects", count)
}
