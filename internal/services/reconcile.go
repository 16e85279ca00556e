package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/SciData-Delivery/Delivery-Service/internal/models"
	"github.com/SciData-Delivery/Delivery-Service/internal/storage"
)

// ObjectProber is the part of a bucket session the reconciler needs.
type ObjectProber interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// ReconcileResult reports what a reconciliation pass did: how many new
// rows were created and, per failed entry name, why it was skipped.
// The reserved key below never collides with entry names, which the
// client derives from file paths.
type ReconcileResult struct {
	FilesAdded int               `json:"files_added"`
	Errors     map[string]string `json:"errors"`
}

// ErrKeyProjectSize is the reserved Errors key reporting a stale
// project size aggregate after the file rows themselves were written.
const ErrKeyProjectSize = "__project_size__"

// Reconcile heals file metadata from a client upload-completion log.
// Each entry is cross-checked against real object existence before any
// row is touched: a row is never fabricated for an object that is not
// in storage. Existing rows with the same logical name are repaired in
// place, which makes repeated runs over the same log idempotent.
func Reconcile(ctx context.Context, store storage.Store, prober ObjectProber,
	projectID string, entries []models.UploadLogEntry) (ReconcileResult, error) {

	result := ReconcileResult{Errors: make(map[string]string)}

	var sizeDelta int64
	for _, entry := range entries {
		if entry.Name == "" || entry.PathRemote == "" {
			result.Errors[entry.Name] = "entry missing name or remote path"
			continue
		}

		exists, err := prober.ObjectExists(ctx, entry.PathRemote)
		if err != nil {
			result.Errors[entry.Name] = fmt.Sprintf("existence check failed: %v", err)
			continue
		}
		if !exists {
			result.Errors[entry.Name] = fmt.Sprintf("object %s not found in bucket", entry.PathRemote)
			continue
		}

		created, err := store.UpsertFile(ctx, models.File{
			ID:           uuid.New().String(),
			Name:         entry.Name,
			NameInBucket: entry.PathRemote,
			Subpath:      entry.Subpath,
			ProjectID:    projectID,
			SizeOriginal: entry.SizeRaw,
			SizeStored:   entry.SizeProcessed,
			Compressed:   entry.Compressed,
			PublicKey:    entry.PublicKey,
			Salt:         entry.Salt,
			Checksum:     entry.Checksum,
			UploadedAt:   time.Now().UTC(),
		})
		if err != nil {
			result.Errors[entry.Name] = fmt.Sprintf("database update failed: %v", err)
			continue
		}
		if created {
			result.FilesAdded++
			sizeDelta += entry.SizeProcessed
		}
	}

	if sizeDelta > 0 {
		if err := store.AddProjectSize(ctx, projectID, sizeDelta); err != nil {
			// Rows are already correct; only the aggregate is stale.
			// Reported so callers know the aggregate needs repair.
			log.Printf("[RECONCILE] project %s: size update failed: %v", projectID, err)
			result.Errors[ErrKeyProjectSize] = fmt.Sprintf("project size not updated by %d bytes: %v", sizeDelta, err)
		}
	}

	log.Printf("[RECONCILE] project %s: %d added, %d errors",
		projectID, result.FilesAdded, len(result.Errors))
	return result, nil
}
