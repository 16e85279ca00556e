package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/SciData-Delivery/Delivery-Service/internal/configuration"
	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/keys"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
	"github.com/SciData-Delivery/Delivery-Service/internal/projlock"
	"github.com/SciData-Delivery/Delivery-Service/internal/storage"
)

// Session is the bucket-facing surface project operations use. The
// concrete implementation is BucketSession; tests substitute fakes.
type Session interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
	RemoveAll(ctx context.Context) (bool, string)
	EnsureBucket(ctx context.Context) error
	Close()
}

// ProjectService owns project lifecycle operations: creation with key
// provisioning, content wipes, and bucket session resolution.
type ProjectService struct {
	store  storage.Store
	locks  *projlock.Table
	unit   configuration.UnitConfig
	events *EventPublisher
	open   func(ctx context.Context, project models.Project, user models.User) (Session, error)
}

func NewProjectService(store storage.Store, unit configuration.UnitConfig, events *EventPublisher) *ProjectService {
	s := &ProjectService{
		store:  store,
		locks:  projlock.New(),
		unit:   unit,
		events: events,
	}
	s.open = s.openReal
	return s
}

// resolveUnit finds the storage unit for a facility user, falling back
// to the process-wide default unit when the user has none configured.
func (s *ProjectService) resolveUnit(ctx context.Context, user models.User) (models.DeliveryUnit, error) {
	if user.DeliveryUnit != "" {
		unit, err := s.store.GetDeliveryUnit(ctx, user.DeliveryUnit)
		if err == nil {
			return unit, nil
		}
		log.Printf("[S3] delivery unit %q not found for user %s, using default", user.DeliveryUnit, user.Username)
	}
	return models.DeliveryUnit{
		Name:      "default",
		Endpoint:  s.unit.Endpoint,
		AccessKey: s.unit.AccessKey,
		SecretKey: s.unit.SecretKey,
	}, nil
}

// OpenSession resolves a project's bucket session via the facility's
// delivery unit.
func (s *ProjectService) OpenSession(ctx context.Context, project models.Project, user models.User) (Session, error) {
	return s.open(ctx, project, user)
}

func (s *ProjectService) openReal(ctx context.Context, project models.Project, user models.User) (Session, error) {
	unit, err := s.resolveUnit(ctx, user)
	if err != nil {
		return nil, err
	}
	return OpenBucketSession(project, unit, s.unit.UseSSL)
}

// Create provisions a new project for a facility: next sequential id
// from the facility ref, deterministic bucket name, and a fresh keypair
// generated before the row is committed. Keygen failure aborts the
// whole creation; no project row exists without its keys.
func (s *ProjectService) Create(ctx context.Context, facility models.User, title, description, ownerPublicID string) (models.Project, error) {
	if facility.FacilityRef == "" {
		return models.Project{}, fmt.Errorf("%w: facility %s has no internal ref", errvalues.ErrConfiguration, facility.Username)
	}

	// Serialize per facility: concurrent creations would otherwise
	// both derive <ref><count+1> and collide on the primary key.
	lockKey := "facility/" + facility.PublicID
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	count, err := s.store.CountFacilityProjects(ctx, facility.PublicID)
	if err != nil {
		return models.Project{}, err
	}
	projectID := fmt.Sprintf("%s%03d", facility.FacilityRef, count+1)

	projectKeys, err := keys.GenerateProjectKeys(projectID)
	if err != nil {
		return models.Project{}, err
	}

	now := time.Now().UTC()
	project := models.Project{
		ID:          projectID,
		Title:       title,
		Description: description,
		PI:          "NA",
		Owner:       ownerPublicID,
		Facility:    facility.PublicID,
		Status:      models.StatusOngoing,
		Bucket:      models.BucketName(projectID),
		PublicKey:   projectKeys.PublicKey,
		PrivateKey:  projectKeys.PrivateKey,
		Size:        0,
		DateCreated: now,
		DateUpdated: now,
	}

	members := []string{facility.PublicID}
	if ownerPublicID != "" && ownerPublicID != facility.PublicID {
		members = append(members, ownerPublicID)
	}
	if err := s.store.CreateProject(ctx, project, members); err != nil {
		return models.Project{}, err
	}

	// Provision the bucket up front so uploads never race creation.
	session, err := s.OpenSession(ctx, project, facility)
	if err != nil {
		log.Printf("[S3] bucket for %s not provisioned: %v", projectID, err)
	} else {
		defer session.Close()
		if err := session.EnsureBucket(ctx); err != nil {
			log.Printf("[S3] bucket for %s not provisioned: %v", projectID, err)
		}
	}

	s.events.Publish(EventProjectCreated, map[string]interface{}{
		"project_id": project.ID,
		"facility":   facility.PublicID,
	})
	return project, nil
}

// RemoveContentsResult distinguishes the failure modes of a wipe:
// storage-side failure (retry the whole operation) versus a metadata
// failure after storage already emptied (retry only the DB phase).
type RemoveContentsResult struct {
	Removed bool   `json:"removed"`
	Message string `json:"message"`
}

// RemoveContents wipes a project's bucket and then its file rows.
// Storage goes first: the chosen failure bias is dangling metadata
// over dangling stored bytes. A database failure after a successful
// wipe is surfaced as an integrity error; retrying is safe because the
// bucket is already empty.
func (s *ProjectService) RemoveContents(ctx context.Context, project models.Project, user models.User) (RemoveContentsResult, error) {
	files, err := s.store.ListProjectFiles(ctx, project.ID)
	if err != nil {
		return RemoveContentsResult{}, err
	}
	if len(files) == 0 {
		return RemoveContentsResult{}, fmt.Errorf("%w: no files in project %s", errvalues.ErrNotFound, project.ID)
	}

	s.locks.Lock(project.ID)
	defer s.locks.Unlock(project.ID)

	session, err := s.OpenSession(ctx, project, user)
	if err != nil {
		return RemoveContentsResult{}, err
	}
	defer session.Close()

	removed, message := session.RemoveAll(ctx)
	if !removed {
		return RemoveContentsResult{Removed: false, Message: message},
			fmt.Errorf("%w: %s", errvalues.ErrTransient, message)
	}

	if err := s.store.DeleteProjectFiles(ctx, project.ID); err != nil {
		return RemoveContentsResult{
				Removed: false,
				Message: fmt.Sprintf("bucket emptied but metadata not removed: %v", err),
			},
			fmt.Errorf("%w: deleting file rows for %s: %v", errvalues.ErrIntegrity, project.ID, err)
	}

	s.events.Publish(EventContentsRemoved, map[string]interface{}{
		"project_id": project.ID,
		"files":      len(files),
	})
	return RemoveContentsResult{Removed: true, Message: message}, nil
}

// ReconcileUploads runs a reconciliation pass under the project lock,
// with a session scoped to the call.
func (s *ProjectService) ReconcileUploads(ctx context.Context, project models.Project, user models.User, entries []models.UploadLogEntry) (ReconcileResult, error) {
	s.locks.Lock(project.ID)
	defer s.locks.Unlock(project.ID)

	session, err := s.OpenSession(ctx, project, user)
	if err != nil {
		return ReconcileResult{}, err
	}
	defer session.Close()

	result, err := Reconcile(ctx, s.store, session, project.ID, entries)
	if err != nil {
		return result, err
	}
	if result.FilesAdded > 0 {
		s.events.Publish(EventFilesReconciled, map[string]interface{}{
			"project_id":  project.ID,
			"files_added": result.FilesAdded,
		})
	}
	return result, nil
}
