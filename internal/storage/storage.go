package storage

import (
	"context"

	"github.com/SciData-Delivery/Delivery-Service/internal/models"
)

// Store is the contract for the metadata database. The relational
// store is the single source of truth for project and file metadata;
// bucket state is only authoritative for object existence.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByPublicID(ctx context.Context, publicID string) (models.User, error)
	GetDeliveryUnit(ctx context.Context, name string) (models.DeliveryUnit, error)

	GetProject(ctx context.Context, projectID string) (models.Project, error)
	CreateProject(ctx context.Context, project models.Project, members []string) error
	CountFacilityProjects(ctx context.Context, facilityPublicID string) (int, error)
	ListUserProjects(ctx context.Context, userPublicID string) ([]models.Project, error)
	IsProjectMember(ctx context.Context, projectID, userPublicID string) (bool, error)
	AddProjectSize(ctx context.Context, projectID string, delta int64) error

	ListProjectFiles(ctx context.Context, projectID string) ([]models.File, error)
	UpsertFile(ctx context.Context, file models.File) (created bool, err error)
	DeleteProjectFiles(ctx context.Context, projectID string) error
}
