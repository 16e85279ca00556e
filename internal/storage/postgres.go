package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing handle; used by tests with sqlmock.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect establishes the connection and ensures the schema exists.
func (p *PostgresStore) Connect(connectionString string) error {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	p.db = db

	if err := p.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %v", err)
	}

	log.Println("[DB] connected to PostgreSQL")
	return nil
}

func (p *PostgresStore) createTables() error {
	query := `
    CREATE TABLE IF NOT EXISTS users (
        public_id UUID PRIMARY KEY,
        username VARCHAR(100) UNIQUE NOT NULL,
        password_hash VARCHAR(200) NOT NULL,
        is_facility BOOLEAN NOT NULL DEFAULT false,
        active BOOLEAN NOT NULL DEFAULT true,
        facility_ref VARCHAR(20) DEFAULT '',
        delivery_unit VARCHAR(100) DEFAULT ''
    );

    CREATE TABLE IF NOT EXISTS delivery_units (
        name VARCHAR(100) PRIMARY KEY,
        endpoint VARCHAR(500) NOT NULL,
        access_key VARCHAR(200) NOT NULL,
        secret_key VARCHAR(200) NOT NULL
    );

    CREATE TABLE IF NOT EXISTS projects (
        id VARCHAR(50) PRIMARY KEY,
        title VARCHAR(255) NOT NULL,
        description TEXT DEFAULT '',
        pi VARCHAR(255) DEFAULT 'NA',
        owner UUID NOT NULL,
        facility UUID NOT NULL,
        status VARCHAR(20) NOT NULL DEFAULT 'Ongoing',
        bucket VARCHAR(100) NOT NULL,
        public_key VARCHAR(100) NOT NULL,
        private_key VARCHAR(100) NOT NULL,
        size BIGINT NOT NULL DEFAULT 0,
        date_created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        date_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS project_members (
        project_id VARCHAR(50) NOT NULL REFERENCES projects(id),
        user_public_id UUID NOT NULL REFERENCES users(public_id),
        PRIMARY KEY (project_id, user_public_id)
    );

    CREATE TABLE IF NOT EXISTS files (
        id UUID PRIMARY KEY,
        name VARCHAR(500) NOT NULL,
        name_in_bucket VARCHAR(500) NOT NULL,
        subpath VARCHAR(500) DEFAULT '',
        project_id VARCHAR(50) NOT NULL REFERENCES projects(id),
        size_original BIGINT NOT NULL DEFAULT 0,
        size_stored BIGINT NOT NULL DEFAULT 0,
        compressed BOOLEAN NOT NULL DEFAULT false,
        public_key VARCHAR(100) DEFAULT '',
        salt VARCHAR(100) DEFAULT '',
        checksum VARCHAR(200) DEFAULT '',
        uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (project_id, name),
        UNIQUE (project_id, name_in_bucket)
    );

    CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
    `

	_, err := p.db.Exec(query)
	return err
}

func (p *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return p.getUser(ctx, "username", username)
}

func (p *PostgresStore) GetUserByPublicID(ctx context.Context, publicID string) (models.User, error) {
	return p.getUser(ctx, "public_id", publicID)
}

func (p *PostgresStore) getUser(ctx context.Context, column, value string) (models.User, error) {
	query := fmt.Sprintf(`
    SELECT public_id, username, password_hash, is_facility, active, facility_ref, delivery_unit
    FROM users WHERE %s = $1`, column)

	var u models.User
	err := p.db.QueryRowContext(ctx, query, value).Scan(
		&u.PublicID, &u.Username, &u.PasswordHash,
		&u.IsFacility, &u.Active, &u.FacilityRef, &u.DeliveryUnit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errvalues.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("querying user: %v", err)
	}
	return u, nil
}

func (p *PostgresStore) GetDeliveryUnit(ctx context.Context, name string) (models.DeliveryUnit, error) {
	query := `SELECT name, endpoint, access_key, secret_key FROM delivery_units WHERE name = $1`

	var unit models.DeliveryUnit
	err := p.db.QueryRowContext(ctx, query, name).Scan(
		&unit.Name, &unit.Endpoint, &unit.AccessKey, &unit.SecretKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DeliveryUnit{}, errvalues.ErrNotFound
	}
	if err != nil {
		return models.DeliveryUnit{}, fmt.Errorf("querying delivery unit: %v", err)
	}
	return unit, nil
}

func (p *PostgresStore) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	query := `
    SELECT id, title, description, pi, owner, facility, status, bucket,
           public_key, private_key, size, date_created, date_updated
    FROM projects WHERE id = $1`

	var pr models.Project
	err := p.db.QueryRowContext(ctx, query, projectID).Scan(
		&pr.ID, &pr.Title, &pr.Description, &pr.PI, &pr.Owner, &pr.Facility,
		&pr.Status, &pr.Bucket, &pr.PublicKey, &pr.PrivateKey, &pr.Size,
		&pr.DateCreated, &pr.DateUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, errvalues.ErrNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("querying project: %v", err)
	}
	return pr, nil
}

// CreateProject inserts the project row and its membership rows in one
// transaction. The caller provisions keys first; a project row never
// exists without its keypair.
func (p *PostgresStore) CreateProject(ctx context.Context, project models.Project, members []string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
    INSERT INTO projects (id, title, description, pi, owner, facility, status, bucket,
                          public_key, private_key, size, date_created, date_updated)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		project.ID, project.Title, project.Description, project.PI,
		project.Owner, project.Facility, project.Status, project.Bucket,
		project.PublicKey, project.PrivateKey, project.Size,
		project.DateCreated, project.DateUpdated,
	)
	if err != nil {
		return fmt.Errorf("inserting project: %v", err)
	}

	for _, member := range members {
		_, err = tx.ExecContext(ctx, `
        INSERT INTO project_members (project_id, user_public_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`,
			project.ID, member,
		)
		if err != nil {
			return fmt.Errorf("inserting project member: %v", err)
		}
	}

	return tx.Commit()
}

func (p *PostgresStore) CountFacilityProjects(ctx context.Context, facilityPublicID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE facility = $1`, facilityPublicID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting facility projects: %v", err)
	}
	return count, nil
}

func (p *PostgresStore) ListUserProjects(ctx context.Context, userPublicID string) ([]models.Project, error) {
	query := `
    SELECT p.id, p.title, p.description, p.pi, p.owner, p.facility, p.status, p.bucket,
           p.public_key, p.private_key, p.size, p.date_created, p.date_updated
    FROM projects p
    JOIN project_members m ON m.project_id = p.id
    WHERE m.user_public_id = $1
    ORDER BY p.date_updated DESC`

	rows, err := p.db.QueryContext(ctx, query, userPublicID)
	if err != nil {
		return nil, fmt.Errorf("querying user projects: %v", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var pr models.Project
		if err := rows.Scan(
			&pr.ID, &pr.Title, &pr.Description, &pr.PI, &pr.Owner, &pr.Facility,
			&pr.Status, &pr.Bucket, &pr.PublicKey, &pr.PrivateKey, &pr.Size,
			&pr.DateCreated, &pr.DateUpdated,
		); err != nil {
			return nil, fmt.Errorf("scanning project row: %v", err)
		}
		projects = append(projects, pr)
	}
	return projects, rows.Err()
}

func (p *PostgresStore) IsProjectMember(ctx context.Context, projectID, userPublicID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
    SELECT EXISTS (
        SELECT 1 FROM project_members WHERE project_id = $1 AND user_public_id = $2
    )`, projectID, userPublicID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking project membership: %v", err)
	}
	return exists, nil
}

func (p *PostgresStore) AddProjectSize(ctx context.Context, projectID string, delta int64) error {
	_, err := p.db.ExecContext(ctx, `
    UPDATE projects SET size = GREATEST(size + $2, 0), date_updated = NOW() WHERE id = $1`,
		projectID, delta,
	)
	if err != nil {
		return fmt.Errorf("updating project size: %v", err)
	}
	return nil
}

func (p *PostgresStore) ListProjectFiles(ctx context.Context, projectID string) ([]models.File, error) {
	query := `
    SELECT id, name, name_in_bucket, subpath, project_id, size_original, size_stored,
           compressed, public_key, salt, checksum, uploaded_at
    FROM files WHERE project_id = $1 ORDER BY name`

	rows, err := p.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying project files: %v", err)
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(
			&f.ID, &f.Name, &f.NameInBucket, &f.Subpath, &f.ProjectID,
			&f.SizeOriginal, &f.SizeStored, &f.Compressed,
			&f.PublicKey, &f.Salt, &f.Checksum, &f.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning file row: %v", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// UpsertFile creates a file row or, when a row with the same logical
// name already exists for the project, repairs its storage-identifying
// and integrity fields in place. Returns whether a new row was created.
func (p *PostgresStore) UpsertFile(ctx context.Context, file models.File) (bool, error) {
	query := `
    INSERT INTO files (id, name, name_in_bucket, subpath, project_id, size_original,
                       size_stored, compressed, public_key, salt, checksum, uploaded_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    ON CONFLICT (project_id, name) DO UPDATE SET
        name_in_bucket = EXCLUDED.name_in_bucket,
        subpath = EXCLUDED.subpath,
        size_original = EXCLUDED.size_original,
        size_stored = EXCLUDED.size_stored,
        compressed = EXCLUDED.compressed,
        public_key = EXCLUDED.public_key,
        salt = EXCLUDED.salt,
        checksum = EXCLUDED.checksum,
        uploaded_at = NOW()
    RETURNING (xmax = 0)`

	var created bool
	err := p.db.QueryRowContext(ctx, query,
		file.ID, file.Name, file.NameInBucket, file.Subpath, file.ProjectID,
		file.SizeOriginal, file.SizeStored, file.Compressed,
		file.PublicKey, file.Salt, file.Checksum, file.UploadedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upserting file: %v", err)
	}
	return created, nil
}

func (p *PostgresStore) DeleteProjectFiles(ctx context.Context, projectID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("deleting file rows: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET size = 0, date_updated = NOW() WHERE id = $1`, projectID); err != nil {
		return fmt.Errorf("resetting project size: %v", err)
	}

	return tx.Commit()
}
