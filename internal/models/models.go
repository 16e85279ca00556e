package models

import (
	"fmt"
	"strings"
	"time"
)

// Verb is the logical action class requested against a project.
type Verb string

const (
	VerbPut Verb = "put"
	VerbGet Verb = "get"
	VerbLs  Verb = "ls"
	VerbRm  Verb = "rm"
)

// ParseVerb validates a raw method parameter from a request.
func ParseVerb(s string) (Verb, bool) {
	switch Verb(s) {
	case VerbPut, VerbGet, VerbLs, VerbRm:
		return Verb(s), true
	}
	return "", false
}

// Project statuses. Ongoing is the only state accepting uploads.
const (
	StatusOngoing   = "Ongoing"
	StatusDelivered = "Delivered"
	StatusAborted   = "Aborted"
)

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PI          string    `json:"pi"`
	Owner       string    `json:"owner"`    // user public id
	Facility    string    `json:"facility"` // facility user public id
	Status      string    `json:"status"`
	Bucket      string    `json:"bucket"`
	PublicKey   string    `json:"public_key"`
	PrivateKey  string    `json:"-"` // never serialized outward
	Size        int64     `json:"size"`
	DateCreated time.Time `json:"date_created"`
	DateUpdated time.Time `json:"date_updated"`
}

// BucketName derives a project's bucket name from its identifier.
// Pure function: the same id always maps to the same bucket.
func BucketName(projectID string) string {
	return fmt.Sprintf("%s-bucket", strings.ToLower(projectID))
}

type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	NameInBucket string    `json:"name_in_bucket"`
	Subpath      string    `json:"subpath"`
	ProjectID    string    `json:"project_id"`
	SizeOriginal int64     `json:"size_original"`
	SizeStored   int64     `json:"size_stored"`
	Compressed   bool      `json:"compressed"`
	PublicKey    string    `json:"public_key"`
	Salt         string    `json:"salt"`
	Checksum     string    `json:"checksum"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type User struct {
	PublicID     string `json:"public_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	IsFacility   bool   `json:"is_facility"`
	Active       bool   `json:"active"`
	FacilityRef  string `json:"facility_ref"`  // short ref used in project ids, facilities only
	DeliveryUnit string `json:"delivery_unit"` // storage unit the user's projects live in
}

// DeliveryUnit holds the per-unit S3 endpoint and credentials used to
// open bucket sessions for that unit's projects.
type DeliveryUnit struct {
	Name      string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// UploadLogEntry is one line of a client upload-completion log.
type UploadLogEntry struct {
	Name          string `json:"name" binding:"required"`
	PathRemote    string `json:"path_remote" binding:"required"`
	Subpath       string `json:"subpath"`
	SizeRaw       int64  `json:"size_raw"`
	SizeProcessed int64  `json:"size_processed"`
	Compressed    bool   `json:"compressed"`
	PublicKey     string `json:"public_key"`
	Salt          string `json:"salt"`
	Checksum      string `json:"checksum"`
}

// ProjectListRow is the per-project row returned by the listing endpoint.
type ProjectListRow struct {
	ProjectID   string `json:"Project ID"`
	Title       string `json:"Title"`
	PI          string `json:"PI"`
	Status      string `json:"Status"`
	LastUpdated string `json:"Last updated"`
}
