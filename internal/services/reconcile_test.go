package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
	"github.com/SciData-Delivery/Delivery-Service/internal/storage"
)

// fakeProber answers existence probes from a fixed key set.
type fakeProber struct {
	objects map[string]bool
	failOn  string
}

func (f *fakeProber) ObjectExists(_ context.Context, key string) (bool, error) {
	if key == f.failOn {
		return false, errvalues.ErrTransient
	}
	return f.objects[key], nil
}

// fakeFileStore records upserts keyed by (project, name) the way the
// unique constraint does.
type fakeFileStore struct {
	storage.Store
	files     map[string]models.File
	sizeDelta int64
	upsertErr error
	sizeErr   error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string]models.File)}
}

func (f *fakeFileStore) UpsertFile(_ context.Context, file models.File) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	key := file.ProjectID + "/" + file.Name
	_, existed := f.files[key]
	f.files[key] = file
	return !existed, nil
}

func (f *fakeFileStore) AddProjectSize(_ context.Context, _ string, delta int64) error {
	if f.sizeErr != nil {
		return f.sizeErr
	}
	f.sizeDelta += delta
	return nil
}

func testLog() []models.UploadLogEntry {
	return []models.UploadLogEntry{
		{Name: "reads.fastq", PathRemote: "data/reads.fastq.c4gh", Subpath: "data",
			SizeRaw: 1000, SizeProcessed: 600, Compressed: true, PublicKey: "pk1", Salt: "s1", Checksum: "c1"},
		{Name: "meta.txt", PathRemote: "meta.txt.c4gh",
			SizeRaw: 40, SizeProcessed: 64, PublicKey: "pk2", Salt: "s2", Checksum: "c2"},
	}
}

func TestReconcileCreatesRowsForExistingObjects(t *testing.T) {
	store := newFakeFileStore()
	prober := &fakeProber{objects: map[string]bool{
		"data/reads.fastq.c4gh": true,
		"meta.txt.c4gh":         true,
	}}

	result, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesAdded)
	assert.Empty(t, result.Errors)
	assert.Len(t, store.files, 2)
	assert.EqualValues(t, 664, store.sizeDelta)

	f := store.files["fac001/reads.fastq"]
	assert.Equal(t, "data/reads.fastq.c4gh", f.NameInBucket)
	assert.Equal(t, "c1", f.Checksum)
	assert.True(t, f.Compressed)
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := newFakeFileStore()
	prober := &fakeProber{objects: map[string]bool{
		"data/reads.fastq.c4gh": true,
		"meta.txt.c4gh":         true,
	}}

	first, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)
	require.Equal(t, 2, first.FilesAdded)

	second, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)

	assert.Equal(t, 0, second.FilesAdded)
	assert.Empty(t, second.Errors)
	assert.Len(t, store.files, 2)
}

func TestReconcileSkipsMissingObjects(t *testing.T) {
	// A row must never be fabricated for an object that is not actually
	// in storage.
	store := newFakeFileStore()
	prober := &fakeProber{objects: map[string]bool{
		"data/reads.fastq.c4gh": true,
	}}

	result, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesAdded)
	assert.Contains(t, result.Errors, "meta.txt")
	assert.Len(t, store.files, 1)
	assert.NotContains(t, store.files, "fac001/meta.txt")
}

func TestReconcileReportsProbeFailures(t *testing.T) {
	store := newFakeFileStore()
	prober := &fakeProber{
		objects: map[string]bool{"meta.txt.c4gh": true},
		failOn:  "data/reads.fastq.c4gh",
	}

	result, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesAdded)
	assert.Contains(t, result.Errors, "reads.fastq")
}

func TestReconcileReportsDatabaseFailures(t *testing.T) {
	store := newFakeFileStore()
	store.upsertErr = errors.New("connection reset")
	prober := &fakeProber{objects: map[string]bool{
		"data/reads.fastq.c4gh": true,
		"meta.txt.c4gh":         true,
	}}

	result, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)

	assert.Equal(t, 0, result.FilesAdded)
	assert.Len(t, result.Errors, 2)
}

func TestReconcileReportsStaleSizeAggregate(t *testing.T) {
	// Rows land but the project size update fails: callers must see
	// that the aggregate needs repair, not a clean result.
	store := newFakeFileStore()
	store.sizeErr = errors.New("connection reset")
	prober := &fakeProber{objects: map[string]bool{
		"data/reads.fastq.c4gh": true,
		"meta.txt.c4gh":         true,
	}}

	result, err := Reconcile(context.Background(), store, prober, "fac001", testLog())
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesAdded)
	assert.Len(t, store.files, 2)
	assert.Contains(t, result.Errors, ErrKeyProjectSize)
	assert.Contains(t, result.Errors[ErrKeyProjectSize], "664")
}

func TestReconcileRejectsIncompleteEntries(t *testing.T) {
	store := newFakeFileStore()
	prober := &fakeProber{objects: map[string]bool{}}

	result, err := Reconcile(context.Background(), store, prober, "fac001",
		[]models.UploadLogEntry{{Name: "orphan"}})
	require.NoError(t, err)

	assert.Equal(t, 0, result.FilesAdded)
	assert.Contains(t, result.Errors, "orphan")
}
