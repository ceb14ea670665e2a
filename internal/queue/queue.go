// Package queue holds artifacts that could not be delivered yet.
//
// The queue is a local folder containing a que_db.json ledger and a copy of
// every queued artifact. Records and files are added and removed together,
// but not transactionally: a crash between the copy and the ledger write
// leaves an orphaned file that is not referenced by any record.
package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"mangadrop/internal/artifact"
	"mangadrop/internal/fileutil"
	"mangadrop/internal/ledger"
	"mangadrop/internal/services"
)

// DBFileName is the ledger file inside the queue folder.
const DBFileName = "que_db.json"

// Queue is the durable delivery queue rooted at one folder.
type Queue struct {
	dir    string
	ledger *ledger.Ledger
}

// New binds a queue to dir.
func New(dir string) *Queue {
	return &Queue{dir: dir, ledger: ledger.New(filepath.Join(dir, DBFileName), "queue")}
}

// Dir returns the queue folder.
func (q *Queue) Dir() string {
	return q.dir
}

// EnsureInitialized creates the folder and an empty ledger when missing.
func (q *Queue) EnsureInitialized() error {
	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		return fmt.Errorf("ensure queue dir: %w", err)
	}
	return q.ledger.EnsureInitialized()
}

// List returns queued records oldest first.
func (q *Queue) List() ([]artifact.Record, error) {
	return q.ledger.List()
}

// Find returns the queued record for fileName.
func (q *Queue) Find(fileName string) (artifact.Record, bool, error) {
	return q.ledger.Find(fileName)
}

// Add copies the artifact file into the queue folder and records it. An
// artifact whose file name is already queued is skipped.
func (q *Queue) Add(a artifact.Artifact) (bool, error) {
	if _, ok, err := q.ledger.Find(a.FileName()); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}
	dst := q.SourcePath(a.Record())
	if filepath.Clean(a.Path) != filepath.Clean(dst) {
		if _, err := fileutil.CopyVerified(a.Path, dst); err != nil {
			return false, fmt.Errorf("copy %s into queue: %w", a.FileName(), err)
		}
	}
	return q.ledger.Add(a.Record())
}

// Remove deletes the record and its backing file. ErrNotFound is returned
// when no record matches; the folder is not touched in that case.
func (q *Queue) Remove(rec artifact.Record) error {
	removed, err := q.ledger.Remove(rec.FileName)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "queue", "remove", rec.FileName, nil)
	}
	if err := fileutil.RemoveIfExists(q.SourcePath(rec)); err != nil {
		return fmt.Errorf("remove queued file %s: %w", rec.FileName, err)
	}
	return nil
}

// SourcePath is where the queued copy of rec lives.
func (q *Queue) SourcePath(rec artifact.Record) string {
	return filepath.Join(q.dir, rec.FileName)
}

// Artifact rebuilds the queued artifact for rec.
func (q *Queue) Artifact(rec artifact.Record) (artifact.Artifact, error) {
	return rec.Artifact(q.dir)
}
