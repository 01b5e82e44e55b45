package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	errs "github.com/ttn-nguyen42/deferq/internal/errors"
	"go.etcd.io/bbolt"
)

type store struct {
	mu sync.RWMutex

	logger *slog.Logger
	db     *bbolt.DB
	opts   *StoreOpts
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

type StoreOpts struct {
	Path   string
	Logger *slog.Logger

	// NoSync skips fsync after each commit. Only meant for tests.
	NoSync bool
}

func NewStore(opts *StoreOpts) (Store, error) {
	o := defaultOpts(opts)
	str := &store{
		opts:   o,
		logger: o.Logger,
	}
	return str, str.init()
}

func defaultOpts(o *StoreOpts) *StoreOpts {
	def := &StoreOpts{
		Path:   "state.db",
		Logger: slog.Default(),
	}
	if o == nil {
		return def
	}
	if len(o.Path) > 0 {
		def.Path = o.Path
	}
	if o.Logger != nil {
		def.Logger = o.Logger
	}
	def.NoSync = o.NoSync

	return def
}

func (s *store) init() error {
	db, err := bbolt.Open(s.opts.Path, 0600, &bbolt.Options{
		Timeout: time.Second * 1,
		NoSync:  s.opts.NoSync,
	})
	if err != nil {
		return err
	}
	s.db = db

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bytes(BucketTaskInfo))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to initialize task info bucket: %w", err)
	}

	s.logger.
		With("path", s.opts.Path).
		Debug("state store opened")

	return nil
}

func bytes(str string) []byte {
	return []byte(str)
}

func (s *store) conn() (*bbolt.DB, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db == nil {
		return nil, fmt.Errorf("store is already shutdown")
	}
	return db, nil
}

func (s *store) RecordInfo(t *TaskInfo) (id string, err error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}

	tx := func(tx *bbolt.Tx) error {
		id, err = s.recordInfo(tx, t)
		return err
	}

	if err := db.Update(tx); err != nil {
		return "", err
	}

	return id, nil
}

func (s *store) recordInfo(tx *bbolt.Tx, t *TaskInfo) (id string, err error) {
	bucket, err := tx.CreateBucketIfNotExists(bytes(BucketTaskInfo))
	if err != nil {
		return "", fmt.Errorf("failed to initialize task info bucket: %w", err)
	}

	if len(t.ID) > 0 {
		id = t.ID
	} else {
		id = uuid.Must(uuid.NewV7()).String()
		t.ID = id
	}

	if t.SubmittedAt.IsZero() {
		t.SubmittedAt = time.Now()
	}

	enc, err := EncodeInfo(t)
	if err != nil {
		return "", err
	}

	if err := bucket.Put(bytes(TaskInfoKey(id)), enc); err != nil {
		return "", fmt.Errorf("failed to save task info: %w", err)
	}

	return id, nil
}

func (s *store) GetInfo(id string) (info *TaskInfo, err error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	err = db.View(func(tx *bbolt.Tx) error {
		info, err = s.getInfo(tx, id)
		return err
	})

	return info, err
}

func (s *store) getInfo(tx *bbolt.Tx, id string) (*TaskInfo, error) {
	bucket := tx.Bucket(bytes(BucketTaskInfo))
	if bucket == nil {
		return nil, errs.NewErrNotFound("task")
	}

	data := bucket.Get(bytes(TaskInfoKey(id)))
	if data == nil {
		return nil, errs.NewErrNotFound("task")
	}

	return DecodeInfo(data)
}

func (s *store) DeleteInfo(id string) (ok bool, err error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		ok, err = s.deleteInfo(tx, id)
		return err
	})

	return ok, err
}

func (s *store) deleteInfo(tx *bbolt.Tx, id string) (ok bool, err error) {
	bucket := tx.Bucket(bytes(BucketTaskInfo))
	if bucket == nil {
		return false, errs.NewErrNotFound("task")
	}

	key := bytes(TaskInfoKey(id))
	if bucket.Get(key) == nil {
		return false, nil
	}

	if err := bucket.Delete(key); err != nil {
		return false, fmt.Errorf("failed to delete task info: %w", err)
	}

	return true, nil
}

func (s *store) ListInfo(skip uint64, limit uint64) (info []TaskInfo, err error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	err = db.View(func(tx *bbolt.Tx) error {
		info, err = s.listInfo(
			tx,
			skip,
			limit,
		)
		return err
	})

	return info, err
}

func (s *store) listInfo(tx *bbolt.Tx, skip, limit uint64) ([]TaskInfo, error) {
	bucket := tx.Bucket(bytes(BucketTaskInfo))
	if bucket == nil {
		return nil, nil
	}

	var list []TaskInfo

	if limit == 0 {
		return list, nil
	}

	// task IDs are UUIDv7, so key order is submission order
	cur := bucket.Cursor()

	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		if skip > 0 {
			skip -= 1
			continue
		}

		limit -= 1
		t, err := DecodeInfo(v)
		if err != nil {
			return nil, fmt.Errorf("failed to DecodeInfo task info: %w", err)
		}

		list = append(list, *t)
		if limit == 0 {
			break
		}
	}

	return list, nil
}

func (s *store) UpdateInfo(id string, upd func(*TaskInfo) bool) (ok bool, err error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	tx := func(tx *bbolt.Tx) error {
		ok, err = s.updateInfo(tx, id, upd)
		if err != nil {
			return err
		}
		return nil
	}

	err = db.Update(tx)
	if err != nil {
		return false, err
	}

	return
}

func (s *store) updateInfo(tx *bbolt.Tx, id string, upd func(*TaskInfo) bool) (ok bool, err error) {
	bucket := tx.Bucket(bytes(BucketTaskInfo))
	if bucket == nil {
		return false, errs.NewErrNotFound("task")
	}

	key := TaskInfoKey(id)
	dat := bucket.Get(bytes(key))
	if dat == nil {
		return false, nil
	}

	t, err := DecodeInfo(dat)
	if err != nil {
		return false, fmt.Errorf("failed to DecodeInfo task info: %w", err)
	}

	if updated := upd(t); !updated {
		// aborted
		return true, nil
	}

	enc, err := EncodeInfo(t)
	if err != nil {
		return false, err
	}

	if err := bucket.Put(bytes(key), enc); err != nil {
		return false, fmt.Errorf("failed to save task info: %w", err)
	}

	return true, nil
}

func (s *store) CountByStatus() (counts map[TaskStatus]uint64, err error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	counts = make(map[TaskStatus]uint64)

	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bytes(BucketTaskInfo))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(_, v []byte) error {
			t, err := DecodeInfo(v)
			if err != nil {
				return fmt.Errorf("failed to DecodeInfo task info: %w", err)
			}
			counts[t.Status] += 1
			return nil
		})
	})

	return counts, err
}
