package store

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
	"src.vapo.dev/pkg/frame"
)

func init() {
	initDB["initialize change journal"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketChanges))
		return err
	}
}

const bucketChanges = "changes"

// ErrCorruptChange is returned when a journal entry cannot be decoded.
var ErrCorruptChange = errors.New("corrupt journal entry")

// Change is an entry in the journal.
type Change struct {
	Seq    int       `json:"-"`
	Time   time.Time `json:"time"`
	Cell   uint64    `json:"cell"`
	Frame  uint64    `json:"frame"`
	Before string    `json:"before"`
	After  string    `json:"after"`
}

// FromFrame converts a change notification into a journal entry stamped with
// the current time.
func FromFrame(c frame.Change) Change {
	return Change{Time: time.Now(), Cell: c.Cell, Frame: c.Frame, Before: c.Before, After: c.After}
}

// NextChangeSeq returns the sequence number the next entry will get.
func (s *dbStore) NextChangeSeq() (int, error) {
	var seq uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		seq = tx.Bucket([]byte(bucketChanges)).Sequence() + 1
		return nil
	})
	return int(seq), err
}

// AddChange appends an entry to the journal and returns its sequence number.
// The Seq field of c is ignored.
func (s *dbStore) AddChange(c Change) (int, error) {
	value, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), value)
	})
	return int(seq), err
}

// Changes returns all entries with sequence numbers in [from, upto), in order.
func (s *dbStore) Changes(from, upto int) ([]Change, error) {
	var changes []Change
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketChanges)).Cursor()
		for k, v := c.Seek(marshalSeq(uint64(from))); k != nil && unmarshalSeq(k) < uint64(upto); k, v = c.Next() {
			var change Change
			if err := json.Unmarshal(v, &change); err != nil {
				return ErrCorruptChange
			}
			change.Seq = int(unmarshalSeq(k))
			changes = append(changes, change)
		}
		return nil
	})
	return changes, err
}

// Notifier returns a frame.Notifier that appends every change to st. Errors
// are logged and otherwise ignored.
func Notifier(st Store) frame.Notifier {
	return frame.NotifierFunc(func(c frame.Change) {
		if _, err := st.AddChange(FromFrame(c)); err != nil {
			logger.Errorw("failed to journal change", "cell", c.Cell, "error", err)
		}
	})
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
