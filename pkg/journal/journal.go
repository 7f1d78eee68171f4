// Package journal keeps a persistent record of the exchanges made with each
// card. It is a device.Listener: subscribe it to a Manager and every
// response-received event is stored.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/buntdb"

	"github.com/gregLibert/cardsession/pkg/device"
)

// InMemory opens a journal that is not written to disk.
const InMemory = ":memory:"

const seqKey = "meta:seq"

// Entry is one recorded exchange.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Reader   string    `json:"reader"`
	ATR      string    `json:"atr"`
	Command  string    `json:"command"`
	Response string    `json:"response"`
	Status   string    `json:"status"`
	Meaning  string    `json:"meaning"`
	Time     time.Time `json:"time"`
}

// Journal stores entries in a buntdb database.
type Journal struct {
	db  *buntdb.DB
	log logrus.FieldLogger
	now func() time.Time
}

// Open opens (or creates) the journal at path. Use InMemory for a
// throw-away journal.
func Open(path string, log logrus.FieldLogger) (*Journal, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Journal{db: db, log: log, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// HandleEvent implements device.Listener.
func (j *Journal) HandleEvent(e device.Event) {
	if e.Kind != device.KindResponseReceived || e.Command == nil || e.Response == nil {
		return
	}

	entry := Entry{
		Reader:   e.ReaderName(),
		Command:  e.Command.String(),
		Response: e.Response.String(),
		Status:   e.Response.StatusCode(),
		Meaning:  e.Response.Meaning(),
	}
	if e.Card != nil {
		entry.ATR = e.Card.ATR()
	}

	if _, err := j.Record(entry); err != nil {
		j.log.WithError(err).WithField("reader", entry.Reader).Error("journal write failed")
	}
}

// Record stores an entry, assigning its sequence number and, when unset,
// its time.
func (j *Journal) Record(e Entry) (Entry, error) {
	if e.Time.IsZero() {
		e.Time = j.now().UTC()
	}

	err := j.db.Update(func(tx *buntdb.Tx) error {
		seq, err := nextSeq(tx)
		if err != nil {
			return err
		}
		e.Seq = seq

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(entryKey(e.Reader, seq), string(data), nil)
		return err
	})
	return e, err
}

// Entries returns the entries of a reader, oldest first.
func (j *Journal) Entries(reader string) ([]Entry, error) {
	prefix := readerPrefix(reader)
	var out []Entry

	err := j.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.AscendGreaterOrEqual("", prefix, func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return false
			}
			var e Entry
			if decodeErr = json.Unmarshal([]byte(value), &e); decodeErr != nil {
				decodeErr = fmt.Errorf("entry %s: %w", key, decodeErr)
				return false
			}
			out = append(out, e)
			return true
		})
		if err != nil {
			return err
		}
		return decodeErr
	})
	return out, err
}

// Purge deletes the entries of a reader and returns how many were removed.
func (j *Journal) Purge(reader string) (int, error) {
	prefix := readerPrefix(reader)
	var keys []string

	err := j.db.Update(func(tx *buntdb.Tx) error {
		err := tx.AscendGreaterOrEqual("", prefix, func(key, _ string) bool {
			if !strings.HasPrefix(key, prefix) {
				return false
			}
			keys = append(keys, key)
			return true
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func nextSeq(tx *buntdb.Tx) (uint64, error) {
	var seq uint64

	v, err := tx.Get(seqKey)
	switch {
	case errors.Is(err, buntdb.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		if seq, err = strconv.ParseUint(v, 10, 64); err != nil {
			return 0, fmt.Errorf("corrupted sequence %q: %w", v, err)
		}
	}

	seq++
	if _, _, err := tx.Set(seqKey, strconv.FormatUint(seq, 10), nil); err != nil {
		return 0, err
	}
	return seq, nil
}

func readerPrefix(reader string) string {
	return "tx:" + reader + "|"
}

// entryKey sorts entries of one reader by sequence.
func entryKey(reader string, seq uint64) string {
	return fmt.Sprintf("%s%016x", readerPrefix(reader), seq)
}
