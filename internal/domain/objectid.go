package domain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// ObjectID is an opaque 12-byte identifier: a 4-byte big-endian unix
// timestamp, a 5-byte process-entropy value, and a 3-byte monotonic
// counter. The layout mirrors a Mongo ObjectId; the counter keeps ids
// generated within the same second strictly increasing, the way the
// teacher's request-id generator uses a ulid.Monotonic entropy source to
// keep same-millisecond ids ordered.
type ObjectID [12]byte

// NilObjectID is the zero value, used to represent "absent" fields that
// the data model marks optional (assignedErrandId, currentActiveErrand).
var NilObjectID ObjectID

var (
	objectIDMu      sync.Mutex
	objectIDCounter uint32
	processEntropy  [5]byte
)

func init() {
	if _, err := rand.Read(processEntropy[:]); err != nil {
		// crypto/rand failing means the OS entropy source is broken;
		// fall back to a time-derived value rather than panicking.
		binary.BigEndian.PutUint32(processEntropy[:4], uint32(time.Now().UnixNano()))
	}
	var seed [4]byte
	_, _ = rand.Read(seed[:])
	objectIDCounter = binary.BigEndian.Uint32(seed[:])
}

// NewObjectID generates a fresh ObjectID from the current time.
func NewObjectID() ObjectID {
	objectIDMu.Lock()
	objectIDCounter++
	counter := objectIDCounter
	objectIDMu.Unlock()

	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(time.Now().Unix()))
	copy(id[4:9], processEntropy[:])
	id[9] = byte(counter >> 16)
	id[10] = byte(counter >> 8)
	id[11] = byte(counter)
	return id
}

// String renders the ObjectID as 24 lowercase hex characters.
func (id ObjectID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether id is the nil ObjectID.
func (id ObjectID) IsZero() bool { return id == NilObjectID }

// ParseObjectID parses a 24-character hex string back into an ObjectID.
func ParseObjectID(s string) (ObjectID, error) {
	var id ObjectID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("op=objectid.parse: %w: %v", ErrInvalidArgument, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("op=objectid.parse: %w: want %d bytes, got %d", ErrInvalidArgument, len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler so ObjectID round-trips
// through JSON and the key-value config loader as a plain hex string.
func (id ObjectID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ObjectID) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
