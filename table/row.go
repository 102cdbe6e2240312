package table

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// MaxUsernameLen and MaxEmailLen are the longest username/email values
// that fit the fixed-capacity fields, leaving one byte for the null
// terminator.
const (
	MaxUsernameLen = UsernameSize - 1
	MaxEmailLen    = EmailSize - 1
)

// Row is the fixed-schema unit of storage: an unsigned 32-bit id (also
// the primary key) plus fixed-capacity username and email strings.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

// Serialize copies r into dst, which must be exactly RowSize bytes. The
// destination is zeroed first so unused capacity (and the null
// terminator) reads back as zero bytes, matching the original C struct's
// memcpy-into-fixed-buffer semantics.
func Serialize(r Row, dst []byte) error {
	if uint32(len(dst)) != RowSize {
		return errors.Errorf("table: serialize destination is %d bytes, want %d", len(dst), RowSize)
	}
	if uint32(len(r.Username)) > MaxUsernameLen {
		return errors.Errorf("table: username %q exceeds %d bytes", r.Username, MaxUsernameLen)
	}
	if uint32(len(r.Email)) > MaxEmailLen {
		return errors.Errorf("table: email %q exceeds %d bytes", r.Email, MaxEmailLen)
	}

	for i := range dst {
		dst[i] = 0
	}
	binary.LittleEndian.PutUint32(dst[IDOffset:IDOffset+IDSize], r.ID)
	copy(dst[UsernameOffset:UsernameOffset+UsernameSize], r.Username)
	copy(dst[EmailOffset:EmailOffset+EmailSize], r.Email)
	return nil
}

// Deserialize is the inverse of Serialize: for any valid row r,
// Deserialize(Serialize(r)) == r.
func Deserialize(src []byte) (Row, error) {
	if uint32(len(src)) != RowSize {
		return Row{}, errors.Errorf("table: deserialize source is %d bytes, want %d", len(src), RowSize)
	}

	id := binary.LittleEndian.Uint32(src[IDOffset : IDOffset+IDSize])
	username := cString(src[UsernameOffset : UsernameOffset+UsernameSize])
	email := cString(src[EmailOffset : EmailOffset+EmailSize])

	return Row{ID: id, Username: username, Email: email}, nil
}

// cString trims a fixed-capacity null-terminated field down to its
// string content.
func cString(field []byte) string {
	if i := strings.IndexByte(string(field), 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}
