package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// CurrentSchemaVersion is the first byte of every encoded record.
const CurrentSchemaVersion = 1

const maxFieldLen = 255

// ErrCorruptSession is returned by Decode for records it cannot read.
var ErrCorruptSession = errors.New("session: corrupt record")

// Encode serializes s as:
//
//	version | len user | user | len tenant | tenant | status | created | expires
//
// Integers are big-endian int64. The session ID is the key, not the value.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("session: nil session")
	}
	if len(s.UserID) > maxFieldLen {
		return nil, errors.New("userID too long")
	}
	if len(s.TenantID) > maxFieldLen {
		return nil, errors.New("tenantID too long")
	}

	var buf bytes.Buffer
	buf.Grow(4 + len(s.UserID) + len(s.TenantID) + 16)

	buf.WriteByte(CurrentSchemaVersion)
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)
	buf.WriteByte(byte(len(s.TenantID)))
	buf.WriteString(s.TenantID)
	buf.WriteByte(byte(s.Status))

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record written by Encode. Every error wraps
// [ErrCorruptSession].
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorruptSession, version)
	}

	s := &Session{}
	if s.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if s.TenantID, err = readString(reader); err != nil {
		return nil, err
	}

	status, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if Status(status) > StatusRevoked {
		return nil, fmt.Errorf("%w: unknown status %d", ErrCorruptSession, status)
	}
	s.Status = Status(status)

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSession, reader.Len())
	}

	return s, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return string(b), nil
}
