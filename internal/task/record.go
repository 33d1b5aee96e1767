package task

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/roach88/taskstore/internal/ir"
)

// Record layout sizes.
const (
	// MaxContentBytes bounds the content field.
	MaxContentBytes = 200

	// DiscriminatorLen is the account type tag at the front of every record.
	DiscriminatorLen = 8

	// Space is the fixed allocation for every record:
	// discriminator + owner + (length prefix + content) + marked.
	Space = DiscriminatorLen + 32 + 4 + MaxContentBytes + 1
)

// Discriminator tags task records: SHA-256("account:TaskAccount")[:8].
var Discriminator = accountDiscriminator("TaskAccount")

func accountDiscriminator(name string) [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// Record is a stored task.
type Record struct {
	Owner   ir.Identity `json:"owner"`
	Content string      `json:"content"`
	Marked  bool        `json:"marked"`
}

// MarshalBinary encodes r into exactly Space bytes:
//
//	[0:8)   discriminator
//	[8:40)  owner
//	[40:44) content length, uint32 little-endian
//	[44:44+n) content
//	[44+n]  marked (0 or 1)
//
// The remainder is zero.
func (r Record) MarshalBinary() ([]byte, error) {
	if len(r.Content) > MaxContentBytes {
		return nil, fmt.Errorf("content is %d bytes, max %d", len(r.Content), MaxContentBytes)
	}

	buf := make([]byte, Space)
	off := copy(buf, Discriminator[:])
	off += copy(buf[off:], r.Owner[:])
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(r.Content)))
	off += 4
	off += copy(buf[off:], r.Content)
	if r.Marked {
		buf[off] = 1
	}
	return buf, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (r *Record) UnmarshalBinary(data []byte) error {
	const header = DiscriminatorLen + 32 + 4
	if len(data) < header+1 {
		return fmt.Errorf("record is %d bytes, too short", len(data))
	}
	if [DiscriminatorLen]byte(data[:DiscriminatorLen]) != Discriminator {
		return fmt.Errorf("account discriminator mismatch")
	}

	n := int(binary.LittleEndian.Uint32(data[DiscriminatorLen+32:]))
	if n > MaxContentBytes || header+n+1 > len(data) {
		return fmt.Errorf("content length %d out of range", n)
	}

	var out Record
	copy(out.Owner[:], data[DiscriminatorLen:DiscriminatorLen+32])
	out.Content = string(data[header : header+n])
	switch data[header+n] {
	case 0:
	case 1:
		out.Marked = true
	default:
		return fmt.Errorf("invalid marked byte %#x", data[header+n])
	}

	*r = out
	return nil
}
