package transport

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"

	"ironbook/internal/common"
)

// SlotSize is the fixed size of the shared-memory slot file (spec §6.3).
const SlotSize = 4096

// slotHeaderLen is the 4-byte little-endian length prefix.
const slotHeaderLen = 4

// SlotPath builds the conventional path for a given date and exchange
// (spec §6.3: "/tmp/<YYYYMMDD>.<EXCHANGE>").
func SlotPath(date time.Time, exchange string) string {
	return fmt.Sprintf("/tmp/%s.%s", date.Format("20060102"), exchange)
}

// Slot is the shared-memory ring-slot transport (spec §6.3). It is
// single-writer single-reader by convention; the ingress loop is the sole
// reader. Overruns (a length prefix out of the valid range) are reported as
// ErrSlotOverrun after the prefix is zeroed, matching the §7 policy.
type Slot struct {
	file *os.File
	mmap mmap.MMap
}

// OpenSlot memory-maps path for read/write. If create is true and the file
// does not exist, it is created and sized to SlotSize (used by producers:
// cmd/feedgen and the validator's egress slot; the validator opens its
// ingress slot without create, so that file must already exist).
func OpenSlot(path string, create bool) (*Slot, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open slot %q: %w", path, err)
	}
	if create {
		if err := f.Truncate(SlotSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("size slot %q: %w", path, err)
		}
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap slot %q: %w", path, err)
	}
	return &Slot{file: f, mmap: m}, nil
}

// TryReceive implements the reader half of the slot protocol (spec §6.3,
// §4.6): read the length prefix; zero means no new event. A non-zero
// length within range yields the payload, and the prefix is zeroed
// atomically with respect to the reader (single-reader assumption) to mark
// the slot consumed — best-effort, not a correctness guarantee across
// producer restarts (spec §9).
func (s *Slot) TryReceive() ([]byte, bool, error) {
	length := binary.LittleEndian.Uint32(s.mmap[:slotHeaderLen])
	if length == 0 {
		return nil, false, nil
	}
	if int(length) >= SlotSize-slotHeaderLen {
		s.zero()
		return nil, false, fmt.Errorf("%w: length %d exceeds slot capacity", common.ErrSlotOverrun, length)
	}
	payload := make([]byte, length)
	copy(payload, s.mmap[slotHeaderLen:slotHeaderLen+int(length)])
	s.zero()
	return payload, true, nil
}

func (s *Slot) zero() {
	binary.LittleEndian.PutUint32(s.mmap[:slotHeaderLen], 0)
}

// Write is the producer-side half of the protocol: write length then
// payload, then flush. Called through Send by cmd/feedgen and by the
// validator's egress slot.
func (s *Slot) Write(payload []byte) error {
	if len(payload) >= SlotSize-slotHeaderLen {
		return fmt.Errorf("%w: payload of %d octets exceeds slot capacity", common.ErrSlotOverrun, len(payload))
	}
	binary.LittleEndian.PutUint32(s.mmap[:slotHeaderLen], uint32(len(payload)))
	copy(s.mmap[slotHeaderLen:slotHeaderLen+len(payload)], payload)
	return s.mmap.Flush()
}

// Send satisfies the Sink interface for symmetry with PubSub/PubSubSink,
// delegating to Write.
func (s *Slot) Send(payload []byte) error {
	return s.Write(payload)
}

func (s *Slot) Close() error {
	if err := s.mmap.Unmap(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
