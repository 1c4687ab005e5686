package kraft

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4"
)

// Compression selects the codec MemoryAccumulator uses to compress the
// batches it builds, mirroring the produce-path codec choice a full Kafka
// client (the teacher's go.mod: snappy, klauspost/compress, pierrec/lz4)
// offers for record batches.
type Compression int8

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionGzip
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// ControlRecord is one of the three control-record shapes this module
// appends at epoch start (spec §4.5). Exact byte layout is delegated to the
// real accumulator in a production system; this internal encoding exists
// only to make MemoryAccumulator's behavior observable in tests.
type ControlRecord interface {
	controlRecordType() string
	encode() []byte
}

// LeaderChangeRecord announces the new leader, its epoch's voters, and the
// voters that granted it.
type LeaderChangeRecord struct {
	Version       int16
	LeaderID      int32
	Voters        []int32
	GrantingVoters []int32
}

func (LeaderChangeRecord) controlRecordType() string { return "LeaderChange" }

func (r LeaderChangeRecord) encode() []byte {
	var buf bytes.Buffer
	writeInt16(&buf, r.Version)
	writeInt32(&buf, r.LeaderID)
	writeInt32Slice(&buf, r.Voters)
	writeInt32Slice(&buf, r.GrantingVoters)
	return buf.Bytes()
}

// KRaftVersionRecord records the KRaft version in effect at epoch start.
type KRaftVersionRecord struct {
	Version      int16
	KRaftVersion int16
}

func (KRaftVersionRecord) controlRecordType() string { return "KRaftVersion" }

func (r KRaftVersionRecord) encode() []byte {
	var buf bytes.Buffer
	writeInt16(&buf, r.Version)
	writeInt16(&buf, r.KRaftVersion)
	return buf.Bytes()
}

// VotersRecord captures a voter-set snapshot, emitted alongside
// KRaftVersionRecord when the epoch-start voter set came from a bootstrap
// checkpoint rather than the log itself (spec §4.5).
type VotersRecord struct {
	Version int16
	VoterIDs []int32
}

func (VotersRecord) controlRecordType() string { return "Voters" }

func (r VotersRecord) encode() []byte {
	var buf bytes.Buffer
	writeInt16(&buf, r.Version)
	writeInt32Slice(&buf, r.VoterIDs)
	return buf.Bytes()
}

func writeInt16(buf *bytes.Buffer, v int16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeInt32Slice(buf *bytes.Buffer, vs []int32) {
	writeInt32(buf, int32(len(vs)))
	for _, v := range vs {
		writeInt32(buf, v)
	}
}

// Batch is one drained, possibly-compressed group of control records.
type Batch struct {
	Compression Compression
	Records     []ControlRecord
	Payload     []byte // compressed encoding of Records, per Compression
}

// BatchAccumulator is the collaborator consumed by
// appendLeaderChangeMessageAndBootstrapRecords (spec §4.5, §6). Its
// internals (storage, wire format, batching policy) are out of scope for
// this module; only this append/drain contract is consumed.
type BatchAccumulator interface {
	// AppendControlRecords appends records as a single group to be drained
	// together in one batch.
	AppendControlRecords(records ...ControlRecord) error
	// ForceDrain flushes any buffered records into a Batch immediately,
	// without waiting for a size/time-based trigger.
	ForceDrain() (Batch, error)
	// Close releases any resources held by the accumulator.
	Close() error
}

// MemoryAccumulator is an in-memory, test-grade BatchAccumulator. It is not
// a production log writer: real persistence and wire-compatible encoding are
// the responsibility of the external log store (spec §1 Out of scope).
type MemoryAccumulator struct {
	mu          sync.Mutex
	compression Compression
	pending     []ControlRecord
	closed      bool
}

// NewMemoryAccumulator returns a MemoryAccumulator compressing drained
// batches with compression.
func NewMemoryAccumulator(compression Compression) *MemoryAccumulator {
	return &MemoryAccumulator{compression: compression}
}

func (a *MemoryAccumulator) AppendControlRecords(records ...ControlRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("kraft: accumulator closed")
	}
	a.pending = append(a.pending, records...)
	return nil
}

func (a *MemoryAccumulator) ForceDrain() (Batch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Batch{}, fmt.Errorf("kraft: accumulator closed")
	}
	records := a.pending
	a.pending = nil

	var raw bytes.Buffer
	for _, r := range records {
		writeInt16(&raw, int16(len(r.controlRecordType())))
		raw.WriteString(r.controlRecordType())
		enc := r.encode()
		writeInt32(&raw, int32(len(enc)))
		raw.Write(enc)
	}

	payload, err := compress(a.compression, raw.Bytes())
	if err != nil {
		return Batch{}, err
	}

	return Batch{Compression: a.compression, Records: records, Payload: payload}, nil
}

func (a *MemoryAccumulator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func compress(c Compression, raw []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionSnappy:
		return snappy.Encode(nil, raw), nil
	case CompressionGzip:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		ht := make([]int, 1<<16)
		n, err := lz4.CompressBlock(raw, dst, ht)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// incompressible input: lz4.CompressBlock returns n==0
			return raw, nil
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("kraft: unknown compression %v", c)
	}
}

// decompress reverses compress; used by tests to verify Payload round-trips.
func decompress(c Compression, payload []byte, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionSnappy:
		return snappy.Decode(nil, payload)
	case CompressionGzip:
		r := flate.NewReader(bytes.NewReader(payload))
		defer r.Close()
		return ioutil.ReadAll(r)
	case CompressionLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("kraft: unknown compression %v", c)
	}
}
