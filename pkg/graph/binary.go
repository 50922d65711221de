package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/azybler/mvroute/pkg/metric"
)

// Binary file format for a finalized Store. The metric schema itself is not
// serialized here — it is supplied by configuration when reading back
// (spec.md §3: "the index of a metric by its identifier is resolved once
// and then passed around as an integer"), so the same binary graph can be
// re-opened under a schema whose KindGenerated producers differ without
// re-running Finalize.
const (
	magicBytes = "MVROUTE1"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
)

type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	NumNodes  uint32
	NumEdges  uint32
	MetricDim uint32
}

// WriteBinary serializes a Store to a binary file, atomically (write to a
// temp file, then rename), with a CRC32 trailer over the whole body —
// mirrors the teacher's WriteBinary exactly, generalized from a single
// Weight column to a per-edge metric vector.
func WriteBinary(path string, s *Store) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("graph: create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	n := uint32(len(s.Nodes))
	e := uint32(len(s.Edges))
	dim := uint32(0)
	if s.Schema != nil {
		dim = uint32(s.Schema.Dim())
	}

	hdr := fileHeader{Version: version, NumNodes: n, NumEdges: e, MetricDim: dim}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("graph: write header: %w", err)
	}

	extID := make([]uint64, n)
	lat := make([]float64, n)
	lon := make([]float64, n)
	level := make([]int32, n)
	height := make([]int32, n)
	for i, nd := range s.Nodes {
		extID[i] = nd.ExternalID
		lat[i] = nd.Lat
		lon[i] = nd.Lon
		level[i] = nd.Level
		height[i] = nd.Height
	}
	if err := writeUint64Slice(cw, extID); err != nil {
		return fmt.Errorf("graph: write ExternalID: %w", err)
	}
	if err := writeFloat64Slice(cw, lat); err != nil {
		return fmt.Errorf("graph: write Lat: %w", err)
	}
	if err := writeFloat64Slice(cw, lon); err != nil {
		return fmt.Errorf("graph: write Lon: %w", err)
	}
	if err := writeInt32Slice(cw, level); err != nil {
		return fmt.Errorf("graph: write Level: %w", err)
	}
	if err := writeInt32Slice(cw, height); err != nil {
		return fmt.Errorf("graph: write Height: %w", err)
	}

	if err := writeUint32Slice(cw, s.FwdOffset); err != nil {
		return fmt.Errorf("graph: write FwdOffset: %w", err)
	}

	src := make([]uint32, e)
	dst := make([]uint32, e)
	child0 := make([]int32, e)
	child1 := make([]int32, e)
	metrics := make([]float64, int(e)*int(dim))
	for i, ed := range s.Edges {
		src[i] = ed.Src
		dst[i] = ed.Dst
		child0[i] = ed.Child0
		child1[i] = ed.Child1
		copy(metrics[i*int(dim):(i+1)*int(dim)], ed.Metrics)
	}
	if err := writeUint32Slice(cw, src); err != nil {
		return fmt.Errorf("graph: write Src: %w", err)
	}
	if err := writeUint32Slice(cw, dst); err != nil {
		return fmt.Errorf("graph: write Dst: %w", err)
	}
	if err := writeFloat64Slice(cw, metrics); err != nil {
		return fmt.Errorf("graph: write Metrics: %w", err)
	}
	if err := writeInt32Slice(cw, child0); err != nil {
		return fmt.Errorf("graph: write Child0: %w", err)
	}
	if err := writeInt32Slice(cw, child1); err != nil {
		return fmt.Errorf("graph: write Child1: %w", err)
	}

	if err := writeUint32Slice(cw, s.BwdOrder); err != nil {
		return fmt.Errorf("graph: write BwdOrder: %w", err)
	}
	if err := writeUint32Slice(cw, s.BwdOffset); err != nil {
		return fmt.Errorf("graph: write BwdOffset: %w", err)
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("graph: write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("graph: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("graph: rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes a Store from a binary file, attaching the given
// metric schema (which must have the same Dim() as the file's MetricDim).
func ReadBinary(path string, schema *metric.Schema) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("graph: read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("graph: invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("graph: unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("graph: NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("graph: NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}
	if schema != nil && uint32(schema.Dim()) != hdr.MetricDim {
		return nil, fmt.Errorf("graph: schema dim %d != file metric dim %d", schema.Dim(), hdr.MetricDim)
	}

	n, e, dim := int(hdr.NumNodes), int(hdr.NumEdges), int(hdr.MetricDim)

	extID, err := readUint64Slice(cr, n)
	if err != nil {
		return nil, fmt.Errorf("graph: read ExternalID: %w", err)
	}
	lat, err := readFloat64Slice(cr, n)
	if err != nil {
		return nil, fmt.Errorf("graph: read Lat: %w", err)
	}
	lon, err := readFloat64Slice(cr, n)
	if err != nil {
		return nil, fmt.Errorf("graph: read Lon: %w", err)
	}
	level, err := readInt32Slice(cr, n)
	if err != nil {
		return nil, fmt.Errorf("graph: read Level: %w", err)
	}
	height, err := readInt32Slice(cr, n)
	if err != nil {
		return nil, fmt.Errorf("graph: read Height: %w", err)
	}

	fwdOffset, err := readUint32Slice(cr, n+1)
	if err != nil {
		return nil, fmt.Errorf("graph: read FwdOffset: %w", err)
	}

	src, err := readUint32Slice(cr, e)
	if err != nil {
		return nil, fmt.Errorf("graph: read Src: %w", err)
	}
	dst, err := readUint32Slice(cr, e)
	if err != nil {
		return nil, fmt.Errorf("graph: read Dst: %w", err)
	}
	flatMetrics, err := readFloat64Slice(cr, e*dim)
	if err != nil {
		return nil, fmt.Errorf("graph: read Metrics: %w", err)
	}
	child0, err := readInt32Slice(cr, e)
	if err != nil {
		return nil, fmt.Errorf("graph: read Child0: %w", err)
	}
	child1, err := readInt32Slice(cr, e)
	if err != nil {
		return nil, fmt.Errorf("graph: read Child1: %w", err)
	}

	bwdOrder, err := readUint32Slice(cr, e)
	if err != nil {
		return nil, fmt.Errorf("graph: read BwdOrder: %w", err)
	}
	bwdOffset, err := readUint32Slice(cr, n+1)
	if err != nil {
		return nil, fmt.Errorf("graph: read BwdOffset: %w", err)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("graph: read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("graph: CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	nodes := make([]Node, n)
	extToIdx := make(map[uint64]uint32, n)
	for i := range nodes {
		nodes[i] = Node{
			ExternalID: extID[i],
			Index:      uint32(i),
			Lat:        lat[i],
			Lon:        lon[i],
			Level:      level[i],
			Height:     height[i],
		}
		extToIdx[extID[i]] = uint32(i)
	}

	edges := make([]Edge, e)
	for i := range edges {
		edges[i] = Edge{
			Src:     src[i],
			Dst:     dst[i],
			Metrics: flatMetrics[i*dim : (i+1)*dim],
			Child0:  child0[i],
			Child1:  child1[i],
		}
	}

	if err := validateCSR(fwdOffset, src, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("graph: forward CSR invalid: %w", err)
	}

	return &Store{
		Schema:       schema,
		Nodes:        nodes,
		Edges:        edges,
		FwdOffset:    fwdOffset,
		BwdOrder:     bwdOrder,
		BwdOffset:    bwdOffset,
		extIDToIndex: extToIdx,
	}, nil
}

// validateCSR checks that FwdOffset is monotonic and that every edge's
// source falls in the range its own offset entry implies.
func validateCSR(fwdOffset []uint32, src []uint32, numNodes uint32) error {
	if uint32(len(fwdOffset)) != numNodes+1 {
		return fmt.Errorf("FwdOffset length %d != NumNodes+1 %d", len(fwdOffset), numNodes+1)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if fwdOffset[i] < fwdOffset[i-1] {
			return fmt.Errorf("FwdOffset not monotonic at %d: %d < %d", i, fwdOffset[i], fwdOffset[i-1])
		}
	}
	for v := uint32(0); v < numNodes; v++ {
		for i := fwdOffset[v]; i < fwdOffset[v+1]; i++ {
			if src[i] != v {
				return fmt.Errorf("edge %d has Src=%d, expected %d per FwdOffset", i, src[i], v)
			}
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice, the same technique as the
// teacher's binary.go.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeUint64Slice(w io.Writer, s []uint64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readUint64Slice(r io.Reader, n int) ([]uint64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
