package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// Binary index file layout (little-endian):
//
//	magic    uint32  "LGVX"
//	version  uint16
//	kind     uint8
//	trained  uint8
//	dim      uint32
//	nlist    uint32  (0 for flat)
//	ntotal   uint64
//	vectors  ntotal*dim float32
//	IVF only:
//	  centroids  nlist*dim float32
//	  per list:  length uint64, ids []int64
const (
	indexMagic   = uint32(0x4c475658)
	indexVersion = uint16(1)

	// maxIndexFloats caps the float32 count decoded from any header
	// field. A corrupt or hostile header must not drive allocation; at
	// 1<<31 floats (8 GiB) the cap sits far above any real index.
	maxIndexFloats = uint64(1) << 31
)

// WriteTo serializes the index in its binary format.
func (ix *Index) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, v := range []any{
		indexMagic, indexVersion, uint8(ix.spec.Kind), boolByte(ix.trained),
		uint32(ix.dim), uint32(ix.spec.Nlist), uint64(ix.Ntotal()),
	} {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("vector: write index header: %w", err)
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, ix.vectors); err != nil {
		return fmt.Errorf("vector: write vectors: %w", err)
	}
	if ix.spec.Kind == KindIVF {
		if err := binary.Write(bw, binary.LittleEndian, ix.centroids); err != nil {
			return fmt.Errorf("vector: write centroids: %w", err)
		}
		for _, list := range ix.lists {
			if err := binary.Write(bw, binary.LittleEndian, uint64(len(list))); err != nil {
				return fmt.Errorf("vector: write list length: %w", err)
			}
			if err := binary.Write(bw, binary.LittleEndian, list); err != nil {
				return fmt.Errorf("vector: write list ids: %w", err)
			}
		}
	}
	return bw.Flush()
}

// ReadIndex deserializes an index written by WriteTo. Structural problems
// surface as ErrCorruption.
func ReadIndex(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var (
		magic   uint32
		version uint16
		kind    uint8
		trained uint8
		dim     uint32
		nlist   uint32
		ntotal  uint64
	)
	for _, v := range []any{&magic, &version, &kind, &trained, &dim, &nlist, &ntotal} {
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("vector: read index header: %v: %w", err, rag.ErrCorruption)
		}
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("vector: bad index magic %#x: %w", magic, rag.ErrCorruption)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("vector: unsupported index version %d: %w", version, rag.ErrCorruption)
	}
	if dim == 0 {
		return nil, fmt.Errorf("vector: zero dimension in index header: %w", rag.ErrCorruption)
	}

	spec := IndexSpec{Kind: IndexKind(kind), Nlist: int(nlist)}
	switch spec.Kind {
	case KindFlat, KindIVF:
	default:
		return nil, fmt.Errorf("vector: unknown index kind %d: %w", kind, rag.ErrCorruption)
	}

	// Division keeps the bound overflow-proof; ntotal*dim can wrap
	// uint64 to a small, plausible-looking length.
	if ntotal > maxIndexFloats/uint64(dim) {
		return nil, fmt.Errorf("vector: index header claims %d vectors of dimension %d: %w",
			ntotal, dim, rag.ErrCorruption)
	}
	if uint64(nlist)*uint64(dim) > maxIndexFloats {
		return nil, fmt.Errorf("vector: index header claims %d lists of dimension %d: %w",
			nlist, dim, rag.ErrCorruption)
	}

	ix := &Index{spec: spec, dim: int(dim), trained: trained != 0}
	ix.vectors = make([]float32, ntotal*uint64(dim))
	if err := binary.Read(br, binary.LittleEndian, ix.vectors); err != nil {
		return nil, fmt.Errorf("vector: read vectors: %v: %w", err, rag.ErrCorruption)
	}
	if spec.Kind == KindIVF {
		ix.centroids = make([]float32, spec.Nlist*ix.dim)
		if err := binary.Read(br, binary.LittleEndian, ix.centroids); err != nil {
			return nil, fmt.Errorf("vector: read centroids: %v: %w", err, rag.ErrCorruption)
		}
		ix.lists = make([][]int64, spec.Nlist)
		for c := range ix.lists {
			var n uint64
			if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
				return nil, fmt.Errorf("vector: read list length: %v: %w", err, rag.ErrCorruption)
			}
			// A list can never hold more ids than the index holds vectors.
			if n > ntotal {
				return nil, fmt.Errorf("vector: list %d claims %d ids for %d vectors: %w",
					c, n, ntotal, rag.ErrCorruption)
			}
			ix.lists[c] = make([]int64, n)
			if err := binary.Read(br, binary.LittleEndian, ix.lists[c]); err != nil {
				return nil, fmt.Errorf("vector: read list ids: %v: %w", err, rag.ErrCorruption)
			}
		}
	}
	return ix, nil
}

// SaveFile writes the index to path atomically (temp file + rename).
func (ix *Index) SaveFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vector: create index file: %w", err)
	}
	if err := ix.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vector: close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vector: rename index file: %w", err)
	}
	return nil
}

// LoadFile reads an index from path. A missing or unreadable file is
// ErrCorruption so callers can distinguish it from an empty index.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vector: open index file %s: %v: %w", path, err, rag.ErrCorruption)
	}
	defer f.Close()
	return ReadIndex(f)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
