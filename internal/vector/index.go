// Package vector implements the similarity-search index behind retrieval:
// a flat exact-L2 index and an inverted-file (IVF) approximate index with
// a k-means coarse quantizer, plus the metadata store and the on-disk
// persistence format.
package vector

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/luatgt/luatgt-go/internal/rag"
)

// IndexKind selects the index structure.
type IndexKind uint8

const (
	// KindFlat is exact brute-force L2 search.
	KindFlat IndexKind = iota
	// KindIVF partitions vectors into nlist clusters and searches only
	// the nprobe clusters nearest the query.
	KindIVF
)

// IndexSpec is the parsed index configuration, decided once at creation.
type IndexSpec struct {
	Kind  IndexKind
	Nlist int
}

var ivfSpecRe = regexp.MustCompile(`^IVF(\d+),Flat$`)

// ParseIndexType parses an index type string ("Flat" or "IVF<nlist>,Flat").
// Unknown variants are rejected here rather than at first use.
func ParseIndexType(s string) (IndexSpec, error) {
	if s == "Flat" {
		return IndexSpec{Kind: KindFlat}, nil
	}
	if m := ivfSpecRe.FindStringSubmatch(s); m != nil {
		nlist, err := strconv.Atoi(m[1])
		if err != nil || nlist <= 0 {
			return IndexSpec{}, fmt.Errorf("vector: invalid nlist in index type %q: %w", s, rag.ErrConfiguration)
		}
		return IndexSpec{Kind: KindIVF, Nlist: nlist}, nil
	}
	return IndexSpec{}, fmt.Errorf("vector: unsupported index type %q: %w", s, rag.ErrConfiguration)
}

// String renders the spec back to its configuration form.
func (s IndexSpec) String() string {
	if s.Kind == KindIVF {
		return fmt.Sprintf("IVF%d,Flat", s.Nlist)
	}
	return "Flat"
}

// noMatchID is the sentinel id returned for search slots with no result,
// padding the result arrays to exactly k entries.
const noMatchID = int64(-1)

// Index is the raw vector index. Ids are assigned sequentially from the
// current total on add and are never reused. Index is not safe for
// concurrent use; Store wraps it with a read-write lock.
type Index struct {
	spec    IndexSpec
	dim     int
	trained bool

	// vectors holds every added vector contiguously; a vector's id is
	// its position. Both kinds keep the raw vectors so IVF can be
	// re-clustered offline and the codec stays uniform.
	vectors []float32

	// IVF state: centroids is nlist*dim contiguous floats, lists maps
	// each cluster to the ids assigned to it.
	centroids []float32
	lists     [][]int64
}

// NewIndex allocates an empty index of the given dimension and spec.
func NewIndex(dim int, spec IndexSpec) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector: dimension must be positive, got %d: %w", dim, rag.ErrConfiguration)
	}
	idx := &Index{spec: spec, dim: dim}
	if spec.Kind == KindFlat {
		idx.trained = true
	} else {
		idx.lists = make([][]int64, spec.Nlist)
	}
	return idx, nil
}

// Dim returns the configured vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Spec returns the index configuration.
func (ix *Index) Spec() IndexSpec { return ix.spec }

// Trained reports whether the index is ready for Add. Flat indices are
// always trained.
func (ix *Index) Trained() bool { return ix.trained }

// Ntotal returns the number of stored vectors.
func (ix *Index) Ntotal() int { return len(ix.vectors) / ix.dim }

// Train clusters the training vectors into nlist centroids. It is a safe
// no-op for flat or already-trained indices.
func (ix *Index) Train(vectors [][]float32) error {
	if ix.trained {
		return nil
	}
	if len(vectors) < ix.spec.Nlist {
		return fmt.Errorf("vector: IVF training needs at least %d vectors, got %d: %w",
			ix.spec.Nlist, len(vectors), rag.ErrNotReady)
	}
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("vector: training vector %d has dimension %d, want %d: %w",
				i, len(v), ix.dim, rag.ErrValidation)
		}
	}
	ix.centroids = kmeans(vectors, ix.spec.Nlist, ix.dim)
	ix.trained = true
	return nil
}

// Add appends vectors, assigning sequential ids from the current total.
// An untrained IVF index is trained on the incoming batch first.
func (ix *Index) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	if !ix.trained {
		if err := ix.Train(vectors); err != nil {
			return err
		}
	}
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("vector: vector %d has dimension %d, want %d: %w",
				i, len(v), ix.dim, rag.ErrValidation)
		}
	}
	for _, v := range vectors {
		id := int64(ix.Ntotal())
		ix.vectors = append(ix.vectors, v...)
		if ix.spec.Kind == KindIVF {
			c := ix.nearestCentroid(v)
			ix.lists[c] = append(ix.lists[c], id)
		}
	}
	return nil
}

// Search returns the ids and squared-L2 distances of the k nearest stored
// vectors, sorted ascending by distance. Both slices have exactly k
// entries; slots beyond the number of matches carry the -1 sentinel id
// and a MaxFloat32 distance, the same finite pad FAISS uses, so callers
// can fold padded slots into distance statistics without overflow.
// nprobe bounds the number of clusters scanned
// for IVF indices and is ignored for flat ones.
func (ix *Index) Search(query []float32, k, nprobe int) ([]int64, []float32, error) {
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("vector: query has dimension %d, want %d: %w",
			len(query), ix.dim, rag.ErrValidation)
	}
	if ix.Ntotal() == 0 {
		return nil, nil, fmt.Errorf("vector: index is empty: %w", rag.ErrNotReady)
	}

	type hit struct {
		id   int64
		dist float32
	}
	var hits []hit
	if ix.spec.Kind == KindFlat {
		n := ix.Ntotal()
		hits = make([]hit, 0, n)
		for id := 0; id < n; id++ {
			hits = append(hits, hit{int64(id), ix.distTo(query, int64(id))})
		}
	} else {
		if nprobe <= 0 {
			nprobe = 1
		}
		for _, c := range ix.nearestCentroids(query, nprobe) {
			for _, id := range ix.lists[c] {
				hits = append(hits, hit{id, ix.distTo(query, id)})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].id < hits[j].id
	})

	ids := make([]int64, k)
	dists := make([]float32, k)
	for i := 0; i < k; i++ {
		if i < len(hits) {
			ids[i] = hits[i].id
			dists[i] = hits[i].dist
		} else {
			ids[i] = noMatchID
			dists[i] = math.MaxFloat32
		}
	}
	return ids, dists, nil
}

// distTo returns the squared L2 distance between the query and stored
// vector id.
func (ix *Index) distTo(query []float32, id int64) float32 {
	off := int(id) * ix.dim
	return l2Squared(query, ix.vectors[off:off+ix.dim])
}

// nearestCentroid returns the cluster index closest to v.
func (ix *Index) nearestCentroid(v []float32) int {
	best, bestDist := 0, float32(math.Inf(1))
	for c := 0; c < ix.spec.Nlist; c++ {
		off := c * ix.dim
		if d := l2Squared(v, ix.centroids[off:off+ix.dim]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// nearestCentroids returns the nprobe cluster indices closest to v,
// nearest first.
func (ix *Index) nearestCentroids(v []float32, nprobe int) []int {
	if nprobe > ix.spec.Nlist {
		nprobe = ix.spec.Nlist
	}
	type cd struct {
		c    int
		dist float32
	}
	all := make([]cd, ix.spec.Nlist)
	for c := 0; c < ix.spec.Nlist; c++ {
		off := c * ix.dim
		all[c] = cd{c, l2Squared(v, ix.centroids[off:off+ix.dim])}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	out := make([]int, nprobe)
	for i := 0; i < nprobe; i++ {
		out[i] = all[i].c
	}
	return out
}

func l2Squared(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
