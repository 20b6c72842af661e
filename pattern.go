package fracture

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/fracture/internal/fracgeom"
)

// Plane is one cutting plane of a pattern cell, expressed relative to the
// fracture center: a point p is inside the cell when
//
//	dot(Normal, p-center) + Offset <= 0
//
// so the normal points out of the cell.
type Plane struct {
	Normal mgl32.Vec3
	Offset float32
}

// geom converts to the internal plane representation shared with the
// compute kernels.
func (p Plane) geom() fracgeom.Plane {
	return fracgeom.Plane{N: p.Normal, W: p.Offset}
}

// Entry is one step of the fracture pattern: the cell it refines and the
// bounding planes applied to that cell's triangles. Entries are consumed
// strictly in order; their order encodes the spatial decomposition.
type Entry struct {
	Cell   int32
	Planes []Plane
}

// Pattern is a precomputed spatial decomposition: an ordered sequence of
// cutting-cell entries, a symmetric cell-proximity relation, and optional
// background (void) cells. The pipeline treats a validated Pattern as
// read-only immutable data.
//
// Build one with NewPattern, AddEntry, SetProximate and SetVoid, or decode
// a precomputed blob with UnmarshalBinary.
type Pattern struct {
	cells   int32
	entries []Entry
	prox    []bool // cells*cells, symmetric
	void    []bool // per cell
}

// NewPattern creates an empty pattern with the given number of cells.
func NewPattern(cellCount int) *Pattern {
	if cellCount < 0 {
		cellCount = 0
	}
	return &Pattern{
		cells: int32(cellCount),
		prox:  make([]bool, cellCount*cellCount),
		void:  make([]bool, cellCount),
	}
}

// CellCount returns the number of cells in the pattern.
func (p *Pattern) CellCount() int { return int(p.cells) }

// EntryCount returns the number of entries in the pattern.
func (p *Pattern) EntryCount() int { return len(p.entries) }

// AddEntry appends a cutting entry for the given cell. Planes are
// relative to the fracture center supplied at Fracture time.
func (p *Pattern) AddEntry(cell int32, planes ...Plane) {
	ps := make([]Plane, len(planes))
	copy(ps, planes)
	p.entries = append(p.entries, Entry{Cell: cell, Planes: ps})
}

// SetProximate marks two cells as proximate. The relation is symmetric:
// fragments of proximate cells are merged into one piece, canonicalized
// to the lowest cell id of the connected group.
func (p *Pattern) SetProximate(a, b int32) {
	if a < 0 || b < 0 || a >= p.cells || b >= p.cells || a == b {
		return
	}
	p.prox[a*p.cells+b] = true
	p.prox[b*p.cells+a] = true
}

// Proximate reports whether two cells are marked proximate.
func (p *Pattern) Proximate(a, b int32) bool {
	if a < 0 || b < 0 || a >= p.cells || b >= p.cells {
		return false
	}
	return p.prox[a*p.cells+b]
}

// SetVoid marks a cell as background: triangles landing in it (or in any
// cell merged with it) are tagged TagVoid and assembled into the
// background bucket instead of a regular fragment.
func (p *Pattern) SetVoid(cell int32) {
	if cell >= 0 && cell < p.cells {
		p.void[cell] = true
	}
}

// Void reports whether a cell is marked as background.
func (p *Pattern) Void(cell int32) bool {
	return cell >= 0 && cell < p.cells && p.void[cell]
}

// Validate checks the pattern's structural invariants. Plane geometry is
// not validated: degenerate planes are a pattern-builder bug and yield
// undefined output quality, not errors.
func (p *Pattern) Validate() error {
	if p.cells < 1 {
		return fmt.Errorf("%w: cell count %d", ErrInvalidPattern, p.cells)
	}
	if len(p.entries) == 0 {
		return fmt.Errorf("%w: no entries", ErrInvalidPattern)
	}
	for i, e := range p.entries {
		if e.Cell < 0 || e.Cell >= p.cells {
			return fmt.Errorf("%w: entry %d references cell %d of %d", ErrInvalidPattern, i, e.Cell, p.cells)
		}
		if len(e.Planes) == 0 {
			return fmt.Errorf("%w: entry %d has no planes", ErrInvalidPattern, i)
		}
	}
	return nil
}

// faceStride is the width of the per-entry face id range: entry i's plane
// j cuts face id i*faceStride+j. Face ids are a separate id space from
// cell tags; they only group cut edges for sealing.
func (p *Pattern) faceStride() int32 {
	stride := int32(1)
	for _, e := range p.entries {
		if n := int32(len(e.Planes)); n > stride {
			stride = n
		}
	}
	return stride
}

// cellOfFace returns the cell whose entry produced the given face id.
func (p *Pattern) cellOfFace(face, stride int32) int32 {
	return p.entries[face/stride].Cell
}

// mergeMap computes the tag rewrite table consumed by the merge kernel:
// index by cell id, read the canonical id. Proximity is closed as a
// symmetric equivalence relation and each connected group canonicalizes
// to its lowest cell id; a group containing any void cell maps to TagVoid
// as a whole.
func (p *Pattern) mergeMap() []int32 {
	parent := make([]int32, p.cells)
	for i := range parent {
		parent[i] = int32(i)
	}
	var find func(int32) int32
	find = func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for a := int32(0); a < p.cells; a++ {
		for b := a + 1; b < p.cells; b++ {
			if !p.prox[a*p.cells+b] {
				continue
			}
			ra, rb := find(a), find(b)
			if ra == rb {
				continue
			}
			// Keep the lowest id as the root so the canonical
			// representative is the group minimum.
			if ra < rb {
				parent[rb] = ra
			} else {
				parent[ra] = rb
			}
		}
	}
	groupVoid := make([]bool, p.cells)
	for i := int32(0); i < p.cells; i++ {
		if p.void[i] {
			groupVoid[find(i)] = true
		}
	}
	m := make([]int32, p.cells)
	for i := int32(0); i < p.cells; i++ {
		root := find(i)
		if groupVoid[root] {
			m[i] = int32(TagVoid)
		} else {
			m[i] = root
		}
	}
	return m
}

// identityMerge reports whether the merge map leaves every tag unchanged,
// in which case the merge dispatch is skipped.
func identityMerge(m []int32) bool {
	for i, v := range m {
		if v != int32(i) {
			return false
		}
	}
	return true
}

// =============================================================================
// Binary codec
//
// Patterns are precomputed by external builders and shipped as opaque
// little-endian blobs: a header, one entry record per cutting step, the
// per-cell void flags and the cells x cells proximity table.
// =============================================================================

const (
	patternMagic   = 0x54415046 // "FPAT"
	patternVersion = 1

	entryHeaderBytes = 8 // cell i32 + plane count u32
)

// MarshalBinary encodes the entry as cell id, plane count, then one
// 16-byte plane record (nx, ny, nz, offset) per plane.
func (e Entry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, entryHeaderBytes+len(e.Planes)*fracgeom.PlaneBytes)
	binary.LittleEndian.PutUint32(buf[0:], uint32(e.Cell))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(e.Planes)))
	for i, pl := range e.Planes {
		fracgeom.PutPlane(buf, entryHeaderBytes+i*fracgeom.PlaneBytes, pl.geom())
	}
	return buf, nil
}

// UnmarshalBinary decodes an entry record produced by MarshalBinary.
func (e *Entry) UnmarshalBinary(data []byte) error {
	if len(data) < entryHeaderBytes {
		return fmt.Errorf("%w: entry blob too short (%d bytes)", ErrInvalidPattern, len(data))
	}
	cell := int32(binary.LittleEndian.Uint32(data[0:]))
	count := binary.LittleEndian.Uint32(data[4:])
	need := entryHeaderBytes + int(count)*fracgeom.PlaneBytes
	if len(data) < need {
		return fmt.Errorf("%w: entry blob truncated (%d of %d bytes)", ErrInvalidPattern, len(data), need)
	}
	planes := make([]Plane, count)
	for i := range planes {
		off := entryHeaderBytes + i*fracgeom.PlaneBytes
		planes[i] = Plane{
			Normal: mgl32.Vec3{
				getF32(data, off),
				getF32(data, off+4),
				getF32(data, off+8),
			},
			Offset: getF32(data, off+12),
		}
	}
	e.Cell = cell
	e.Planes = planes
	return nil
}

func getF32(src []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
}

// MarshalBinary encodes the whole pattern as one blob.
func (p *Pattern) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], patternMagic)
	binary.LittleEndian.PutUint32(buf[4:], patternVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(p.cells))
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(p.entries)))
	for _, e := range p.entries {
		eb, err := e.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, eb...)
	}
	for _, v := range p.void {
		buf = append(buf, boolByte(v))
	}
	for _, v := range p.prox {
		buf = append(buf, boolByte(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes a pattern blob produced by MarshalBinary,
// replacing the receiver's contents.
func (p *Pattern) UnmarshalBinary(data []byte) error {
	if len(data) < 16 {
		return fmt.Errorf("%w: pattern blob too short (%d bytes)", ErrInvalidPattern, len(data))
	}
	if m := binary.LittleEndian.Uint32(data[0:]); m != patternMagic {
		return fmt.Errorf("%w: bad magic %#x", ErrInvalidPattern, m)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != patternVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidPattern, v)
	}
	cells := int32(binary.LittleEndian.Uint32(data[8:]))
	entryCount := int(binary.LittleEndian.Uint32(data[12:]))
	if cells < 0 {
		return fmt.Errorf("%w: cell count %d", ErrInvalidPattern, cells)
	}
	off := 16
	entries := make([]Entry, entryCount)
	for i := range entries {
		if err := entries[i].UnmarshalBinary(data[off:]); err != nil {
			return err
		}
		off += entryHeaderBytes + len(entries[i].Planes)*fracgeom.PlaneBytes
	}
	need := off + int(cells) + int(cells)*int(cells)
	if len(data) < need {
		return fmt.Errorf("%w: pattern blob truncated (%d of %d bytes)", ErrInvalidPattern, len(data), need)
	}
	void := make([]bool, cells)
	for i := range void {
		void[i] = data[off+i] != 0
	}
	off += int(cells)
	prox := make([]bool, int(cells)*int(cells))
	for i := range prox {
		prox[i] = data[off+i] != 0
	}
	p.cells = cells
	p.entries = entries
	p.void = void
	p.prox = prox
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
