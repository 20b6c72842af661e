package fracture

import (
	"strconv"

	"github.com/gogpu/fracture/internal/kernels"
)

// Tag identifies which fracture cell a triangle currently belongs to.
// Non-negative values are pattern cell ids. Two negative sentinels cross
// the host/device boundary:
//   - TagDropped marks an invalid record; host compaction removes it.
//   - TagVoid marks a triangle merged into the background cell; it
//     survives compaction and lands in its own output bucket.
type Tag int32

const (
	// TagDropped marks a triangle slot as discarded.
	TagDropped = Tag(kernels.TagDropped)

	// TagVoid marks a triangle as belonging to the background cell.
	TagVoid = Tag(kernels.TagVoid)
)

// Valid reports whether the tag survives compaction.
func (t Tag) Valid() bool { return t != TagDropped }

// Bucket maps the tag to a dense non-negative bucket index: TagVoid
// becomes bucket 0, cell 0 becomes bucket 2, and so on. TagDropped has
// no bucket; it never reaches assembly.
func (t Tag) Bucket() int { return int(t) + 2 }

// String returns a readable form for logs and test failures.
func (t Tag) String() string {
	switch t {
	case TagDropped:
		return "dropped"
	case TagVoid:
		return "void"
	default:
		return "cell " + strconv.Itoa(int(t))
	}
}
