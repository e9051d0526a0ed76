package block

// BlockSize is the size of a sector in bytes. Sectors are both the unit
// of caching and the unit of allocation.
const BlockSize = 512

// Sector is the number of a block on a Device. Sector numbers are
// dense, starting at zero.
type Sector uint32

// Block holds the contents of exactly one sector.
type Block [BlockSize]byte

// ZeroBlock is a block containing only zero bytes. It may be passed to
// WriteSector(), but must never be modified.
var ZeroBlock Block
