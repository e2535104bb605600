// Package memory implements the flat RAM/ROM regions on the GBA bus:
// BIOS, external work RAM, and internal work RAM. Each region is a plain
// byte slice with its own mirroring period; the bus is responsible for
// picking which region an address belongs to.
package memory

import "github.com/kestrelcore/goba/util/dbg"

// RAM is a fixed-size, power-of-two-free byte region addressed modulo its
// length. EWRAM and IWRAM are both represented this way; their declared
// mirror period in the GBA memory map always matches len(data) exactly,
// so a modulo is sufficient without a separate mirror-size field.
type RAM struct {
	data []byte
}

// NewRAM allocates a zeroed region of the given size in bytes.
func NewRAM(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

// Size returns the region's length in bytes.
func (r *RAM) Size() int { return len(r.data) }

func (r *RAM) Read8(addr uint32) uint8 {
	return r.data[addr%uint32(len(r.data))]
}

func (r *RAM) Write8(addr uint32, value uint8) {
	r.data[addr%uint32(len(r.data))] = value
}

// BIOS is a read-only 16 KiB region. Writes are discarded per spec §7's
// open-bus write behavior; a debug build logs the attempt.
type BIOS struct {
	data []byte
}

// NewBIOS creates an empty BIOS image; LoadImage fills it from a file.
func NewBIOS(size int) *BIOS {
	return &BIOS{data: make([]byte, size)}
}

// LoadImage copies bytes into the BIOS region, truncating or zero-padding
// to the region's fixed size (spec §6, load_bios).
func (b *BIOS) LoadImage(image []byte) {
	n := copy(b.data, image)
	for i := n; i < len(b.data); i++ {
		b.data[i] = 0
	}
}

func (b *BIOS) Read8(addr uint32) uint8 {
	return b.data[addr%uint32(len(b.data))]
}

func (b *BIOS) Write8(addr uint32, value uint8) {
	dbg.Printf("memory: discarded write %02X to read-only BIOS at %08X\n", value, addr)
}
