// Package cartridge models the GBA Game Pak ROM. Save backing
// (flash/EEPROM/SRAM) is out of scope per spec §1 — the SRAM window
// reads as open bus and discards writes, same as any other unmapped
// region the bus touches.
package cartridge

// MaxROMSize is the largest ROM image a single Game Pak address-space
// mirror can address (spec §3: "Cartridge ROM ... ≤32 MiB").
const MaxROMSize = 32 * 1024 * 1024

// Cartridge holds the loaded ROM image. It is read-only from the CPU's
// perspective; ReadROM8 mirrors reads past the end of a short ROM image
// by wrapping modulo its length, matching real Game Pak bus behavior
// well enough for the programs this emulator targets.
type Cartridge struct {
	rom []byte
}

// New constructs a Cartridge around a zero-length ROM; LoadImage fills it.
func New() *Cartridge {
	return &Cartridge{}
}

// LoadImage installs a ROM image, truncated to MaxROMSize (spec §6,
// load_cartridge). Unlike BIOS/RAM regions this is not zero-padded to a
// fixed size — ROMs vary in length, and ReadROM8 handles the wraparound.
func (c *Cartridge) LoadImage(image []byte) {
	if len(image) > MaxROMSize {
		image = image[:MaxROMSize]
	}
	c.rom = append([]byte(nil), image...)
}

// ReadROM8 reads a byte at an offset relative to the start of whichever
// Game Pak address-space mirror the bus routed through.
func (c *Cartridge) ReadROM8(offset uint32) uint8 {
	if len(c.rom) == 0 {
		return 0
	}
	return c.rom[offset%uint32(len(c.rom))]
}

// Size reports the loaded ROM length in bytes.
func (c *Cartridge) Size() int { return len(c.rom) }
