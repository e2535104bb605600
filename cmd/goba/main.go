// Command goba is the headless CLI entry point: load a cartridge (and
// optional BIOS), drive the emulator for a fixed number of frames, and
// dump the first completed frame to a PNG (spec §6 "CLI / entry point
// (external collaborator)"; SPEC_FULL §C.3).
package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/kestrelcore/goba/internal/emulator"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "goba"
	app.Usage = "a cycle-driven GBA-class emulator core"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "run a cartridge headlessly and dump the first completed frame",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "rom", Usage: "path to the cartridge ROM"},
				cli.StringFlag{Name: "bios", Usage: "path to the BIOS image (optional)"},
				cli.IntFlag{Name: "frames", Usage: "stop after this many completed frames", Value: 1},
			},
			Action: runCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		return errors.New("goba run: --rom is required")
	}
	frameLimit := c.Int("frames")
	if frameLimit <= 0 {
		return errors.New("goba run: --frames must be positive")
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("goba run: reading ROM: %w", err)
	}

	emu := emulator.New()
	if err := emu.LoadCartridge(rom); err != nil {
		return fmt.Errorf("goba run: %w", err)
	}

	if biosPath := c.String("bios"); biosPath != "" {
		bios, err := os.ReadFile(biosPath)
		if err != nil {
			return fmt.Errorf("goba run: reading BIOS: %w", err)
		}
		if err := emu.LoadBIOS(bios); err != nil {
			return fmt.Errorf("goba run: %w", err)
		}
	}

	framesSeen := 0
	var firstFrame []byte
	for framesSeen < frameLimit {
		emu.Tick()
		if fb, ok := emu.TryTakeFramebuffer(); ok {
			framesSeen++
			if firstFrame == nil {
				firstFrame = fb
			}
		}
	}

	return saveFramePNG(firstFrame, "first_frame.png")
}

// saveFramePNG writes a 240x160 15-bit-BGR framebuffer (spec §6) out as
// an 8-bit-per-channel PNG, matching the teacher's saveFrame helper.
func saveFramePNG(fb []byte, filename string) error {
	const width, height = 240, 160

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		px := uint16(fb[i*2]) | uint16(fb[i*2+1])<<8
		r := uint8(px&0x1F) << 3
		g := uint8((px>>5)&0x1F) << 3
		b := uint8((px>>10)&0x1F) << 3
		img.Set(i%width, i/width, color.RGBA{R: r, G: g, B: b, A: 0xFF})
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("goba run: creating %s: %w", filename, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("goba run: encoding %s: %w", filename, err)
	}
	log.Printf("saved first frame to %s", filename)
	return nil
}
