// Package apu implements the GBA sound controller: four PSG channels
// (two tone, one wave-table, one noise), two DMA-audio FIFOs, and the
// mixer that feeds the host-facing audio ring buffer (spec §4.10).
package apu

const (
	masterClockHz = 1 << 24
	sampleRateHz  = 44100
	samplePeriod  = float64(masterClockHz) / float64(sampleRateHz)

	frameSeqPeriod = masterClockHz / 512
)

// FIFORequester is the narrow surface the APU needs from the DMA
// controller: requesting a refill once a FIFO drops to its threshold.
// internal/dma.Controller satisfies this structurally.
type FIFORequester interface {
	OnFIFORequest(channelIndex int)
}

// APU owns the four PSG generators, the two DMA-sound FIFOs, and the
// producer side of the audio ring buffer.
type APU struct {
	regs [regBankSize]byte

	tone1 squareChannel
	tone2 squareChannel
	wave  waveChannel
	noise noiseChannel

	waveRAM [2][32]byte // two banks of 32 nibbles, packed into the first 16 bytes of each

	fifoA, fifoB soundFIFO

	sampleAcc  float64
	frameSeqAcc int
	frameSeqStep int

	ring *RingBuffer
	dma  FIFORequester
}

// New constructs an APU wired to the audio ring buffer and the DMA
// controller's FIFO-refill hook.
func New(ring *RingBuffer, dma FIFORequester) *APU {
	a := &APU{ring: ring, dma: dma}
	a.wave.ram = &a.waveRAM
	return a
}

// Step advances the APU by one master-clock tick: steps the frame
// sequencer (length/envelope/sweep), the four channel generators, and
// produces a new ring-buffer sample whenever the sample-rate divider
// rolls over (spec §2 dataflow step 3, §4.10).
func (a *APU) Step() {
	if !a.masterEnabled() {
		return
	}

	a.frameSeqAcc++
	if a.frameSeqAcc >= frameSeqPeriod {
		a.frameSeqAcc -= frameSeqPeriod
		a.stepFrameSequencer()
	}

	s1 := a.tone1.step()
	s2 := a.tone2.step()
	s3 := a.wave.step()
	s4 := a.noise.step()

	a.setChannelOn(0, a.tone1.enabled)
	a.setChannelOn(1, a.tone2.enabled)
	a.setChannelOn(2, a.wave.enabled)
	a.setChannelOn(3, a.noise.enabled)

	a.sampleAcc += 1
	if a.sampleAcc >= samplePeriod {
		a.sampleAcc -= samplePeriod
		a.mixAndPush(s1, s2, s3, s4)
	}
}

func (a *APU) stepFrameSequencer() {
	switch a.frameSeqStep {
	case 0, 2, 4, 6:
		a.tone1.stepLength()
		a.tone2.stepLength()
		a.wave.stepLength()
		a.noise.stepLength()
	}
	if a.frameSeqStep == 2 || a.frameSeqStep == 6 {
		a.tone1.stepSweep()
	}
	if a.frameSeqStep == 7 {
		a.tone1.stepEnvelope()
		a.tone2.stepEnvelope()
		a.noise.stepEnvelope()
	}
	a.frameSeqStep = (a.frameSeqStep + 1) % 8
}

func (a *APU) mixAndPush(s1, s2, s3, s4 float32) {
	psgShift := [3]float32{0.25, 0.5, 1.0}[a.psgMasterShift()%3]

	var left, right float32
	for ch, sample := range [4]float32{s1, s2, s3, s4} {
		if a.psgEnableLeft(ch) {
			left += sample
		}
		if a.psgEnableRight(ch) {
			right += sample
		}
	}
	left *= psgShift * (float32(a.psgVolLeft()) / 7.0) / 4.0
	right *= psgShift * (float32(a.psgVolRight()) / 7.0) / 4.0

	fifoScale := func(ch int) float32 {
		if a.fifoVolumeFull(ch) {
			return 1.0
		}
		return 0.5
	}
	fifoSample := func(f *soundFIFO) float32 { return float32(f.current) / 128.0 }

	if a.fifoEnableLeft(0) {
		left += fifoSample(&a.fifoA) * fifoScale(0)
	}
	if a.fifoEnableRight(0) {
		right += fifoSample(&a.fifoA) * fifoScale(0)
	}
	if a.fifoEnableLeft(1) {
		left += fifoSample(&a.fifoB) * fifoScale(1)
	}
	if a.fifoEnableRight(1) {
		right += fifoSample(&a.fifoB) * fifoScale(1)
	}

	a.ring.Push(clampSample(left), clampSample(right))
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// OnTimerOverflow drains one byte from every FIFO configured to use the
// overflowing timer, requesting a DMA refill once the FIFO empties to
// its threshold (spec §4.10: "a timer overflow ... advances the
// corresponding FIFO by one octet").
func (a *APU) OnTimerOverflow(timerIndex int) {
	if a.fifoTimerSelect(0) == timerIndex {
		if a.fifoA.pop() {
			a.dma.OnFIFORequest(1)
		}
	}
	if a.fifoTimerSelect(1) == timerIndex {
		if a.fifoB.pop() {
			a.dma.OnFIFORequest(2)
		}
	}
}

func (a *APU) activeWaveBank() uint8 { return a.wave3Bank() }

func (a *APU) refreshWaveChannel() {
	a.wave.bankSelect = a.wave3Bank()
	a.wave.dimension = a.wave3Dimension()
	a.wave.dacEnabled = a.wave3DacEnabled()
	a.wave.volumeShift = a.wave3VolumeShift()
	a.wave.forceVolume = a.wave3ForceVolume()
}

// ReadIO/WriteIO implement the byte-wide register window at
// 0x04000060-0x040000A7 (spec §6).
func (a *APU) ReadIO(offset uint32) uint8 {
	if int(offset) >= len(a.regs) {
		return 0
	}
	if int(offset) >= regWAVE_RAM && int(offset) < regFIFO_A {
		bank := 1 - a.activeWaveBank() // read from the bank NOT currently playing
		return a.waveRAM[bank][offset-regWAVE_RAM]
	}
	return a.regs[offset]
}

func (a *APU) WriteIO(offset uint32, value uint8) {
	if int(offset) >= len(a.regs) {
		return
	}

	switch {
	case int(offset) >= regWAVE_RAM && int(offset) < regFIFO_A:
		bank := 1 - a.activeWaveBank()
		a.waveRAM[bank][offset-regWAVE_RAM] = value
		return
	case int(offset) >= regFIFO_A && int(offset) < regFIFO_A+4:
		a.regs[offset] = value
		if offset == regFIFO_A+3 {
			a.fifoA.pushWord(le32From(a.regs[:], regFIFO_A))
		}
		return
	case int(offset) >= regFIFO_B && int(offset) < regFIFO_B+4:
		a.regs[offset] = value
		if offset == regFIFO_B+3 {
			a.fifoB.pushWord(le32From(a.regs[:], regFIFO_B))
		}
		return
	}

	a.regs[offset] = value

	switch {
	case offset >= regSOUND1CNT_L && offset < regSOUND1CNT_L+2:
		a.tone1.sweepShift = a.sweepShift()
		a.tone1.sweepDown = a.sweepDown()
		a.tone1.sweepPace = a.sweepPace()
	case offset >= regSOUND1CNT_H && offset < regSOUND1CNT_H+2:
		length, duty, envPace, envUp, envInitial := toneCntH(a.sound1CntH())
		a.tone1.length = 64 - uint16(length)
		a.tone1.duty = duty
		a.tone1.envelopePace = envPace
		a.tone1.envelopeUp = envUp
		a.tone1.envelopeInitial = envInitial
		a.tone1.hasSweep = true
	case offset >= regSOUND1CNT_X && offset < regSOUND1CNT_X+2:
		freq, lenEn, trig := toneCntX(a.sound1CntX())
		a.tone1.freq = freq
		a.tone1.lengthEnable = lenEn
		if trig {
			a.tone1.trigger()
		}
	case offset >= regSOUND2CNT_L && offset < regSOUND2CNT_L+2:
		length, duty, envPace, envUp, envInitial := toneCntH(a.sound2CntL())
		a.tone2.length = 64 - uint16(length)
		a.tone2.duty = duty
		a.tone2.envelopePace = envPace
		a.tone2.envelopeUp = envUp
		a.tone2.envelopeInitial = envInitial
	case offset >= regSOUND2CNT_H && offset < regSOUND2CNT_H+2:
		freq, lenEn, trig := toneCntX(a.sound2CntH())
		a.tone2.freq = freq
		a.tone2.lengthEnable = lenEn
		if trig {
			a.tone2.trigger()
		}
	case offset >= regSOUND3CNT_L && offset < regSOUND3CNT_L+2:
		a.refreshWaveChannel()
	case offset >= regSOUND3CNT_H && offset < regSOUND3CNT_H+2:
		a.wave.length = 256 - uint16(a.wave3Length())
		a.refreshWaveChannel()
	case offset >= regSOUND3CNT_X && offset < regSOUND3CNT_X+2:
		freq, lenEn, trig := toneCntX(a.sound3CntX())
		a.wave.freq = freq
		a.wave.lengthEnable = lenEn
		if trig {
			a.refreshWaveChannel()
			a.wave.trigger()
		}
	case offset >= regSOUND4CNT_L && offset < regSOUND4CNT_L+2:
		length, _, envPace, envUp, envInitial := toneCntH(a.sound4CntL())
		a.noise.length = 64 - uint16(length)
		a.noise.envelopePace = envPace
		a.noise.envelopeUp = envUp
		a.noise.envelopeInitial = envInitial
	case offset >= regSOUND4CNT_H && offset < regSOUND4CNT_H+2:
		divRatio, width7, shift := noise4CntH(a.sound4CntH())
		a.noise.divRatio = divRatio
		a.noise.width7bit = width7
		a.noise.shift = shift
		a.noise.lengthEnable = a.sound4CntH()&(1<<14) != 0
		if a.sound4CntH()&(1<<15) != 0 {
			a.noise.trigger()
		}
	case offset == regSOUNDCNT_H+1:
		if value&(1<<3) != 0 {
			a.fifoA.reset()
		}
		if value&(1<<7) != 0 {
			a.fifoB.reset()
		}
	}
}

func le32From(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
