package ppu

import (
	"testing"

	"nesview/internal/memory"
	"nesview/internal/snapshot"
)

// TestPPUCreation tests PPU initialization
func TestPPUCreation(t *testing.T) {
	ppu := New()

	if ppu.scanline != -1 {
		t.Errorf("Expected initial scanline -1, got %d", ppu.scanline)
	}
	if ppu.cycle != 0 {
		t.Errorf("Expected initial cycle 0, got %d", ppu.cycle)
	}
	if ppu.frameCount != 0 {
		t.Errorf("Expected initial frame count 0, got %d", ppu.frameCount)
	}
}

// TestPPUReset tests PPU reset functionality
func TestPPUReset(t *testing.T) {
	ppu := New()
	ppu.ppuCtrl = 0xFF
	ppu.ppuMask = 0xFF
	ppu.oamAddr = 0x80
	ppu.scanline = 100
	ppu.frameCount = 5
	ppu.t = 0x1000
	ppu.x = 7
	ppu.w = true
	ppu.oam[3] = 9

	ppu.Reset()

	if ppu.ppuCtrl != 0 || ppu.ppuMask != 0 || ppu.oamAddr != 0 {
		t.Errorf("Expected registers cleared, got %02X %02X %02X", ppu.ppuCtrl, ppu.ppuMask, ppu.oamAddr)
	}
	if ppu.ppuStatus != 0xA0 {
		t.Errorf("Expected PPUSTATUS 0xA0 after reset, got %02X", ppu.ppuStatus)
	}
	if ppu.t != 0 || ppu.x != 0 || ppu.w {
		t.Error("Expected scroll latch cleared")
	}
	if ppu.scanline != -1 || ppu.frameCount != 0 {
		t.Error("Expected timing cleared")
	}
	if ppu.oam[3] != 0 {
		t.Error("Expected OAM cleared")
	}
}

// TestPPUStatusRegisterRead tests VBL and latch clearing
func TestPPUStatusRegisterRead(t *testing.T) {
	ppu := New()
	ppu.ppuStatus = 0xE0
	ppu.w = true

	status := ppu.ReadRegister(0x2002)

	if status != 0xE0 {
		t.Errorf("Expected status E0, got %02X", status)
	}
	if ppu.ppuStatus&0x80 != 0 {
		t.Error("Expected VBL flag cleared after read")
	}
	if ppu.w {
		t.Error("Expected write latch cleared after read")
	}
}

// TestPPUScrollWrite tests the t/x latch layout
func TestPPUScrollWrite(t *testing.T) {
	tests := []struct {
		name     string
		ctrl     uint8
		x, y     uint8
		wantT    uint16
		wantFine uint8
	}{
		{"origin", 0x00, 0, 0, 0x0000, 0},
		{"x 83 nametable 1", 0x01, 83, 0, 0x0400 | 10, 3},
		{"y 21", 0x00, 0, 21, 2<<5 | 5<<12, 0},
		{"both nametables", 0x03, 255, 239, 0x0C00 | 31 | 29<<5 | 7<<12, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ppu := New()
			ppu.WriteRegister(0x2000, tt.ctrl)
			ppu.WriteRegister(0x2005, tt.x)
			ppu.WriteRegister(0x2005, tt.y)

			latch, fine := ppu.ScrollLatch()
			if latch != tt.wantT {
				t.Errorf("Expected t %04X, got %04X", tt.wantT, latch)
			}
			if fine != tt.wantFine {
				t.Errorf("Expected fine X %d, got %d", tt.wantFine, fine)
			}
		})
	}
}

// TestPPUDataReadWrite tests buffered VRAM access through the registers
func TestPPUDataReadWrite(t *testing.T) {
	ppu, _, _ := newTestPPU(memory.MirrorHorizontal)

	writeAddr(ppu, 0x2005)
	ppu.WriteRegister(0x2007, 0x11)
	ppu.WriteRegister(0x2007, 0x22)

	writeAddr(ppu, 0x2005)
	ppu.ReadRegister(0x2007) // prime the read buffer
	if got := ppu.ReadRegister(0x2007); got != 0x11 {
		t.Errorf("Expected 11, got %02X", got)
	}
	if got := ppu.ReadRegister(0x2007); got != 0x22 {
		t.Errorf("Expected 22, got %02X", got)
	}

	// Palette reads are not buffered
	writeAddr(ppu, 0x3F01)
	ppu.WriteRegister(0x2007, 0x2A)
	writeAddr(ppu, 0x3F01)
	if got := ppu.ReadRegister(0x2007); got != 0x2A {
		t.Errorf("Expected unbuffered palette read 2A, got %02X", got)
	}
}

// TestPPUDataIncrementMode tests +1 and +32 increments
func TestPPUDataIncrementMode(t *testing.T) {
	ppu, mem, _ := newTestPPU(memory.MirrorHorizontal)

	ppu.WriteRegister(0x2000, 0x04)
	writeAddr(ppu, 0x2000)
	for i := 0; i < 3; i++ {
		ppu.WriteRegister(0x2007, uint8(i+1))
	}

	nt := mem.Nametable(0)
	if nt.Tiles[0] != 1 || nt.Tiles[32] != 2 || nt.Tiles[64] != 3 {
		t.Errorf("Expected a column write, got %d %d %d", nt.Tiles[0], nt.Tiles[32], nt.Tiles[64])
	}
}

// TestOAMAddressAndData tests OAMADDR auto increment
func TestOAMAddressAndData(t *testing.T) {
	ppu := New()
	ppu.WriteRegister(0x2003, 0xFE)
	ppu.WriteRegister(0x2004, 0x10)
	ppu.WriteRegister(0x2004, 0x20)
	ppu.WriteRegister(0x2004, 0x30)

	oam := ppu.OAM()
	if oam[0xFE] != 0x10 || oam[0xFF] != 0x20 || oam[0x00] != 0x30 {
		t.Errorf("Expected wrapping OAM writes, got %02X %02X %02X", oam[0xFE], oam[0xFF], oam[0x00])
	}

	ppu.WriteRegister(0x2003, 0xFF)
	if got := ppu.ReadRegister(0x2004); got != 0x20 {
		t.Errorf("Expected OAMDATA read 20, got %02X", got)
	}

	ppu.WriteOAM(0x40, 0x99)
	if oam[0x40] != 0x99 {
		t.Error("Expected DMA write to reach OAM")
	}
	if ppu.oamAddr != 0x00 {
		t.Errorf("Expected DMA to leave OAMADDR at 00, got %02X", ppu.oamAddr)
	}
}

// TestPPUFrameCompletion tests StepFrame timing and the callback
func TestPPUFrameCompletion(t *testing.T) {
	ppu := New()
	completed := 0
	ppu.SetFrameCompleteCallback(func() { completed++ })

	ppu.StepFrame()

	if ppu.FrameCount() != 1 || completed != 1 {
		t.Errorf("Expected 1 frame, got count %d callbacks %d", ppu.FrameCount(), completed)
	}
	if ppu.scanline != -1 || ppu.cycle != 0 {
		t.Errorf("Expected frame to end at the pre-render line, got %d/%d", ppu.scanline, ppu.cycle)
	}

	ppu.StepFrame()
	if ppu.FrameCount() != 2 || completed != 2 {
		t.Errorf("Expected 2 frames, got count %d callbacks %d", ppu.FrameCount(), completed)
	}
}

// TestPPUVBlankTiming tests VBL flag and NMI
func TestPPUVBlankTiming(t *testing.T) {
	ppu := New()
	nmis := 0
	ppu.SetNMICallback(func() { nmis++ })
	ppu.WriteRegister(0x2000, 0x80)

	for !(ppu.scanline == 241 && ppu.cycle == 1) {
		ppu.Step()
	}
	if ppu.ppuStatus&0x80 == 0 {
		t.Error("Expected VBL at scanline 241 cycle 1")
	}
	if nmis != 1 {
		t.Errorf("Expected 1 NMI, got %d", nmis)
	}

	for !(ppu.scanline == -1 && ppu.cycle == 1) {
		ppu.Step()
	}
	if ppu.ppuStatus&0x80 != 0 {
		t.Error("Expected VBL cleared on the pre-render line")
	}
}

// TestNMIOnEnableEdge tests NMI raised by enabling it during VBlank
func TestNMIOnEnableEdge(t *testing.T) {
	ppu := New()
	nmis := 0
	ppu.SetNMICallback(func() { nmis++ })
	ppu.ppuStatus = 0x80

	ppu.WriteRegister(0x2000, 0x80)
	if nmis != 1 {
		t.Fatalf("Expected NMI when enabled during VBlank, got %d", nmis)
	}

	// Already enabled: rewriting PPUCTRL from the handler must not re-enter
	ppu.WriteRegister(0x2000, 0x88)
	if nmis != 1 {
		t.Errorf("Expected no NMI on rewrite, got %d", nmis)
	}

	ppu.WriteRegister(0x2000, 0x08)
	ppu.ppuStatus = 0
	ppu.WriteRegister(0x2000, 0x88)
	if nmis != 1 {
		t.Errorf("Expected no NMI outside VBlank, got %d", nmis)
	}
}

// TestWriteOnlyRegistersOpenBus tests reads of write-only registers
func TestWriteOnlyRegistersOpenBus(t *testing.T) {
	ppu := New()
	ppu.ppuStatus = 0x9F

	for _, addr := range []uint16{0x2000, 0x2001, 0x2003, 0x2005, 0x2006, 0x3FF8} {
		if got := ppu.ReadRegister(addr); got != 0x1F {
			t.Errorf("Read(%04X): expected 1F, got %02X", addr, got)
		}
	}
}

// TestSourceExposesChipState tests the snapshot source view
func TestSourceExposesChipState(t *testing.T) {
	ppu, mem, cart := newTestPPU(memory.MirrorVertical)
	cart.signature[2] = 5

	writeAddr(ppu, 0x3F00)
	ppu.WriteRegister(0x2007, 0x21)
	writeAddr(ppu, 0x2400)
	ppu.WriteRegister(0x2007, 0x42)
	ppu.WriteRegister(0x2000, 0x18)
	ppu.WriteRegister(0x2001, 0x1E)

	e := snapshot.NewExtractor(ppu)
	s := e.Extract()

	if s.Nametables[1] != mem.Nametable(1) || s.Nametables[1].Tiles[0] != 0x42 {
		t.Error("Expected nametable 1 to be exposed by reference")
	}
	if s.MirrorMap != (snapshot.MirrorMap{0, 1, 0, 1}) {
		t.Errorf("Unexpected mirror map %v", s.MirrorMap)
	}
	if s.Tiles[10] != &cart.tiles[10] {
		t.Error("Expected tiles from the pattern source")
	}
	if s.BankSignature[2] != 5 {
		t.Errorf("Expected signature from the pattern source, got %v", s.BankSignature)
	}
	if !s.Control.BackgroundTableHigh || !s.Control.SpriteTableHigh {
		t.Errorf("Unexpected control %+v", s.Control)
	}
	if s.SpritePalette[0] != s.BackgroundPalette[0] {
		t.Error("Expected sprite backdrop to mirror background backdrop")
	}
}

func TestSourceWithoutPatterns(t *testing.T) {
	ppu := New()
	var tiles [snapshot.TileCount]*snapshot.Tile
	tiles[0] = &snapshot.Tile{}

	ppu.PatternTiles(&tiles)

	if tiles[0] != nil {
		t.Error("Expected nil tiles without a pattern source")
	}
	if ppu.Nametable(0) != nil {
		t.Error("Expected nil nametable without memory")
	}
}
