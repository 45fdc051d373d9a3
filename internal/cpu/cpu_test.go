package cpu

import (
	"testing"

	"github.com/kesslerhart/gbcore/internal/bus"
)

func newCPUWithROM(code []byte) *CPU {
	rom := make([]byte, 0x8000)
	copy(rom, code)
	b, err := bus.New(rom)
	if err != nil {
		panic(err)
	}
	c := New(b)
	return c
}

func TestCPU_NopAndPC(t *testing.T) {
	c := newCPUWithROM([]byte{0x00}) // NOP
	if cycles := c.Step(); cycles != 4 {
		t.Fatalf("NOP cycles got %d want 4", cycles)
	}
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
}

func TestCPU_LD_A_d8_And_XOR_A(t *testing.T) {
	c := newCPUWithROM([]byte{0x3E, 0x12, 0xAF}) // LD A,0x12; XOR A
	c.Step()                                     // LD
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	c.Step() // XOR A
	if c.A != 0x00 {
		t.Fatalf("A after XOR got %02x want 00", c.A)
	}
	if (c.F & 0x80) == 0 { // Z flag
		t.Fatalf("Z flag not set after XOR A")
	}
}

func TestCPU_LD_a16_A_and_LD_A_a16(t *testing.T) {
	// Program: LD A,0x77; LD (0xC000),A; LD A,0x00; LD A,(0xC000)
	prog := []byte{0x3E, 0x77, 0xEA, 0x00, 0xC0, 0x3E, 0x00, 0xFA, 0x00, 0xC0}
	c := newCPUWithROM(prog)
	c.Step() // LD A,77
	c.Step() // LD (C000),A
	if a := c.bus.Read(0xC000); a != 0x77 {
		t.Fatalf("WRAM at C000 got %02x want 77", a)
	}
	c.Step() // LD A,00
	c.Step() // LD A,(C000)
	if c.A != 0x77 {
		t.Fatalf("A after LD A,(C000) got %02x want 77", c.A)
	}
}

func TestCPU_JP_and_JR(t *testing.T) {
	// JP to 0x0010 then JR -2 to loop
	prog := []byte{0xC3, 0x10, 0x00} // at 0x0000: JP 0x0010
	// Fill until 0x0010 with NOPs
	rom := make([]byte, 0x8000)
	copy(rom, prog)
	for i := 0x0003; i < 0x0010; i++ {
		rom[i] = 0x00
	}
	// at 0x0010: JR -2 (0xFE), which will hop back to 0x0010 itself (infinite)
	rom[0x0010] = 0x18
	rom[0x0011] = 0xFE
	b, err := bus.New(rom)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	c := New(b)
	cycles := c.Step() // JP
	if cycles != 16 || c.PC != 0x0010 {
		t.Fatalf("JP cycles=%d PC=%#04x want cycles=16 PC=0x0010", cycles, c.PC)
	}
	pcBefore := c.PC
	c.Step()              // JR -2
	if c.PC != pcBefore { // stays at 0x0010
		t.Fatalf("JR -2 PC got %#04x want %#04x", c.PC, pcBefore)
	}
}

func TestCPU_INC_B_Flags(t *testing.T) {
	c := newCPUWithROM([]byte{0x04, 0x04}) // INC B twice
	c.B = 0x0F
	c.F = 0x10 // carry set initially
	c.Step()
	if c.B != 0x10 {
		t.Fatalf("INC B result got %02x want 10", c.B)
	}
	if (c.F & 0x20) == 0 { // H set
		t.Fatalf("INC B should set H flag")
	}
	if (c.F & 0x10) == 0 { // C preserved
		t.Fatalf("INC B should preserve C flag")
	}
	c.B = 0xFF
	c.Step()
	if c.B != 0x00 || (c.F&0x80) == 0 { // Z set
		t.Fatalf("INC B to 0 should set Z flag, B=%02x, F=%02x", c.B, c.F)
	}
}

func TestCPU_LD_16bit_and_LDH(t *testing.T) {
	// Program:
	// LD HL,0xC000; LD (HL),0x5A; LD A,0x00; LD A,(0xFF00+0x00); LD (0xFF00+1),A
	prog := []byte{
		0x21, 0x00, 0xC0, // LD HL, C000
		0x36, 0x5A,       // LD (HL), 5A
		0x3E, 0x00,       // LD A, 00
		0xF0, 0x00,       // LD A, (FF00+0)
		0xE0, 0x01,       // LD (FF00+1), A
	}
	c := newCPUWithROM(prog)
	// Set JOYP (FF00) so its read is deterministic, and put 0xA7 in HRAM at FF80
	c.Bus().Write(0xFF00, 0x20) // select dpad so read is deterministic
	c.Bus().Write(0xFF00, 0x30) // select none to keep 0x0F
	c.Bus().Write(0xFF80, 0xA7) // HRAM base

	c.Step(); c.Step(); c.Step(); c.Step(); c.Step()
	if v := c.Bus().Read(0xC000); v != 0x5A {
		t.Fatalf("WRAM C000 got %02x want 5A", v)
	}
	if v := c.Bus().Read(0xFF01); v != c.A {
		t.Fatalf("LDH (FF00+1),A expected write to FF01 with A=%02x got %02x", c.A, v)
	}
}

func TestCPU_CALL_RET(t *testing.T) {
	// 0000: CALL 0005; NOP; NOP; RET
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xCD
	rom[0x0001] = 0x05
	rom[0x0002] = 0x00
	for i := 0x0003; i < 0x0005; i++ { rom[i] = 0x00 }
	rom[0x0005] = 0xC9 // RET
	b, err := bus.New(rom)
	if err != nil {
		t.Fatalf("bus.New: %v", err)
	}
	c := New(b)
	c.Step() // CALL
	if c.PC != 0x0005 {
		t.Fatalf("PC after CALL got %04x want 0005", c.PC)
	}
	retCycles := c.Step()
	if c.PC != 0x0003 || retCycles != 16 {
		t.Fatalf("RET did not return to 0003; PC=%04x cyc=%d", c.PC, retCycles)
	}
}

func TestCPU_STOP_ResetsDIV(t *testing.T) {
	c := newCPUWithROM([]byte{0x10, 0x00}) // STOP
	c.Bus().Tick(1024)                     // let DIV accumulate
	if c.Bus().Read(0xFF04) == 0 {
		t.Fatalf("DIV expected non-zero before STOP")
	}
	c.Step()
	if v := c.Bus().Read(0xFF04); v != 0 {
		t.Fatalf("DIV after STOP got %02x want 00", v)
	}
	if c.PC != 2 {
		t.Fatalf("PC after STOP got %#04x want 0x0002", c.PC)
	}
}

func TestCPU_IllegalOpcodeLocksUp(t *testing.T) {
	c := newCPUWithROM([]byte{0xD3, 0x00, 0x00})
	c.Step()
	if !c.locked {
		t.Fatalf("illegal opcode 0xD3 should lock the CPU")
	}
	pc := c.PC
	for i := 0; i < 5; i++ {
		c.Step()
	}
	if c.PC != pc {
		t.Fatalf("locked CPU should never advance PC, got %#04x want %#04x", c.PC, pc)
	}
}

func TestCPU_HaltBugReplaysNextByte(t *testing.T) {
	// IE=VBlank, IF=VBlank already pending, IME=0: HALT must not sleep and
	// must replay the following byte instead of consuming it normally.
	prog := []byte{0x76, 0x3C} // HALT; INC A
	c := newCPUWithROM(prog)
	c.Bus().Write(0xFFFF, 0x01)
	c.Bus().Write(0xFF0F, 0x01)
	c.Step() // HALT sets haltBug, does not sleep
	if c.halted {
		t.Fatalf("HALT with pending interrupt and IME=0 should not sleep")
	}
	if c.A != 0 {
		t.Fatalf("HALT itself must not execute INC A")
	}
	c.Step() // INC A executed once
	if c.A != 1 {
		t.Fatalf("first post-HALT step should execute INC A once, A=%02x", c.A)
	}
	c.Step() // INC A executed again: the replayed byte
	if c.A != 2 {
		t.Fatalf("HALT bug should replay INC A a second time, A=%02x", c.A)
	}
}

func TestCPU_EI_DelaysIMEByOneInstruction(t *testing.T) {
	// EI; INC A; INC A with a VBlank interrupt already pending the whole
	// time. IME must stay false through the first INC A (the instruction
	// immediately following EI) and only take effect once that step has
	// completed, so the interrupt can only be serviced starting with the
	// second INC A's Step call.
	prog := []byte{0xFB, 0x3C, 0x3C} // EI; INC A; INC A
	c := newCPUWithROM(prog)
	c.Bus().Write(0xFFFF, 0x01)
	c.Bus().Write(0xFF0F, 0x01)

	c.Step() // EI: IME must not be set yet
	if c.IME {
		t.Fatalf("IME must still be false immediately after EI's own Step")
	}

	c.Step() // first INC A: the instruction right after EI
	if c.IME {
		t.Fatalf("IME must still be false during the instruction following EI")
	}
	if c.A != 1 {
		t.Fatalf("instruction following EI must execute normally, A=%02x want 01", c.A)
	}
	if c.PC != 2 {
		t.Fatalf("interrupt must not have been serviced yet, PC=%#04x want 0x0002", c.PC)
	}

	c.Step() // IME now true: the pending VBlank interrupt is serviced instead of the second INC A
	if c.A != 1 {
		t.Fatalf("second INC A should have been preempted by the pending interrupt, A=%02x want 01", c.A)
	}
	if c.PC != 0x40 {
		t.Fatalf("PC should be at the VBlank vector after the delayed EI enabled IME, got %#04x", c.PC)
	}
}

func TestCPU_DAA_AfterAdd(t *testing.T) {
	c := newCPUWithROM([]byte{0x27}) // DAA
	c.A = 0x45
	c.B = 0x38
	// Simulate having just computed A=0x45+0x38=0x7D (no carries) then DAA.
	c.A = 0x7D
	c.F = 0 // N=0, H=0, C=0
	c.Step()
	if c.A != 0x83 {
		t.Fatalf("DAA after 45+38 got %02x want 83", c.A)
	}
}

