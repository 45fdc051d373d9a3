// Package cpu implements the SM83 instruction interpreter: register file,
// flags, interrupt servicing, and the main + CB opcode tables.
package cpu

import (
	"github.com/kesslerhart/gbcore/internal/bus"
)

// CPU is the SM83 core. It holds only its own register file; everything it
// reads or writes goes through the bus, which owns all shared peripheral
// state (see internal/bus).
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP uint16
	PC uint16

	IME     bool
	halted  bool
	locked  bool // permanently halted after an illegal opcode (§7)
	eiDelay int  // EI enables IME once this reaches 0 via countdown, not on EI's own Step
	haltBug bool // HALT issued with IME=0 and a pending interrupt: replay next byte

	bus *bus.Bus
}

// New creates a CPU wired to the given bus. SP starts at 0xFFFE and PC at
// zero; callers
// use ResetNoBoot or rely on a mapped boot ROM to establish real state.
func New(b *bus.Bus) *CPU {
	return &CPU{bus: b, SP: 0xFFFE, PC: 0x0000}
}

// SetPC allows tests or a boot stub to set the program counter directly.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// Bus exposes the underlying bus for tests and external tools.
func (c *CPU) Bus() *bus.Bus { return c.bus }

// ResetNoBoot sets registers to the documented DMG post-boot values used
// when no boot ROM is mapped.
func (c *CPU) ResetNoBoot() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME = false
	c.halted = false
	c.locked = false
	c.eiDelay = 0
	c.haltBug = false
}

// illegalOpcode reports whether op is one of the locked-up DMG opcodes.
func illegalOpcode(op byte) bool {
	switch op {
	case 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD:
		return true
	}
	return false
}

// serviceInterrupt checks IE&IF and, if non-zero, pushes PC, clears IME and
// the single highest-priority IF bit (VBlank highest, Joypad lowest), and
// jumps to the handler vector. Returns the T-cycle cost, or 0 if nothing
// was serviced.
func (c *CPU) serviceInterrupt() int {
	ie := c.bus.Read(0xFFFF)
	ifReg := c.bus.Read(0xFF0F) & 0x1F
	pending := ie & ifReg
	if pending == 0 {
		return 0
	}
	var bit uint
	for bit = 0; bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			break
		}
	}
	c.bus.Write(0xFF0F, ifReg&^(1<<bit))
	c.halted = false
	c.IME = false
	c.push16(c.PC)
	c.PC = 0x40 + uint16(bit)*8
	return 20
}

// Step executes one instruction (or services one pending interrupt) and
// returns the number of T-cycles it consumed. The bus is ticked by that
// amount after all of the instruction's own reads/writes have happened, so
// peripherals observe the instruction's memory accesses at its nominal
// timing (§5).
func (c *CPU) Step() (cycles int) {
	defer func() {
		if c.bus != nil && cycles > 0 {
			c.bus.Tick(cycles)
		}
	}()

	// EI's IME enable is delayed by one whole instruction: the Step that
	// executes EI sets eiDelay to 2, the following Step (which executes the
	// instruction right after EI) counts it down to 1, and only the Step
	// after *that* sees it reach 0 and flips IME. That makes IME true only
	// once the instruction immediately following EI has itself executed,
	// so e.g. EI; HALT always runs the HALT before any interrupt can fire.
	if c.eiDelay > 0 {
		c.eiDelay--
		if c.eiDelay == 0 {
			c.IME = true
		}
	}

	if c.locked {
		return 4
	}

	if c.halted {
		if c.IME {
			if cyc := c.serviceInterrupt(); cyc != 0 {
				return cyc
			}
		}
		ifReg := c.bus.Read(0xFF0F) & 0x1F
		ie := c.bus.Read(0xFFFF)
		if (ifReg & ie) != 0 {
			c.halted = false
		} else {
			return 4
		}
	}

	if c.IME {
		if cyc := c.serviceInterrupt(); cyc != 0 {
			return cyc
		}
	}

	op := c.fetchOpcode()

	if illegalOpcode(op) {
		c.locked = true
		return 4
	}

	if op == 0xCB {
		cb := c.fetch8()
		return c.execCB(cb)
	}

	return c.execMain(op)
}

// fetchOpcode fetches the next opcode byte, honoring the HALT bug: when set,
// PC is not advanced after this fetch, so the same byte is read (and its
// effect applied) a second time on the following Step.
func (c *CPU) fetchOpcode() byte {
	b := c.read8(c.PC)
	if c.haltBug {
		c.haltBug = false
		return b
	}
	c.PC++
	return b
}

// execMain decodes and executes one non-CB opcode.
func (c *CPU) execMain(op byte) int {
	switch op {
	case 0x00: // NOP
		return 4
	case 0x10: // STOP
		_ = c.fetch8() // STOP is a 2-byte instruction; the second byte is conventionally 0x00
		c.bus.Write(0xFF04, 0)
		return 4

	// LD r,d8
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E:
		c.setReg8((op>>3)&7, c.fetch8())
		return 8

	// LD r,r' / LD (HL),r / LD r,(HL) / HALT
	case 0x76:
		return c.execHalt()
	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
		0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F,
		0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57,
		0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
		0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67,
		0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
		0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x77,
		0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F:
		d := (op >> 3) & 7
		s := op & 7
		c.setReg8(d, c.getReg8(s))
		if d == 6 || s == 6 {
			return 8
		}
		return 4

	// 16-bit immediate loads
	case 0x01:
		c.setBC(c.fetch16())
		return 12
	case 0x11:
		c.setDE(c.fetch16())
		return 12
	case 0x21:
		c.setHL(c.fetch16())
		return 12
	case 0x31:
		c.SP = c.fetch16()
		return 12
	case 0x08: // LD (a16),SP
		c.write16(c.fetch16(), c.SP)
		return 20

	case 0x36: // LD (HL),d8
		c.write8(c.getHL(), c.fetch8())
		return 12

	case 0x02:
		c.write8(c.getBC(), c.A)
		return 8
	case 0x12:
		c.write8(c.getDE(), c.A)
		return 8
	case 0x0A:
		c.A = c.read8(c.getBC())
		return 8
	case 0x1A:
		c.A = c.read8(c.getDE())
		return 8

	case 0x22: // LD (HL+),A
		hl := c.getHL()
		c.write8(hl, c.A)
		c.setHL(hl + 1)
		return 8
	case 0x2A: // LD A,(HL+)
		hl := c.getHL()
		c.A = c.read8(hl)
		c.setHL(hl + 1)
		return 8
	case 0x32: // LD (HL-),A
		hl := c.getHL()
		c.write8(hl, c.A)
		c.setHL(hl - 1)
		return 8
	case 0x3A: // LD A,(HL-)
		hl := c.getHL()
		c.A = c.read8(hl)
		c.setHL(hl - 1)
		return 8

	case 0xE0: // LDH (FF00+n),A
		c.write8(0xFF00+uint16(c.fetch8()), c.A)
		return 12
	case 0xF0: // LDH A,(FF00+n)
		c.A = c.read8(0xFF00 + uint16(c.fetch8()))
		return 12
	case 0xE2: // LD (FF00+C),A
		c.write8(0xFF00+uint16(c.C), c.A)
		return 8
	case 0xF2: // LD A,(FF00+C)
		c.A = c.read8(0xFF00 + uint16(c.C))
		return 8

	case 0x07: // RLCA
		cv := (c.A >> 7) & 1
		c.A = (c.A << 1) | cv
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x0F: // RRCA
		cv := c.A & 1
		c.A = (c.A >> 1) | (cv << 7)
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x17: // RLA
		cv := (c.A >> 7) & 1
		c.A = (c.A << 1) | boolBit(c.F&flagC != 0)
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x1F: // RRA
		cv := c.A & 1
		c.A = (c.A >> 1) | (boolBit(c.F&flagC != 0) << 7)
		c.setZNHC(false, false, false, cv == 1)
		return 4
	case 0x27: // DAA
		c.daa()
		return 4
	case 0x2F: // CPL
		c.A = ^c.A
		c.F = (c.F & (flagZ | flagC)) | flagN | flagH
		return 4
	case 0x37: // SCF
		c.F = (c.F & flagZ) | flagC
		return 4
	case 0x3F: // CCF
		newC := (c.F & flagC) == 0
		c.F = c.F & flagZ
		if newC {
			c.F |= flagC
		}
		return 4

	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C: // INC r
		r := (op >> 3) & 7
		old := c.getReg8(r)
		v := old + 1
		c.setReg8(r, v)
		c.setZNHC(v == 0, false, (old&0x0F) == 0x0F, (c.F&flagC) != 0)
		return 4
	case 0x34: // INC (HL)
		addr := c.getHL()
		old := c.read8(addr)
		v := old + 1
		c.write8(addr, v)
		c.setZNHC(v == 0, false, (old&0x0F) == 0x0F, (c.F&flagC) != 0)
		return 12

	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D: // DEC r
		r := (op >> 3) & 7
		old := c.getReg8(r)
		v := old - 1
		c.setReg8(r, v)
		c.setZNHC(v == 0, true, (old&0x0F) == 0x00, (c.F&flagC) != 0)
		return 4
	case 0x35: // DEC (HL)
		addr := c.getHL()
		old := c.read8(addr)
		v := old - 1
		c.write8(addr, v)
		c.setZNHC(v == 0, true, (old&0x0F) == 0x00, (c.F&flagC) != 0)
		return 12

	case 0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87:
		r, z, n, h, cy := c.add8(c.A, c.getReg8(op&7))
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0x88, 0x89, 0x8A, 0x8B, 0x8C, 0x8D, 0x8E, 0x8F:
		r, z, n, h, cy := c.adc8(c.A, c.getReg8(op&7), c.F&flagC != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97:
		r, z, n, h, cy := c.sub8(c.A, c.getReg8(op&7))
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0x98, 0x99, 0x9A, 0x9B, 0x9C, 0x9D, 0x9E, 0x9F:
		r, z, n, h, cy := c.sbc8(c.A, c.getReg8(op&7), c.F&flagC != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7:
		r, z, n, h, cy := c.and8(c.A, c.getReg8(op&7))
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0xA8, 0xA9, 0xAA, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF:
		r, z, n, h, cy := c.xor8(c.A, c.getReg8(op&7))
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7:
		r, z, n, h, cy := c.or8(c.A, c.getReg8(op&7))
		c.A = r
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF:
		z, n, h, cy := c.cp8(c.A, c.getReg8(op&7))
		c.setZNHC(z, n, h, cy)
		if op&7 == 6 {
			return 8
		}
		return 4

	case 0xC6:
		r, z, n, h, cy := c.add8(c.A, c.fetch8())
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xCE:
		r, z, n, h, cy := c.adc8(c.A, c.fetch8(), c.F&flagC != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xD6:
		r, z, n, h, cy := c.sub8(c.A, c.fetch8())
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xDE:
		r, z, n, h, cy := c.sbc8(c.A, c.fetch8(), c.F&flagC != 0)
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xE6:
		r, z, n, h, cy := c.and8(c.A, c.fetch8())
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xEE:
		r, z, n, h, cy := c.xor8(c.A, c.fetch8())
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xF6:
		r, z, n, h, cy := c.or8(c.A, c.fetch8())
		c.A = r
		c.setZNHC(z, n, h, cy)
		return 8
	case 0xFE:
		z, n, h, cy := c.cp8(c.A, c.fetch8())
		c.setZNHC(z, n, h, cy)
		return 8

	case 0xEA:
		c.write8(c.fetch16(), c.A)
		return 16
	case 0xFA:
		c.A = c.read8(c.fetch16())
		return 16

	case 0xC3:
		c.PC = c.fetch16()
		return 16
	case 0xE9:
		c.PC = c.getHL()
		return 4
	case 0x18:
		off := int8(c.fetch8())
		c.PC = uint16(int32(c.PC) + int32(off))
		return 12

	case 0x20, 0x28, 0x30, 0x38: // JR cc,r8
		off := int8(c.fetch8())
		if c.condTaken(op) {
			c.PC = uint16(int32(c.PC) + int32(off))
			return 12
		}
		return 8

	case 0xCD:
		addr := c.fetch16()
		c.push16(c.PC)
		c.PC = addr
		return 24
	case 0xC9:
		c.PC = c.pop16()
		return 16
	case 0xD9:
		c.PC = c.pop16()
		c.IME = true
		return 16

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST t
		c.push16(c.PC)
		c.PC = uint16(op & 0x38)
		return 16

	case 0xC4, 0xCC, 0xD4, 0xDC: // CALL cc,a16
		addr := c.fetch16()
		if c.condTaken(op) {
			c.push16(c.PC)
			c.PC = addr
			return 24
		}
		return 12

	case 0xC0, 0xC8, 0xD0, 0xD8: // RET cc
		if c.condTaken(op) {
			c.PC = c.pop16()
			return 20
		}
		return 8

	case 0xC2, 0xCA, 0xD2, 0xDA: // JP cc,a16
		addr := c.fetch16()
		if c.condTaken(op) {
			c.PC = addr
			return 16
		}
		return 12

	case 0x03:
		c.setBC(c.getBC() + 1)
		return 8
	case 0x13:
		c.setDE(c.getDE() + 1)
		return 8
	case 0x23:
		c.setHL(c.getHL() + 1)
		return 8
	case 0x33:
		c.SP++
		return 8
	case 0x0B:
		c.setBC(c.getBC() - 1)
		return 8
	case 0x1B:
		c.setDE(c.getDE() - 1)
		return 8
	case 0x2B:
		c.setHL(c.getHL() - 1)
		return 8
	case 0x3B:
		c.SP--
		return 8

	case 0x09:
		c.addHL(c.getBC())
		return 8
	case 0x19:
		c.addHL(c.getDE())
		return 8
	case 0x29:
		c.addHL(c.getHL())
		return 8
	case 0x39:
		c.addHL(c.SP)
		return 8

	case 0xF8: // LD HL,SP+e8
		off := int8(c.fetch8())
		res, h, cy := c.addSPSigned(off)
		c.setHL(res)
		c.setZNHC(false, false, h, cy)
		return 12
	case 0xF9:
		c.SP = c.getHL()
		return 8
	case 0xE8: // ADD SP,e8
		off := int8(c.fetch8())
		res, h, cy := c.addSPSigned(off)
		c.SP = res
		c.setZNHC(false, false, h, cy)
		return 16

	case 0xF3: // DI
		c.IME = false
		c.eiDelay = 0
		return 4
	case 0xFB: // EI
		c.eiDelay = 2
		return 4

	case 0xF5:
		c.push16(c.getAF())
		return 16
	case 0xC5:
		c.push16(c.getBC())
		return 16
	case 0xD5:
		c.push16(c.getDE())
		return 16
	case 0xE5:
		c.push16(c.getHL())
		return 16
	case 0xF1:
		c.setAF(c.pop16())
		return 12
	case 0xC1:
		c.setBC(c.pop16())
		return 12
	case 0xD1:
		c.setDE(c.pop16())
		return 12
	case 0xE1:
		c.setHL(c.pop16())
		return 12

	default:
		// Unreachable: every remaining byte value is one of the 11 illegal
		// opcodes already filtered out in Step before execMain is called.
		return 4
	}
}

// condTaken evaluates the cc field (bits 4-3) shared by JR/JP/CALL/RET cc.
func (c *CPU) condTaken(op byte) bool {
	switch (op >> 3) & 3 {
	case 0:
		return c.F&flagZ == 0 // NZ
	case 1:
		return c.F&flagZ != 0 // Z
	case 2:
		return c.F&flagC == 0 // NC
	default:
		return c.F&flagC != 0 // C
	}
}

// execHalt implements HALT, including the HALT bug: if IME is clear and an
// interrupt is already pending, the following opcode byte is fetched twice
// (PC fails to advance once).
func (c *CPU) execHalt() int {
	if !c.IME {
		ifReg := c.bus.Read(0xFF0F) & 0x1F
		ie := c.bus.Read(0xFFFF)
		if (ifReg & ie) != 0 {
			c.haltBug = true
			return 4
		}
	}
	c.halted = true
	return 4
}
