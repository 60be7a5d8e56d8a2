package mrc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// HeaderSize is the size of the fixed MRC header in bytes.
const HeaderSize = 1024

// maxDataBytes rejects headers whose dimensions would need an absurd allocation.
const maxDataBytes = 1 << 36

// Header word offsets.
const (
	offNX     = 0
	offMode   = 12
	offMX     = 28
	offCellA  = 40
	offMapC   = 64
	offDMin   = 76
	offDMax   = 80
	offDMean  = 84
	offNSymbt = 92
	offNVer   = 108
	offOrigin = 196
	offMap    = 208
	offStamp  = 212
	offRMS    = 216
)

// Sentinel errors.
var (
	// ErrInvalidHeader indicates the header is truncated or inconsistent.
	ErrInvalidHeader = errors.New("mrc: invalid header")

	// ErrUnsupportedMode indicates a data mode this package does not decode.
	ErrUnsupportedMode = errors.New("mrc: unsupported data mode")
)

// Mode is the MRC data mode word.
type Mode int32

// Data modes.
const (
	ModeInt8    Mode = 0
	ModeInt16   Mode = 1
	ModeFloat32 Mode = 2
	ModeUint16  Mode = 6
	ModeFloat16 Mode = 12
)

// bytesPerVoxel returns the storage size of one voxel, or 0 if unsupported.
func (m Mode) bytesPerVoxel() int {
	switch m {
	case ModeInt8:
		return 1
	case ModeInt16, ModeUint16, ModeFloat16:
		return 2
	case ModeFloat32:
		return 4
	default:
		return 0
	}
}

// Volume is a decoded 3D map.
type Volume struct {
	// NX, NY and NZ are the number of columns, rows and sections.
	NX, NY, NZ int

	// Mode is the on-disk data mode the volume was decoded from.
	Mode Mode

	// VoxelSize is the sampling in Å along x, y and z.
	VoxelSize [3]float32

	// Origin is the header origin in Å.
	Origin [3]float32

	// Data holds NX*NY*NZ values, x fastest.
	Data []float32
}

// Shape returns the dimensions in (z, y, x) order.
func (v *Volume) Shape() [3]int {
	return [3]int{v.NZ, v.NY, v.NX}
}

// At returns the voxel at column x, row y, section z.
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[(z*v.NY+y)*v.NX+x]
}

// Stats returns the minimum, maximum and mean of the data.
func (v *Volume) Stats() (lo, hi, mean float32) {
	if len(v.Data) == 0 {
		return 0, 0, 0
	}
	lo, hi = v.Data[0], v.Data[0]
	var sum float64
	for _, x := range v.Data {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
		sum += float64(x)
	}
	return lo, hi, float32(sum / float64(len(v.Data)))
}

// ReadFile decodes the MRC file at path.
func ReadFile(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vol, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, nil
}

// Read decodes an MRC stream, decompressing it first if needed.
func Read(r io.Reader) (*Volume, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	src, closeFn, err := decompress(br)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidHeader, err)
	}

	order := byteOrder(hdr[:])
	if !plausible(hdr[:], order) {
		order = otherOrder(order)
		if !plausible(hdr[:], order) {
			return nil, fmt.Errorf("%w: dimensions or mode out of range", ErrInvalidHeader)
		}
	}

	word := func(off int) int32 { return int32(order.Uint32(hdr[off:])) }
	float := func(off int) float32 { return math.Float32frombits(order.Uint32(hdr[off:])) }

	vol := &Volume{
		NX:   int(word(offNX)),
		NY:   int(word(offNX + 4)),
		NZ:   int(word(offNX + 8)),
		Mode: Mode(word(offMode)),
		Origin: [3]float32{
			float(offOrigin), float(offOrigin + 4), float(offOrigin + 8),
		},
	}
	for i := 0; i < 3; i++ {
		m := word(offMX + 4*i)
		if m > 0 {
			vol.VoxelSize[i] = float(offCellA+4*i) / float32(m)
		}
	}

	bpv := vol.Mode.bytesPerVoxel()
	if bpv == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMode, vol.Mode)
	}

	if nsymbt := word(offNSymbt); nsymbt > 0 {
		if _, err := io.CopyN(io.Discard, src, int64(nsymbt)); err != nil {
			return nil, fmt.Errorf("%w: skipping extended header: %v", ErrInvalidHeader, err)
		}
	} else if nsymbt < 0 {
		return nil, fmt.Errorf("%w: negative extended header size %d", ErrInvalidHeader, nsymbt)
	}

	n := int64(vol.NX) * int64(vol.NY) * int64(vol.NZ)
	if n*int64(bpv) > maxDataBytes {
		return nil, fmt.Errorf("%w: %dx%dx%d volume too large", ErrInvalidHeader, vol.NX, vol.NY, vol.NZ)
	}

	raw := make([]byte, n*int64(bpv))
	if _, err := io.ReadFull(src, raw); err != nil {
		return nil, fmt.Errorf("reading %d voxels: %w", n, err)
	}
	vol.Data = convert(raw, vol.Mode, order)
	return vol, nil
}

// byteOrder reads the machine stamp. Anything other than big-endian is
// treated as little-endian, which is what almost every writer produces.
func byteOrder(hdr []byte) binary.ByteOrder {
	if hdr[offStamp] == 0x11 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func otherOrder(order binary.ByteOrder) binary.ByteOrder {
	if order == binary.ByteOrder(binary.BigEndian) {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// plausible reports whether the dimensions and mode decode sensibly in order.
func plausible(hdr []byte, order binary.ByteOrder) bool {
	for i := 0; i < 3; i++ {
		n := int32(order.Uint32(hdr[offNX+4*i:]))
		if n <= 0 || n > 1<<20 {
			return false
		}
	}
	mode := int32(order.Uint32(hdr[offMode:]))
	return mode >= 0 && mode <= 16
}

// convert decodes raw voxel bytes into float32 values.
func convert(raw []byte, mode Mode, order binary.ByteOrder) []float32 {
	bpv := mode.bytesPerVoxel()
	out := make([]float32, len(raw)/bpv)
	for i := range out {
		b := raw[i*bpv:]
		switch mode {
		case ModeInt8:
			out[i] = float32(int8(b[0]))
		case ModeInt16:
			out[i] = float32(int16(order.Uint16(b)))
		case ModeUint16:
			out[i] = float32(order.Uint16(b))
		case ModeFloat16:
			out[i] = halfToFloat(order.Uint16(b))
		case ModeFloat32:
			out[i] = math.Float32frombits(order.Uint32(b))
		}
	}
	return out
}

// halfToFloat converts an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	switch {
	case exp == 0 && frac == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: renormalize.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}

// Write encodes vol as a little-endian mode 2 (float32) MRC2014 file.
func Write(w io.Writer, vol *Volume) error {
	n := vol.NX * vol.NY * vol.NZ
	if vol.NX <= 0 || vol.NY <= 0 || vol.NZ <= 0 || len(vol.Data) != n {
		return fmt.Errorf("%w: %dx%dx%d volume with %d values", ErrInvalidHeader, vol.NX, vol.NY, vol.NZ, len(vol.Data))
	}

	var hdr [HeaderSize]byte
	le := binary.LittleEndian
	putWord := func(off int, v int32) { le.PutUint32(hdr[off:], uint32(v)) }
	putFloat := func(off int, v float32) { le.PutUint32(hdr[off:], math.Float32bits(v)) }

	dims := [3]int{vol.NX, vol.NY, vol.NZ}
	for i, d := range dims {
		putWord(offNX+4*i, int32(d))
		putWord(offMX+4*i, int32(d))
		putFloat(offCellA+4*i, vol.VoxelSize[i]*float32(d))
		putFloat(offCellA+12+4*i, 90)
		putWord(offMapC+4*i, int32(i+1))
		putFloat(offOrigin+4*i, vol.Origin[i])
	}
	putWord(offMode, int32(ModeFloat32))

	lo, hi, mean := vol.Stats()
	putFloat(offDMin, lo)
	putFloat(offDMax, hi)
	putFloat(offDMean, mean)
	var ss float64
	for _, x := range vol.Data {
		d := float64(x - mean)
		ss += d * d
	}
	putFloat(offRMS, float32(math.Sqrt(ss/float64(n))))

	putWord(offNVer, 20140)
	copy(hdr[offMap:], "MAP ")
	hdr[offStamp], hdr[offStamp+1] = 0x44, 0x44

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}
	var buf [4]byte
	for _, x := range vol.Data {
		le.PutUint32(buf[:], math.Float32bits(x))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
