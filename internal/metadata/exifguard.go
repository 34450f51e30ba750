package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errMalformedExif = errors.New("malformed exif")

var exifHeader = []byte("Exif\x00\x00")

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1

	tagExifIFD    = 0x8769
	tagGPSIFD     = 0x8825
	tagInteropIFD = 0xA005

	// Real files carry IFD0, IFD1 and at most three sub-IFDs.
	maxIFDs = 16
)

// tiffTypeSize is indexed by TIFF data type (1..12).
var tiffTypeSize = [...]uint64{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// exifBlock returns the TIFF payload of the first Exif APP1 segment of a
// JPEG. Other formats report no block.
func exifBlock(data []byte) ([]byte, bool) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, false
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return nil, false
		}
		marker := data[i+1]
		switch {
		case marker == 0xFF:
			i++
			continue
		case marker == markerSOS || marker == markerEOI:
			return nil, false
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			i += 2
			continue
		}
		n := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if n < 2 || i+2+n > len(data) {
			return nil, false
		}
		seg := data[i+4 : i+2+n]
		if marker == markerAPP1 && bytes.HasPrefix(seg, exifHeader) {
			return seg[len(exifHeader):], true
		}
		i += 2 + n
	}
	return nil, false
}

type ifdRef struct {
	offset uint32
	chain  bool
}

// checkTIFF walks every IFD reachable from the header and rejects blocks
// whose entries declare values that do not fit in the block, or whose IFD
// chain loops. goexif trusts both.
func checkTIFF(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("%w: short tiff header", errMalformedExif)
	}
	var order binary.ByteOrder
	switch string(b[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return fmt.Errorf("%w: bad tiff header", errMalformedExif)
	}

	visited := map[uint32]bool{}
	queue := []ifdRef{{offset: order.Uint32(b[4:8]), chain: true}}
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if ref.offset == 0 {
			continue
		}
		if visited[ref.offset] {
			if ref.chain {
				return fmt.Errorf("%w: IFD loop at %d", errMalformedExif, ref.offset)
			}
			continue
		}
		if len(visited) == maxIFDs {
			return fmt.Errorf("%w: too many IFDs", errMalformedExif)
		}
		visited[ref.offset] = true

		next, subs, err := checkIFD(b, order, ref.offset)
		if err != nil {
			return err
		}
		if ref.chain {
			queue = append(queue, ifdRef{offset: next, chain: true})
		}
		for _, s := range subs {
			queue = append(queue, ifdRef{offset: s})
		}
	}
	return nil
}

func checkIFD(b []byte, order binary.ByteOrder, offset uint32) (uint32, []uint32, error) {
	size := uint64(len(b))
	start := uint64(offset)
	if start+2 > size {
		return 0, nil, fmt.Errorf("%w: IFD offset %d out of range", errMalformedExif, offset)
	}
	end := start + 2 + uint64(order.Uint16(b[start:]))*12
	if end+4 > size {
		return 0, nil, fmt.Errorf("%w: IFD at %d overruns block", errMalformedExif, offset)
	}

	var subs []uint32
	for e := start + 2; e < end; e += 12 {
		id := order.Uint16(b[e:])
		typ := order.Uint16(b[e+2:])
		count := uint64(order.Uint32(b[e+4:]))
		if typ == 0 || int(typ) >= len(tiffTypeSize) {
			return 0, nil, fmt.Errorf("%w: tag %#x has type %d", errMalformedExif, id, typ)
		}
		valLen := tiffTypeSize[typ] * count
		if valLen > size {
			return 0, nil, fmt.Errorf("%w: tag %#x declares %d bytes", errMalformedExif, id, valLen)
		}
		if valLen > 4 && uint64(order.Uint32(b[e+8:]))+valLen > size {
			return 0, nil, fmt.Errorf("%w: tag %#x value out of range", errMalformedExif, id)
		}

		switch id {
		case tagExifIFD, tagGPSIFD, tagInteropIFD:
			if count == 0 {
				continue
			}
			switch typ {
			case 3:
				subs = append(subs, uint32(order.Uint16(b[e+8:])))
			case 4:
				subs = append(subs, order.Uint32(b[e+8:]))
			default:
				return 0, nil, fmt.Errorf("%w: IFD pointer %#x has type %d", errMalformedExif, id, typ)
			}
		}
	}
	return order.Uint32(b[end:]), subs, nil
}
