package lazyslice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Array can be interpreted two ways:
// - as byte slice
// - as serialized array of up to MaxArrayLen byte slices
// Both forms are kept lazily: bytes are parsed on first access to elements,
// elements are serialized on first access to bytes
type Array struct {
	bytes          []byte
	parsed         [][]byte
	maxNumElements int
}

type lenPrefixType uint16

// prefix of the serialized array is 2 bytes, big-endian uint16.
// The highest 2 bits encode the width of the element length field (0, 1, 2 or 4 bytes),
// the rest is the number of elements
const (
	DataLenBytes0  = uint16(0x00) << 14
	DataLenBytes8  = uint16(0x01) << 14
	DataLenBytes16 = uint16(0x02) << 14
	DataLenBytes32 = uint16(0x03) << 14

	DataLenMask  = uint16(0x03) << 14
	ArrayLenMask = ^DataLenMask
	MaxArrayLen  = int(ArrayLenMask) // 16383

	emptyArrayPrefix = lenPrefixType(0)
)

func (dl lenPrefixType) DataLenBytes() int {
	switch uint16(dl) & DataLenMask {
	case DataLenBytes0:
		return 0
	case DataLenBytes8:
		return 1
	case DataLenBytes16:
		return 2
	default:
		return 4
	}
}

func (dl lenPrefixType) NumElements() int {
	return int(uint16(dl) & ArrayLenMask)
}

func (dl lenPrefixType) Bytes() []byte {
	var ret [2]byte
	binary.BigEndian.PutUint16(ret[:], uint16(dl))
	return ret[:]
}

// ArrayFromBytes wraps data without parsing it. Malformed data panics on first access to elements
func ArrayFromBytes(data []byte, maxNumElements ...int) *Array {
	mx := MaxArrayLen
	if len(maxNumElements) > 0 {
		mx = maxNumElements[0]
	}
	return &Array{
		bytes:          data,
		maxNumElements: mx,
	}
}

// ParseArray parses data eagerly and returns error if it is not a valid serialized array
func ParseArray(data []byte, maxNumElements ...int) (*Array, error) {
	ret := ArrayFromBytes(data, maxNumElements...)
	var err error
	if ret.parsed, err = parseArray(data, ret.maxNumElements); err != nil {
		return nil, err
	}
	return ret, nil
}

func EmptyArray(maxNumElements ...int) *Array {
	return ArrayFromBytes(emptyArrayPrefix.Bytes(), maxNumElements...)
}

// MakeArray makes array from elements. Each element can be nil, byte, []byte or *Array
func MakeArray(elems ...interface{}) *Array {
	ret := EmptyArray()
	for _, el := range elems {
		switch e := el.(type) {
		case nil:
			ret.Push(nil)
		case byte:
			ret.Push([]byte{e})
		case []byte:
			ret.Push(e)
		case *Array:
			ret.Push(e.Bytes())
		default:
			panic(fmt.Sprintf("MakeArray: unsupported element type %T", el))
		}
	}
	return ret
}

func (a *Array) IsEmpty() bool {
	return a.NumElements() == 0
}

func (a *Array) IsFull() bool {
	return a.NumElements() >= a.maxNumElements
}

func (a *Array) Push(data []byte) int {
	a.ensureParsed()
	if len(a.parsed) >= a.maxNumElements {
		panic("Array.Push: too many elements")
	}
	a.parsed = append(a.parsed, data)
	a.bytes = nil
	return len(a.parsed) - 1
}

func (a *Array) PutAtIdx(idx int, data []byte) {
	a.ensureParsed()
	a.parsed[idx] = data
	a.bytes = nil
}

func (a *Array) ForEach(fun func(i int, data []byte) bool) {
	for i := 0; i < a.NumElements(); i++ {
		if !fun(i, a.At(i)) {
			break
		}
	}
}

func (a *Array) At(idx int) []byte {
	a.ensureParsed()
	return a.parsed[idx]
}

func (a *Array) NumElements() int {
	a.ensureParsed()
	return len(a.parsed)
}

func (a *Array) Bytes() []byte {
	a.ensureBytes()
	return a.bytes
}

func (a *Array) ensureParsed() {
	if a.parsed != nil {
		return
	}
	var err error
	if a.parsed, err = parseArray(a.bytes, a.maxNumElements); err != nil {
		panic(err)
	}
}

func (a *Array) ensureBytes() {
	if a.bytes != nil {
		return
	}
	var buf bytes.Buffer
	if err := encodeArray(a.parsed, &buf); err != nil {
		panic(err)
	}
	a.bytes = buf.Bytes()
}

func calcLenPrefix(data [][]byte) (lenPrefixType, error) {
	if len(data) > MaxArrayLen {
		return 0, errors.New("too many elements")
	}
	var dl uint16
	for _, d := range data {
		t := DataLenBytes0
		switch {
		case len(d) > math.MaxUint32:
			return 0, errors.New("data can't be longer than MaxUint32")
		case len(d) > math.MaxUint16:
			t = DataLenBytes32
		case len(d) > math.MaxUint8:
			t = DataLenBytes16
		case len(d) > 0:
			t = DataLenBytes8
		}
		if dl < t {
			dl = t
		}
	}
	return lenPrefixType(dl | uint16(len(data))), nil
}

func encodeArray(data [][]byte, buf *bytes.Buffer) error {
	prefix, err := calcLenPrefix(data)
	if err != nil {
		return err
	}
	buf.Write(prefix.Bytes())
	numDataLenBytes := prefix.DataLenBytes()
	if numDataLenBytes == 0 {
		return nil // all elements empty
	}
	var sz [4]byte
	for _, d := range data {
		switch numDataLenBytes {
		case 1:
			sz[0] = byte(len(d))
		case 2:
			binary.BigEndian.PutUint16(sz[:2], uint16(len(d)))
		case 4:
			binary.BigEndian.PutUint32(sz[:4], uint32(len(d)))
		}
		buf.Write(sz[:numDataLenBytes])
		buf.Write(d)
	}
	return nil
}

// decodeElement cuts the next element from buf without copying
func decodeElement(buf []byte, numDataLenBytes int) ([]byte, []byte, error) {
	if len(buf) < numDataLenBytes {
		return nil, nil, errors.New("unexpected EOF while reading element length")
	}
	var sz int
	switch numDataLenBytes {
	case 0:
	case 1:
		sz = int(buf[0])
	case 2:
		sz = int(binary.BigEndian.Uint16(buf[:2]))
	case 4:
		sz = int(binary.BigEndian.Uint32(buf[:4]))
	default:
		return nil, nil, errors.New("wrong lenPrefixType value")
	}
	if len(buf) < numDataLenBytes+sz {
		return nil, nil, errors.New("unexpected EOF while reading element data")
	}
	return buf[numDataLenBytes+sz:], buf[numDataLenBytes : numDataLenBytes+sz], nil
}

func parseArray(data []byte, maxNumElements int) ([][]byte, error) {
	if len(data) < 2 {
		return nil, errors.New("unexpected EOF")
	}
	prefix := lenPrefixType(binary.BigEndian.Uint16(data[:2]))
	n := prefix.NumElements()
	if n > maxNumElements {
		return nil, fmt.Errorf("parseArray: number of elements in the prefix %d is larger than maxNumElements %d",
			n, maxNumElements)
	}
	numDataLenBytes := prefix.DataLenBytes()
	ret := make([][]byte, n)
	rest := data[2:]
	var err error
	for i := 0; i < n; i++ {
		if rest, ret[i], err = decodeElement(rest, numDataLenBytes); err != nil {
			return nil, err
		}
	}
	if len(rest) != 0 {
		return nil, errors.New("serialization error: not all bytes were consumed")
	}
	return ret, nil
}
