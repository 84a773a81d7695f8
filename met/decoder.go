/*
Copyright © 2023 the MetBuild authors.
This file is part of MetBuild.

MetBuild is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MetBuild is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MetBuild.  If not, see <http://www.gnu.org/licenses/>.
*/

package met

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrDecode indicates that the underlying file reader failed or a
// requested record is missing or corrupt.
var ErrDecode = errors.New("met: decode error")

// Handle identifies an open source file within a Decoder.
type Handle interface{}

// Decoder unpacks records from a source file. The coordinate records
// are named "latitudes" and "longitudes"; data records are named by
// the source's variable short names. Record names are compared after
// trimming non-alphanumeric characters.
type Decoder interface {
	Open(path string) (Handle, error)
	// Dims returns the grid shape: ni rows, nj columns, and the
	// total point count n = ni*nj.
	Dims(h Handle) (ni, nj, n int, err error)
	// ReadFloat64Array reads the named record as n float64 values in
	// row-major order.
	ReadFloat64Array(h Handle, name string) ([]float64, error)
	Close(h Handle) error
}

// DecoderContext carries the decoder and logger used to read source
// files. It is passed explicitly to every source-field constructor.
type DecoderContext struct {
	Decoder Decoder
	Log     *logrus.Logger
}

// NewDecoderContext returns a context using the given decoder and the
// standard logger.
func NewDecoderContext(d Decoder) *DecoderContext {
	return &DecoderContext{Decoder: d, Log: logrus.StandardLogger()}
}

// normalizeRecordName lowercases s and strips non-alphanumeric
// characters, so that e.g. "PRMSL " and "prmsl" compare equal despite
// encoder quirks.
func normalizeRecordName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// rawMagic begins every raw snapshot file.
const rawMagic = "MBRW"

/*
RawDecoder reads the raw snapshot container: a little-endian binary
file holding one decoded forecast snapshot.

	magic   [4]byte "MBRW"
	ni, nj  uint32
	records:
		nameLen uint16
		name    [nameLen]byte
		values  [ni*nj]float64

The container is produced by WriteRawSnapshot and by external format
converters; GRIB and NetCDF unpacking is out of scope here.
*/
type RawDecoder struct{}

type rawHandle struct {
	path   string
	ni, nj int
	// records maps normalized record names to raw values.
	records map[string][]float64
}

// Open reads the whole snapshot into memory.
func (RawDecoder) Open(path string) (Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDecode, path, err)
	}
	if string(magic[:]) != rawMagic {
		return nil, fmt.Errorf("%w: %s is not a raw snapshot file", ErrDecode, path)
	}
	var dims [2]uint32
	if err := binary.Read(f, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDecode, path, err)
	}
	h := &rawHandle{
		path:    path,
		ni:      int(dims[0]),
		nj:      int(dims[1]),
		records: make(map[string][]float64),
	}
	n := h.ni * h.nj
	if n <= 0 {
		return nil, fmt.Errorf("%w: %s has invalid dimensions %dx%d", ErrDecode, path, h.ni, h.nj)
	}
	for {
		var nameLen uint16
		err := binary.Read(f, binary.LittleEndian, &nameLen)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrDecode, path, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(f, name); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrDecode, path, err)
		}
		vals := make([]float64, n)
		if err := binary.Read(f, binary.LittleEndian, vals); err != nil {
			return nil, fmt.Errorf("%w: record %q in %s is truncated: %v", ErrDecode, name, path, err)
		}
		h.records[normalizeRecordName(string(name))] = vals
	}
	return h, nil
}

func (RawDecoder) Dims(h Handle) (int, int, int, error) {
	rh, ok := h.(*rawHandle)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: not a raw snapshot handle", ErrDecode)
	}
	return rh.ni, rh.nj, rh.ni * rh.nj, nil
}

func (RawDecoder) ReadFloat64Array(h Handle, name string) ([]float64, error) {
	rh, ok := h.(*rawHandle)
	if !ok {
		return nil, fmt.Errorf("%w: not a raw snapshot handle", ErrDecode)
	}
	vals, ok := rh.records[normalizeRecordName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: no record %q in %s", ErrDecode, name, rh.path)
	}
	return vals, nil
}

func (RawDecoder) Close(h Handle) error {
	rh, ok := h.(*rawHandle)
	if !ok {
		return fmt.Errorf("%w: not a raw snapshot handle", ErrDecode)
	}
	rh.records = nil
	return nil
}

// WriteRawSnapshot writes a raw snapshot container with the given
// records, each of which must hold ni*nj row-major values.
func WriteRawSnapshot(path string, ni, nj int, records map[string][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte(rawMagic)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, [2]uint32{uint32(ni), uint32(nj)}); err != nil {
		return err
	}
	for name, vals := range records {
		if len(vals) != ni*nj {
			return fmt.Errorf("met: record %q has %d values, want %d", name, len(vals), ni*nj)
		}
		if err := binary.Write(f, binary.LittleEndian, uint16(len(name))); err != nil {
			return err
		}
		if _, err := f.Write([]byte(name)); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, vals); err != nil {
			return err
		}
	}
	return nil
}
