package svb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// fileHeaderSchema is the file-level metadata that follows the uint64 header
// size: capture name, start time, end time, channel count.
var fileHeaderSchema = []fieldKind{
	kindString,
	kindTime,
	kindTime,
	kindUint64,
}

// File is an open SVB capture: the decoded file-level header plus an
// ordered-by-first-appearance channel table.
//
// The channels borrow views into the file's data mapping, so the File must
// stay open for as long as any Channel is in use. Decoding is all-or-nothing:
// Open either returns a fully decoded file or an error.
type File struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time

	// Duplicates lists channel names that occurred more than once in the
	// header. The last occurrence wins, matching the reference reader; the
	// repeats are recorded here so callers can flag them.
	Duplicates []string

	channels map[string]*Channel
	order    []string

	f     *os.File
	data  []byte
	unmap func() error
}

// Open reads and decodes the named SVB file. The returned File holds the
// file handle and data mapping open until Close.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	sf, err := decodeFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("svb %s: %w", path, err)
	}
	sf.f = f

	return sf, nil
}

func decodeFile(f *os.File) (*File, error) {
	// Bytes 0-7: total header region size, including these 8 bytes.
	var sizeBuf [8]byte
	if _, err := io.ReadFull(f, sizeBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header size: %v", ErrTruncated, err)
	}
	headerSize := binary.LittleEndian.Uint64(sizeBuf[:])
	if headerSize < 8 {
		return nil, fmt.Errorf("%w: declared header size %d is smaller than its own length field",
			ErrHeaderSizeMismatch, headerSize)
	}

	// The header region is materialized into an isolated buffer so that
	// decoding it never disturbs the data mapping, and vice versa.
	header := make([]byte, headerSize-8)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("%w: header region declares %d bytes: %v",
			ErrTruncated, headerSize, err)
	}

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data, unmap, err := mapData(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("mapping data region: %w", err)
	}

	sf := &File{
		data:     data,
		unmap:    unmap,
		channels: make(map[string]*Channel),
	}
	if err := sf.decodeHeader(header); err != nil {
		unmap()
		return nil, err
	}

	return sf, nil
}

func (f *File) decodeHeader(header []byte) error {
	cur := newCursor(header)

	fields, err := cur.readRecord(fileHeaderSchema)
	if err != nil {
		return fmt.Errorf("file header: %w", err)
	}
	f.Name = fields[0].Str
	f.StartTime = fields[1].Time
	f.EndTime = fields[2].Time
	channelCount := fields[3].Uint

	for i := uint64(0); i < channelCount; i++ {
		ch, err := decodeChannel(cur, f.data, f.StartTime)
		if err != nil {
			return fmt.Errorf("channel %d of %d: %w", i+1, channelCount, err)
		}
		name := ch.Header.Name
		if _, seen := f.channels[name]; seen {
			// Last write wins; keep the first-appearance position.
			f.Duplicates = append(f.Duplicates, name)
		} else {
			f.order = append(f.order, name)
		}
		f.channels[name] = ch
	}

	// Every header byte must be accounted for once the declared channels are
	// decoded; leftovers mean the declared size and content disagree.
	if rem := cur.remaining(); rem != 0 {
		return fmt.Errorf("%w: %d unconsumed bytes after %d channel records",
			ErrHeaderSizeMismatch, rem, channelCount)
	}

	return nil
}

// Channel looks up a channel by name.
func (f *File) Channel(name string) (*Channel, error) {
	ch, ok := f.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// Channels returns the channel names in file order.
func (f *File) Channels() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Len returns the number of distinct channels.
func (f *File) Len() int {
	return len(f.channels)
}

// Close releases the data mapping and the underlying file. All Channel views
// obtained from this File are invalid afterwards.
func (f *File) Close() error {
	var errs []error
	if f.unmap != nil {
		errs = append(errs, f.unmap())
		f.unmap = nil
	}
	if f.f != nil {
		errs = append(errs, f.f.Close())
		f.f = nil
	}
	return errors.Join(errs...)
}

// readContiguous loads the whole file into memory. Fallback for platforms or
// filesystems where mapping is unavailable.
func readContiguous(f *os.File, size int64) ([]byte, func() error, error) {
	data := make([]byte, size)
	n, err := f.ReadAt(data, 0)
	if err != nil && !(err == io.EOF && int64(n) == size) {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
