package procpool

import (
	"encoding/binary"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// protocolVersion changes whenever request or response change shape.
const protocolVersion uint16 = 1

// maxFrame bounds a single message.
const maxFrame = 256 << 20

type request struct {
	Version uint16 `msgpack:"v"`
	ID      string `msgpack:"id"`
	Func    string `msgpack:"fn"`
	Payload []byte `msgpack:"in"`
}

type response struct {
	Version uint16 `msgpack:"v"`
	ID      string `msgpack:"id"`
	Payload []byte `msgpack:"out,omitempty"`
	Error   string `msgpack:"err,omitempty"`
	Kind    string `msgpack:"kind,omitempty"`
	Panic   bool   `msgpack:"panic,omitempty"`
	Elapsed int64  `msgpack:"ns"`
}

// writeFrame writes v as a big-endian uint32 length followed by its
// msgpack encoding, in a single Write.
func writeFrame(w io.Writer, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	n, err := safecast.Conv[uint32](len(body))
	if err != nil || n > maxFrame {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(body))
	}
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, n)
	copy(buf[4:], body)
	_, err = w.Write(buf)
	return err
}

// readFrame reads one frame written by writeFrame into v. It returns
// io.EOF when r ends cleanly between frames.
func readFrame(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrame {
		return fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read frame body: %w", io.ErrUnexpectedEOF)
	}
	if err := msgpack.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}
