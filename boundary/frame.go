package boundary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants, mirroring ipc.MaxFrameSize/MaxPayloadSize/
// LengthPrefixSize exactly — the boundary speaks the same 16 MiB
// length-prefixed wire shape, just with this package's envelope as
// payload instead of an IPC job-runner frame.
const (
	MaxFrameSize     = 16 * 1024 * 1024
	LengthPrefixSize = 4
	MaxPayloadSize   = MaxFrameSize - LengthPrefixSize
)

// FrameError classifies a frame decoding failure.
type FrameError struct {
	Msg string
	Err error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// FrameDecoder reads length-prefixed msgpack Request envelopes from a
// stream.
type FrameDecoder struct {
	reader *bufio.Reader
}

// NewFrameDecoder wraps r for frame reads, reusing an existing
// *bufio.Reader if r already is one.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameDecoder{reader: br}
}

// ReadFrame reads one frame and returns its raw msgpack payload.
// Returns io.EOF when the stream ends cleanly between frames.
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{Msg: fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize)}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// ReadRequest reads and decodes one Request frame.
func (d *FrameDecoder) ReadRequest() (*Request, error) {
	payload, err := d.ReadFrame()
	if err != nil {
		return nil, err
	}
	var req Request
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		return nil, &FrameError{Msg: "failed to decode request", Err: err}
	}
	return &req, nil
}

// EncodeFrame prefixes payload with its 4-byte big-endian length.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, errors.New("boundary: payload exceeds max frame size")
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// EncodeResponse encodes resp as a length-prefixed msgpack frame.
func EncodeResponse(resp Response) ([]byte, error) {
	payload, err := msgpack.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("boundary: failed to encode response: %w", err)
	}
	return EncodeFrame(payload)
}

// WriteResponse encodes resp and writes the framed bytes to w.
func WriteResponse(w io.Writer, resp Response) error {
	framed, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(framed)
	return err
}
