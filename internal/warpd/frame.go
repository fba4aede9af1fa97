package warpd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// FrameDelim ends every message. encoding/json escapes control characters,
// so it never appears inside an encoded message.
const FrameDelim byte = 0x00

// ReadFrame returns the next message without its delimiter. Empty frames are
// skipped. A stream that ends mid-frame yields io.ErrUnexpectedEOF.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}

	for {
		frame, err := r.ReadBytes(FrameDelim)
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(frame)) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		frame = bytes.TrimSpace(frame[:len(frame)-1])
		if len(frame) == 0 {
			continue
		}
		return frame, nil
	}
}

func WriteFrame(w io.Writer, obj any) error {
	if w == nil {
		return fmt.Errorf("writer is nil")
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if bytes.IndexByte(b, FrameDelim) >= 0 {
		return fmt.Errorf("encoded message contains the frame delimiter")
	}
	b = append(b, FrameDelim)
	_, err = w.Write(b)
	return err
}
