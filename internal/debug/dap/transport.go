package dap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
)

// MaxContentLength is the default limit on the size of one message (10MB).
const MaxContentLength = 10 * 1024 * 1024

// Transport carries framed messages between the adapter and a client.
type Transport interface {
	// Send writes one message to the client.
	Send(msg *Message) error

	// Receive reads the next message from the client.
	Receive() (*Message, error)

	// Close closes the transport.
	Close() error
}

// Message is a framed DAP message.
type Message struct {
	// ContentLength is the length of the content.
	ContentLength int

	// ContentType is the MIME type (optional).
	ContentType string

	// Content is the JSON content.
	Content []byte
}

// StreamTransport implements Transport over a reader and a writer, such as the
// process's stdin and stdout or a network connection.
type StreamTransport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	limit  int
	mu     sync.Mutex
}

// NewStreamTransport creates a transport reading from r and writing to w.
// Close closes c when it is not nil. A limit <= 0 uses MaxContentLength.
func NewStreamTransport(r io.Reader, w io.Writer, c io.Closer, limit int) *StreamTransport {
	if limit <= 0 {
		limit = MaxContentLength
	}
	return &StreamTransport{
		reader: bufio.NewReader(r),
		writer: w,
		closer: c,
		limit:  limit,
	}
}

// NewStdioTransport creates a transport on the process's stdin and stdout.
// Closing it closes stdin.
func NewStdioTransport(limit int) *StreamTransport {
	return NewStreamTransport(os.Stdin, os.Stdout, os.Stdin, limit)
}

// NewConnTransport creates a transport on a network connection.
func NewConnTransport(conn net.Conn, limit int) *StreamTransport {
	return NewStreamTransport(conn, conn, conn, limit)
}

// Send writes one message.
func (t *StreamTransport) Send(msg *Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return writeMessage(t.writer, msg)
}

// Receive reads one message.
func (t *StreamTransport) Receive() (*Message, error) {
	return readMessage(t.reader, t.limit)
}

// Close closes the underlying connection, if any.
func (t *StreamTransport) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// writeMessage writes a DAP message to the writer.
func writeMessage(w io.Writer, msg *Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(msg.Content))
	if msg.ContentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", msg.ContentType)
	}
	b.WriteString("\r\n")
	b.Write(msg.Content)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readMessage reads a DAP message from the reader. A clean end of input before
// any header is returned as io.EOF.
func readMessage(r *bufio.Reader, limit int) (*Message, error) {
	contentLength := -1
	var contentType string

	for first := true; ; first = false {
		line, err := r.ReadString('\n')
		if err != nil {
			if first && line == "" && errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: invalid header %q", ErrFraming, line)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-length":
			length, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid content-length: %v", ErrFraming, err)
			}
			if length < 0 || length > limit {
				return nil, fmt.Errorf("%w: content-length %d exceeds maximum allowed %d", ErrFraming, length, limit)
			}
			contentLength = length
		case "content-type":
			contentType = value
		}
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("%w: missing Content-Length header", ErrFraming)
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &Message{
		ContentLength: contentLength,
		ContentType:   contentType,
		Content:       content,
	}, nil
}
