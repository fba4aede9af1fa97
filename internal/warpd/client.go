package warpd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"warpdir/internal/model"
)

const (
	dialTimeout  = 2 * time.Second
	probeTimeout = 300 * time.Millisecond
	drainTimeout = 5 * time.Second
)

// ErrServerClosed is returned when the server hangs up before answering.
var ErrServerClosed = errors.New("server closed the connection")

// ServerError carries an error reported by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return fmt.Sprintf("server error: %s", e.Message) }

// Client speaks to one server over one connection. Requests on a connection
// are applied in order.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

func Dial(network, addr string) (*Client, error) {
	conn, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}, nil
}

// Alive reports whether a server accepts connections at addr.
func Alive(network, addr string) bool {
	conn, err := net.DialTimeout(network, addr, probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

type halfCloser interface {
	CloseWrite() error
}

// Close half-closes the connection and waits for the server to finish every
// request sent on it, so fire-and-forget writes are applied when Close
// returns.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	defer c.conn.Close()

	if err := c.w.Flush(); err != nil {
		return err
	}
	hc, ok := c.conn.(halfCloser)
	if !ok {
		return nil
	}
	if err := hc.CloseWrite(); err != nil {
		return err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(drainTimeout))
	_, err := io.Copy(io.Discard, c.r)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *Client) send(req Request) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("client is nil")
	}
	if err := WriteFrame(c.w, req); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Client) call(req Request) (Response, error) {
	if err := c.send(req); err != nil {
		return Response{}, err
	}
	frame, err := ReadFrame(c.r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Response{}, ErrServerClosed
		}
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		return Response{}, &ProtocolError{Err: err}
	}
	if resp.Error != "" {
		return resp, &ServerError{Message: resp.Error}
	}
	return resp, nil
}

func (c *Client) Insert(path string) error {
	return c.send(Request{Type: OpInsert, Arg: path})
}

func (c *Client) Delete(path string) error {
	return c.send(Request{Type: OpDelete, Arg: path})
}

func (c *Client) Query(pattern string) ([]model.Entry, error) {
	resp, err := c.call(Request{Type: OpQuery, Arg: pattern})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) List() ([]model.Entry, error) {
	resp, err := c.call(Request{Type: OpList})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) Status() (Status, error) {
	resp, err := c.call(Request{Type: OpStatus})
	if err != nil {
		return Status{}, err
	}
	if resp.Status == nil {
		return Status{}, &ProtocolError{Err: fmt.Errorf("status response without status")}
	}
	return *resp.Status, nil
}

// Stop asks the server to save and shut down once this connection closes.
func (c *Client) Stop() error {
	_, err := c.call(Request{Type: OpStop})
	return err
}

// Restart asks the server to save and reload its datafile.
func (c *Client) Restart() error {
	_, err := c.call(Request{Type: OpRestart})
	return err
}
