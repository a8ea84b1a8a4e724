package testsupport

import (
	"bufio"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"syncdctl/internal/protocol"
)

// Response scripts the fake daemon's answer to one request.
type Response struct {
	// Reply is written verbatim to the command socket.
	Reply string
	// Notify is written to every interface connection after Reply.
	Notify string
	// NoReply leaves the request unanswered.
	NoReply bool
	// HangUp closes the command connection instead of replying.
	HangUp bool
}

// HandlerFunc answers one decoded request.
type HandlerFunc func(req protocol.Request) Response

// Reply builds a framed reply from a status token and payload lines.
func Reply(status string, lines ...string) string {
	return string(protocol.EncodeReply(protocol.Reply{Status: status, Lines: lines}))
}

// FakeDaemon serves both daemon sockets on real unix sockets inside a short
// temporary directory. Unscripted verbs are refused.
type FakeDaemon struct {
	t             testing.TB
	dir           string
	commandPath   string
	interfacePath string
	command       net.Listener
	iface         net.Listener

	mu          sync.Mutex
	handlers    map[string]HandlerFunc
	requests    []protocol.Request
	conns       map[net.Conn]struct{}
	ifaceConns  []net.Conn
	ifaceReady  chan struct{}
	ifaceClosed bool
	wg          sync.WaitGroup
	closed      bool
}

// NewFakeDaemon starts listening and registers cleanup on t.
func NewFakeDaemon(t testing.TB) *FakeDaemon {
	t.Helper()

	// t.TempDir paths can exceed the unix socket path limit.
	dir, err := os.MkdirTemp("", "syncd")
	if err != nil {
		t.Fatalf("create socket dir: %v", err)
	}
	d := &FakeDaemon{
		t:             t,
		dir:           dir,
		commandPath:   filepath.Join(dir, "command_socket"),
		interfacePath: filepath.Join(dir, "iface_socket"),
		handlers:      make(map[string]HandlerFunc),
		conns:         make(map[net.Conn]struct{}),
		ifaceReady:    make(chan struct{}),
	}
	d.command, err = net.Listen("unix", d.commandPath)
	if err != nil {
		_ = os.RemoveAll(dir)
		t.Fatalf("listen command socket: %v", err)
	}
	d.iface, err = net.Listen("unix", d.interfacePath)
	if err != nil {
		_ = d.command.Close()
		_ = os.RemoveAll(dir)
		t.Fatalf("listen iface socket: %v", err)
	}

	d.wg.Add(2)
	go d.acceptCommand()
	go d.acceptInterface()
	t.Cleanup(d.Close)
	return d
}

// Dir is the directory holding both sockets.
func (d *FakeDaemon) Dir() string { return d.dir }

// CommandPath is the command socket path.
func (d *FakeDaemon) CommandPath() string { return d.commandPath }

// InterfacePath is the interface socket path.
func (d *FakeDaemon) InterfacePath() string { return d.interfacePath }

// Handle scripts verb with fn, replacing any earlier handler.
func (d *FakeDaemon) Handle(verb string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[verb] = fn
}

// Respond scripts verb with a fixed response.
func (d *FakeDaemon) Respond(verb string, resp Response) {
	d.Handle(verb, func(protocol.Request) Response { return resp })
}

// Requests returns the requests received so far, in arrival order.
func (d *FakeDaemon) Requests() []protocol.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Request(nil), d.requests...)
}

// Verbs returns the verbs of Requests.
func (d *FakeDaemon) Verbs() []string {
	reqs := d.Requests()
	verbs := make([]string, 0, len(reqs))
	for _, req := range reqs {
		verbs = append(verbs, req.Verb)
	}
	return verbs
}

// Notify writes data to every interface connection, waiting briefly for the
// first client to connect.
func (d *FakeDaemon) Notify(data string) {
	select {
	case <-d.ifaceReady:
	case <-time.After(2 * time.Second):
		d.t.Errorf("fake daemon: no interface client connected")
		return
	}
	d.mu.Lock()
	conns := append([]net.Conn(nil), d.ifaceConns...)
	d.mu.Unlock()
	for _, conn := range conns {
		_, _ = conn.Write([]byte(data))
	}
}

// HangUp closes every open client connection while keeping the listeners.
func (d *FakeDaemon) HangUp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for conn := range d.conns {
		_ = conn.Close()
	}
	d.conns = make(map[net.Conn]struct{})
	d.ifaceConns = nil
}

// Close stops the listeners, drops connections, and removes the socket dir.
func (d *FakeDaemon) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	_ = d.command.Close()
	_ = d.iface.Close()
	d.HangUp()
	d.wg.Wait()
	_ = os.RemoveAll(d.dir)
}

func (d *FakeDaemon) track(conn net.Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		_ = conn.Close()
		return false
	}
	d.conns[conn] = struct{}{}
	return true
}

func (d *FakeDaemon) untrack(conn net.Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.conns, conn)
}

func (d *FakeDaemon) acceptCommand() {
	defer d.wg.Done()
	for {
		conn, err := d.command.Accept()
		if err != nil {
			return
		}
		if !d.track(conn) {
			continue
		}
		d.wg.Add(1)
		go d.serve(conn)
	}
}

func (d *FakeDaemon) acceptInterface() {
	defer d.wg.Done()
	for {
		conn, err := d.iface.Accept()
		if err != nil {
			return
		}
		if !d.track(conn) {
			continue
		}
		d.mu.Lock()
		d.ifaceConns = append(d.ifaceConns, conn)
		if !d.ifaceClosed {
			d.ifaceClosed = true
			close(d.ifaceReady)
		}
		d.mu.Unlock()
	}
}

func (d *FakeDaemon) serve(conn net.Conn) {
	defer d.wg.Done()
	defer d.untrack(conn)
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		raw, err := readRequest(reader)
		if err != nil {
			return
		}
		req, err := protocol.DecodeRequest(raw)
		if err != nil {
			_, _ = conn.Write([]byte(Reply(protocol.StatusNotOK, err.Error())))
			continue
		}

		d.mu.Lock()
		d.requests = append(d.requests, req)
		handler := d.handlers[req.Verb]
		d.mu.Unlock()

		resp := Response{Reply: "notok\tunknown verb " + req.Verb + "\ndone\n"}
		if handler != nil {
			resp = handler(req)
		}
		if resp.HangUp {
			return
		}
		if resp.NoReply {
			continue
		}
		if _, err := conn.Write([]byte(resp.Reply)); err != nil {
			return
		}
		if resp.Notify != "" {
			d.Notify(resp.Notify)
		}
	}
}

func readRequest(reader *bufio.Reader) ([]byte, error) {
	var buf strings.Builder
	for {
		line, err := reader.ReadString('\n')
		buf.WriteString(line)
		if err != nil {
			return nil, err
		}
		if line == protocol.Terminator+"\n" {
			return []byte(buf.String()), nil
		}
	}
}

var (
	errRequestWait    = errors.New("fake daemon: timed out waiting for requests")
	errConnectionWait = errors.New("fake daemon: timed out waiting for connections")
)

// WaitForRequests blocks until at least n requests arrived or the timeout passes.
func (d *FakeDaemon) WaitForRequests(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(d.Requests()) >= n {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return errRequestWait
}

// WaitForConnections blocks until at least n client connections are open.
func (d *FakeDaemon) WaitForConnections(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		open := len(d.conns)
		d.mu.Unlock()
		if open >= n {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return errConnectionWait
}
