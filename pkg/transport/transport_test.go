package transport

import (
	"net"
	"testing"
	"time"

	"github.com/shoresys/httpd/pkg/errors"
)

func TestUntilDoubleCRLFSatisfied(t *testing.T) {
	s := UntilDoubleCRLF{}
	if s.satisfied([]byte("GET / HTTP/1.1\r\n")) {
		t.Error("should not be satisfied without a blank line")
	}
	if !s.satisfied([]byte("GET / HTTP/1.1\r\n\r\n")) {
		t.Error("should be satisfied once CRLFCRLF appears")
	}
}

func TestUntilNBytesSatisfied(t *testing.T) {
	s := UntilNBytes{N: 5}
	if s.satisfied([]byte("abc")) {
		t.Error("should not be satisfied below N bytes")
	}
	if !s.satisfied([]byte("abcde")) {
		t.Error("should be satisfied at exactly N bytes")
	}
}

func TestStreamReadUntilSatisfied(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	stream, err := New(server, nil, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer stream.Close()

	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()

	buf, cause, err := stream.Read(UntilDoubleCRLF{}, time.Second)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if cause != Satisfied {
		t.Errorf("cause = %v, want Satisfied", cause)
	}
	if !(UntilDoubleCRLF{}).satisfied(buf) {
		t.Error("returned buffer should contain the blank line terminator")
	}
}

func TestStreamReadPeerClosed(t *testing.T) {
	client, server := net.Pipe()

	stream, err := New(server, nil, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer stream.Close()

	go client.Close()

	_, cause, err := stream.Read(UntilNBytes{N: 100}, time.Second)
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if cause != PeerClosed {
		t.Errorf("cause = %v, want PeerClosed", cause)
	}
}

func TestStreamWriteFull(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	stream, err := New(server, nil, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer stream.Close()

	payload := []byte("HTTP/1.1 200 OK\r\n\r\n")
	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, len(payload))
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()

	if err := stream.Write(payload); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got := <-done
	if string(got) != string(payload) {
		t.Errorf("client received %q, want %q", got, payload)
	}
}

func TestStreamReadTimedOut(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	stream, err := New(server, nil, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer stream.Close()

	start := time.Now()
	_, cause, err := stream.Read(UntilDoubleCRLF{}, 50*time.Millisecond)
	elapsed := time.Since(start)

	if cause != TimedOut {
		t.Fatalf("cause = %v, want TimedOut", cause)
	}
	if err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
	if !errors.IsTimeoutError(err) {
		t.Errorf("expected errors.IsTimeoutError to report true, got false for %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("returned before the idle deadline elapsed: %v", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("took too long to time out: %v", elapsed)
	}
}

func TestStreamRemoteAddr(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	stream, err := New(server, nil, false)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer stream.Close()

	if stream.RemoteAddr() == "" {
		t.Error("RemoteAddr should not be empty")
	}
}
