// Package irctest provides an in-memory fake IRC server for exercising
// Client/Session against real wire traffic without a socket.
package irctest

import (
	"bufio"
	"io"
	"strings"
)

// Server is an io.ReadWriteCloser a Client can be pointed at directly.
// Lines written by the client are captured on Lines(); Send pushes lines
// from the fake server to the client.
type Server struct {
	sendReader *io.PipeReader
	sendWriter *io.PipeWriter

	recvReader *io.PipeReader
	recvWriter *io.PipeWriter

	lines chan string
}

// NewServer starts the background pipes. Call Close when done.
func NewServer() *Server {
	s := &Server{lines: make(chan string, 64)}
	s.sendReader, s.sendWriter = io.Pipe()
	s.recvReader, s.recvWriter = io.Pipe()
	go s.scanClientLines()
	return s
}

func (s *Server) scanClientLines() {
	scanner := bufio.NewScanner(s.recvReader)
	for scanner.Scan() {
		s.lines <- strings.TrimRight(scanner.Text(), "\r")
	}
	close(s.lines)
}

// Read satisfies io.Reader for the client side (server -> client).
func (s *Server) Read(p []byte) (int, error) { return s.sendReader.Read(p) }

// Write satisfies io.Writer for the client side (client -> server).
func (s *Server) Write(p []byte) (int, error) { return s.recvWriter.Write(p) }

func (s *Server) Close() error {
	_ = s.sendWriter.Close()
	_ = s.recvWriter.Close()
	return nil
}

// Send pushes one line from the fake server to the client, appending
// CRLF if missing.
func (s *Server) Send(line string) {
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	_, _ = s.sendWriter.Write([]byte(line))
}

// Lines is the channel of lines the client has sent to the server.
func (s *Server) Lines() <-chan string { return s.lines }
