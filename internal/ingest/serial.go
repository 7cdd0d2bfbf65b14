// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// SerialSource reads newline-delimited packets from a serial link, e.g. a
// Bluetooth SPP or USB bridge to the phone. Each line is one datagram.
type SerialSource struct {
	name  string
	port  io.ReadCloser
	lines chan serialLine
	errc  chan error
	done  chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens portName at baud 8N1.
func OpenSerial(portName string, baud uint) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, &SocketBindError{Addr: portName, Err: err}
	}
	return newSerialSource(portName, port), nil
}

func newSerialSource(name string, port io.ReadCloser) *SerialSource {
	s := &SerialSource{
		name:  name,
		port:  port,
		lines: make(chan serialLine, 64),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// serialLine is one line off the wire, or the reason it was dropped.
type serialLine struct {
	data []byte
	err  error
}

func (s *SerialSource) readLoop() {
	r := bufio.NewReaderSize(s.port, MaxDatagram)
	for {
		chunk, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			size := len(chunk)
			for errors.Is(err, bufio.ErrBufferFull) {
				chunk, err = r.ReadSlice('\n')
				size += len(chunk)
			}
			dropped := fmt.Errorf("serial %s: %w: %d byte line", s.name, ErrOversizedPacket, size)
			if !s.send(serialLine{err: dropped}) {
				return
			}
		} else if line := bytes.TrimSpace(chunk); len(line) > 0 {
			out := make([]byte, len(line))
			copy(out, line)
			if !s.send(serialLine{data: out}) {
				return
			}
		}

		if err != nil {
			select {
			case s.errc <- fmt.Errorf("serial %s: %w", s.name, err):
			case <-s.done:
			}
			return
		}
	}
}

func (s *SerialSource) send(l serialLine) bool {
	select {
	case s.lines <- l:
		return true
	case <-s.done:
		return false
	}
}

func (s *SerialSource) ReadPacket(deadline time.Time) ([]byte, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case line := <-s.lines:
		return line.data, line.err
	case err := <-s.errc:
		return nil, err
	case <-timer.C:
		return nil, timeoutError{}
	case <-s.done:
		return nil, net.ErrClosed
	}
}

func (s *SerialSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

func (s *SerialSource) String() string { return "serial " + s.name }

// timeoutError satisfies net.Error so sources without a kernel deadline
// report silence the same way a UDP socket does.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
