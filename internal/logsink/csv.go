// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logsink

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// CSV writes the log file: a header row followed by one line per packet.
//
// Lines are written exactly as the parser produced them. The phone pads its
// values with spaces, and encoding/csv would quote those fields.
type CSV struct {
	path string
	f    *os.File
	w    *bufio.Writer
	rows int

	closeOnce sync.Once
	closeErr  error
}

// OpenCSV truncates or creates path and writes the header row.
func OpenCSV(path string, header []string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	s := &CSV{path: path, f: f, w: bufio.NewWriter(f)}
	if err := s.writeLine(strings.Join(header, ",")); err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Err: err}
	}
	return s, nil
}

// Append writes one row and flushes it to the file.
func (s *CSV) Append(line string) error {
	if err := s.writeLine(line); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.rows++
	return nil
}

func (s *CSV) writeLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

// Rows is the number of rows appended after the header.
func (s *CSV) Rows() int { return s.rows }

// Close flushes and closes the file. It is safe to call more than once.
func (s *CSV) Close() error {
	s.closeOnce.Do(func() {
		if err := s.w.Flush(); err != nil {
			s.closeErr = fmt.Errorf("flush %s: %w", s.path, err)
		}
		if err := s.f.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("close %s: %w", s.path, err)
		}
	})
	return s.closeErr
}
