package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV loads a CSV file into a frame. The first record is the header;
// every cell is kept as a string for the transforms to coerce. A file with
// only a header yields an empty frame, which is valid input downstream.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the resolver
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	return readCSV(f, path)
}

func readCSV(r io.Reader, name string) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read %s: file is empty", name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	fr, err := New(header...)
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", name, line, err)
		}
		values := make([]any, len(record))
		for i, cell := range record {
			values[i] = cell
		}
		if err := fr.AppendRow(values...); err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", name, line, err)
		}
	}
	return fr, nil
}
