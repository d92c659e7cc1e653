// Package models contains domain types for the churn dashboard.
package models

import "fmt"

// Frame is a tabular dataset as read from disk or from an upload.
// Records hold the raw cell text; every record has len(Columns) cells.
type Frame struct {
	Columns []string   `json:"columns" msgpack:"columns"`
	Records [][]string `json:"records" msgpack:"records"`
}

// NewFrame creates an empty frame with the given header.
func NewFrame(columns []string) *Frame {
	return &Frame{
		Columns: append([]string(nil), columns...),
		Records: make([][]string, 0),
	}
}

// Len returns the number of records.
func (f *Frame) Len() int {
	return len(f.Records)
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Append adds a record. The record must match the header width.
func (f *Frame) Append(record []string) error {
	if len(record) != len(f.Columns) {
		return fmt.Errorf("record has %d cells, header has %d", len(record), len(f.Columns))
	}
	f.Records = append(f.Records, record)
	return nil
}

// DropColumn returns a copy of the frame without the named column.
// A frame without the column is returned unchanged.
func (f *Frame) DropColumn(name string) *Frame {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return f
	}

	columns := make([]string, 0, len(f.Columns)-1)
	columns = append(columns, f.Columns[:idx]...)
	columns = append(columns, f.Columns[idx+1:]...)

	out := &Frame{Columns: columns, Records: make([][]string, len(f.Records))}
	for i, rec := range f.Records {
		row := make([]string, 0, len(columns))
		row = append(row, rec[:idx]...)
		row = append(row, rec[idx+1:]...)
		out.Records[i] = row
	}
	return out
}

// Cell is a single named value of a record, used for transposed record views.
type Cell struct {
	Column string `json:"column" msgpack:"column"`
	Value  string `json:"value" msgpack:"value"`
}

// RecordCells returns record i as column/value pairs.
func (f *Frame) RecordCells(i int) []Cell {
	rec := f.Records[i]
	cells := make([]Cell, len(f.Columns))
	for j, c := range f.Columns {
		cells[j] = Cell{Column: c, Value: rec[j]}
	}
	return cells
}
