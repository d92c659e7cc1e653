package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/churn-dashboard/backend/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser reads comma-separated uploads with a header row.
type CSVParser struct {
	Comma rune
}

func NewCSVParser() *CSVParser {
	return &CSVParser{Comma: ','}
}

func (p *CSVParser) Name() string {
	return "csv"
}

func (p *CSVParser) CanParse(fileName string) bool {
	switch extension(fileName) {
	case ".csv", ".txt":
		return true
	}
	return false
}

func (p *CSVParser) Parse(r io.Reader) (*models.Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrNotTabular
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = p.Comma
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	frame := models.NewFrame(normalizeHeader(header))
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		rec, err = fitRecord(rec, len(frame.Columns), line)
		if err != nil {
			return nil, err
		}
		frame.Records = append(frame.Records, rec)
	}
	return frame, nil
}
