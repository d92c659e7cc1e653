package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/churn-dashboard/backend/internal/models"
)

// XLSXParser reads the first worksheet of an Excel workbook.
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Name() string {
	return "xlsx"
}

func (p *XLSXParser) CanParse(fileName string) bool {
	switch extension(fileName) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func (p *XLSXParser) Parse(r io.Reader) (*models.Frame, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTabular, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	frame := models.NewFrame(normalizeHeader(rows[0]))
	for i, row := range rows[1:] {
		// excelize omits trailing empty cells
		rec, err := fitRecord(row, len(frame.Columns), i+2)
		if err != nil {
			return nil, err
		}
		frame.Records = append(frame.Records, rec)
	}
	return frame, nil
}
