package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/churn-dashboard/backend/internal/models"
)

// TableReader loads a reference table from disk.
type TableReader interface {
	// Name returns the unique name of the reader.
	Name() string
	// CanRead returns true if this reader handles the given path.
	CanRead(path string) bool
	// Read loads the whole table.
	Read(ctx context.Context, path string) (*models.Frame, error)
}

// TableRegistry picks a TableReader by file extension.
type TableRegistry struct {
	readers []TableReader
}

// NewTableRegistry returns a registry with the MessagePack and DuckDB readers.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{
		readers: []TableReader{
			NewMsgpackTableReader(),
			NewDuckDBTableReader(),
		},
	}
}

// Replace swaps the reader that has the same name as tr, or appends tr.
func (r *TableRegistry) Replace(tr TableReader) {
	for i, existing := range r.readers {
		if existing.Name() == tr.Name() {
			r.readers[i] = tr
			return
		}
	}
	r.readers = append(r.readers, tr)
}

// Read loads path with the first reader that accepts it.
func (r *TableRegistry) Read(ctx context.Context, path string) (*models.Frame, error) {
	for _, tr := range r.readers {
		if tr.CanRead(path) {
			frame, err := tr.Read(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("%s reader: %w", tr.Name(), err)
			}
			return frame, nil
		}
	}
	return nil, fmt.Errorf("no table reader for %s", filepath.Base(path))
}

// msgpackTable is the on-disk MessagePack form of a table.
type msgpackTable struct {
	Columns []string `msgpack:"columns"`
	Rows    [][]any  `msgpack:"rows"`
}

// MsgpackTableReader reads {columns, rows} MessagePack documents.
type MsgpackTableReader struct{}

func NewMsgpackTableReader() *MsgpackTableReader {
	return &MsgpackTableReader{}
}

func (r *MsgpackTableReader) Name() string {
	return "msgpack"
}

func (r *MsgpackTableReader) CanRead(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return true
	}
	return false
}

func (r *MsgpackTableReader) Read(_ context.Context, path string) (*models.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t msgpackTable
	if err := msgpack.NewDecoder(f).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	frame := models.NewFrame(t.Columns)
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = formatCell(v)
		}
		if err := frame.Append(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return frame, nil
}

// formatCell renders a decoded cell as text. Nil is the missing value.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
