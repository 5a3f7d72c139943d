package workbook

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Reader converts one spreadsheet format into a Table.
type Reader interface {
	Read(r io.Reader) (*Table, error)
	Format() string
}

// Registry holds readers keyed by file extension.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader. Panics on duplicate format.
func (r *Registry) Register(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
}

// Get returns the reader for format, or nil.
func (r *Registry) Get(format string) Reader {
	return r.readers[strings.ToLower(strings.TrimPrefix(format, "."))]
}

// Formats returns the registered formats in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.readers))
	for k := range r.readers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with the xlsx, xlsm, xls and csv readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXReader{})
	r.Register(&XLSMReader{})
	r.Register(&XLSReader{})
	r.Register(&CSVReader{})
	return r
}

var defaultRegistry = DefaultRegistry()

// Supported reports whether name has an extension Read understands.
func Supported(name string) bool {
	return defaultRegistry.Get(filepath.Ext(name)) != nil
}

// Read parses the first sheet of the named upload. The extension of name
// selects the reader.
func Read(name string, data []byte) (*Table, error) {
	return defaultRegistry.Read(name, data)
}

// Read parses the first sheet of the named upload using the registry's readers.
func (r *Registry) Read(name string, data []byte) (*Table, error) {
	ext := filepath.Ext(name)
	rd := r.Get(ext)
	if rd == nil {
		return nil, &ParseError{File: name, Msg: fmt.Sprintf("unsupported file type %q (want %s)", ext, strings.Join(r.Formats(), ", "))}
	}

	t, err := rd.Read(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{File: name, Msg: "reading " + rd.Format(), Err: err}
	}
	if t.Len() < 2 {
		return nil, &ParseError{File: name, Msg: MsgTooShort}
	}
	return t, nil
}

var plainNumber = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
