// Package object reads and writes bleurgh object files: a ZIP archive with a
// JSON manifest, the assembled code, and the assembly it came from.
package object

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"bleurgh/pkg/asm"
)

const (
	Format  = "bleurgh-object"
	Version = 1
	Target  = "bleurgh-fvm"

	manifestEntry = "manifest.json"
	textEntry     = "text.bin"
	sourceEntry   = "source.s"
)

var ErrFormat = errors.New("not a bleurgh object file")

// Manifest is the JSON description stored alongside the code.
type Manifest struct {
	Format     string       `json:"format"`
	Version    int          `json:"version"`
	Target     string       `json:"target"`
	EntryPoint string       `json:"entry_point"`
	SourceFile string       `json:"source_file"`
	Created    time.Time    `json:"created"`
	TextSize   int          `json:"text_size"`
	Symbols    []asm.Symbol `json:"symbols"`
}

// Object is an in-memory object file.
type Object struct {
	Manifest Manifest
	Text     []byte
	Assembly string
}

// New packages an assembled program.
func New(prog *asm.Program, assembly, sourceFile, entry string) *Object {
	return &Object{
		Manifest: Manifest{
			Format:     Format,
			Version:    Version,
			Target:     Target,
			EntryPoint: entry,
			SourceFile: sourceFile,
			Created:    time.Now().UTC(),
			TextSize:   len(prog.Code),
			Symbols:    append([]asm.Symbol(nil), prog.Symbols...),
		},
		Text:     append([]byte(nil), prog.Code...),
		Assembly: assembly,
	}
}

// Program rebuilds the assembled program held by o. Labels other than
// function names are not stored and come back empty.
func (o *Object) Program() *asm.Program {
	labels := make(map[string]uint32)
	for _, s := range o.Manifest.Symbols {
		if s.Defined {
			labels[s.Name] = s.Address
		}
	}
	return &asm.Program{
		Code:      append([]byte(nil), o.Text...),
		Symbols:   append([]asm.Symbol(nil), o.Manifest.Symbols...),
		Labels:    labels,
		SourceMap: make(map[uint32]int),
	}
}

// ToBytes serialises o into a ZIP archive.
func (o *Object) ToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := o.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the archive to w.
func (o *Object) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	m := o.Manifest
	m.TextSize = len(o.Text)
	jsonData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeZipEntry(zw, manifestEntry, jsonData); err != nil {
		return err
	}
	if err := writeZipEntry(zw, textEntry, o.Text); err != nil {
		return err
	}
	if err := writeZipEntry(zw, sourceEntry, []byte(o.Assembly)); err != nil {
		return err
	}
	return zw.Close()
}

// FromBytes parses an archive produced by ToBytes.
func FromBytes(data []byte) (*Object, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read parses an object archive of the given size from r.
func Read(r io.ReaderAt, size int64) (*Object, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	fileMap := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, manifestEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	o := &Object{}
	if err := json.Unmarshal(jsonData, &o.Manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if o.Manifest.Format != Format {
		return nil, fmt.Errorf("%w: format %q", ErrFormat, o.Manifest.Format)
	}
	if o.Manifest.Version > Version {
		return nil, fmt.Errorf("object version %d is newer than supported version %d", o.Manifest.Version, Version)
	}

	if o.Text, err = readZipEntry(fileMap, textEntry); err != nil {
		return nil, err
	}
	if len(o.Text) != o.Manifest.TextSize {
		return nil, fmt.Errorf("text size %d does not match manifest size %d", len(o.Text), o.Manifest.TextSize)
	}
	if src, err := readZipEntry(fileMap, sourceEntry); err == nil {
		o.Assembly = string(src)
	}
	return o, nil
}

// WriteFile writes o to path.
func (o *Object) WriteFile(path string) error {
	data, err := o.ToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile loads an object file from path.
func ReadFile(path string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Read(f, st.Size())
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
