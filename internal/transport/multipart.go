package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// Multipart is a multipart/form-data body.
type Multipart struct {
	Fields []Field
	Files  []File
}

// Field is a plain form value.
type Field struct {
	Name  string
	Value string
}

// File is a file part.
type File struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     io.Reader
}

// AddField appends a form value and returns m.
func (m *Multipart) AddField(name, value string) *Multipart {
	m.Fields = append(m.Fields, Field{Name: name, Value: value})
	return m
}

// AddFile appends a file part and returns m.
func (m *Multipart) AddFile(f File) *Multipart {
	m.Files = append(m.Files, f)
	return m
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.Name, err)
		}
	}

	for _, f := range m.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.FieldName, f.FileName))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part %s: %w", f.FileName, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("writing part %s: %w", f.FileName, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
