package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

type zipEntry struct {
	name string
	body string
}

func zipOf(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func wordDocument(text string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` +
		text + `</w:t></w:r></w:p></w:body></w:document>`
}

func slide(text string) string {
	return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
		text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Photosynthesis\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Photosynthesis\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_extensionCaseInsensitive(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("notes"), ".MD")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "notes" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("x"), ".exe")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestExtractBytes_corruptPDF(t *testing.T) {
	e := NewExtractor()
	inputs := [][]byte{
		[]byte("this is not a pdf at all"),
		[]byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF"),
		{},
	}
	for i, in := range inputs {
		if _, err := e.ExtractBytes(in, ".pdf"); err == nil {
			t.Errorf("input %d: expected error for corrupt PDF", i)
		}
	}
}

func TestExtractBytes_docx(t *testing.T) {
	e := NewExtractor()
	content := zipOf(t, zipEntry{"word/document.xml", wordDocument("Cell division has two phases")})
	got, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Cell division has two phases" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := zipOf(t,
				zipEntry{contentTypesPath, `<?xml version="1.0"?><Types>` +
					`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
					tt.override + `</Types>`},
				zipEntry{"word/document2.xml", wordDocument("From the second part")},
			)
			got, err := NewExtractor().ExtractBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "From the second part" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxMissingBody(t *testing.T) {
	content := zipOf(t, zipEntry{"other.xml", "<x/>"})
	if _, err := NewExtractor().ExtractBytes(content, ".docx"); err == nil {
		t.Error("expected error when word/document.xml is missing")
	}
}

func TestExtractBytes_pptxSlideOrder(t *testing.T) {
	content := zipOf(t,
		zipEntry{"ppt/slides/slide10.xml", slide("tenth")},
		zipEntry{"ppt/slides/slide2.xml", slide("second")},
		zipEntry{"ppt/slides/slide1.xml", slide("first")},
		zipEntry{"ppt/slides/_rels/slide1.xml.rels", "<Relationships/>"},
	)
	got, err := NewExtractor().ExtractBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "first\nsecond\ntenth" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_notZip(t *testing.T) {
	for _, ext := range []string{".docx", ".pptx", ".xlsx"} {
		if _, err := NewExtractor().ExtractBytes([]byte("plain bytes"), ext); err == nil {
			t.Errorf("%s: expected error for non-zip content", ext)
		}
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Element")
	_ = f.SetCellValue("Sheet1", "B1", "Symbol")
	_ = f.SetCellValue("Sheet1", "A2", "Sodium")
	_ = f.SetCellValue("Sheet1", "B2", "Na")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Element\tSymbol\nSodium\tNa" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excelSkipsBlankRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Element")
	_ = f.SetCellValue("Sheet1", "A2", "   ")
	_ = f.SetCellValue("Sheet1", "A4", " Sodium ")
	_ = f.SetCellValue("Sheet1", "C4", "Na")
	_ = f.SetCellValue("Sheet1", "D4", " ")
	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	_ = f.SetCellValue("Notes", "B2", "alkali metal")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "Element\nSodium\t\tNa\n\n\talkali metal"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRowText(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  string
	}{
		{"empty row", nil, ""},
		{"blank cells", []string{" ", "\t", ""}, ""},
		{"trailing blanks dropped", []string{"a", "b", "", " "}, "a\tb"},
		{"inner blanks kept", []string{"a", "", "c"}, "a\t\tc"},
		{"leading blank kept", []string{"", "b"}, "\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rowText(tt.cells); got != tt.want {
				t.Errorf("rowText(%q) = %q, want %q", tt.cells, got, tt.want)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{".PDF", true},
		{".docx", true},
		{".md", true},
		{".odt", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.ext); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}
