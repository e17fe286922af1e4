package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix     = "ppt/slides/slide"
)

var (
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	// atTag matches <a:t>text</a:t> with any attributes.
	atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	// overrideTag matches one Override element of [Content_Types].xml.
	overrideTag = regexp.MustCompile(`<Override[^>]*>`)
	partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)
)

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// joinTextNodes returns the trimmed inner text of every tag match joined by single spaces.
func joinTextNodes(xml []byte, tag *regexp.Regexp) string {
	var b strings.Builder
	for _, m := range tag.FindAllSubmatch(xml, -1) {
		part := strings.TrimSpace(string(m[1]))
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(part)
	}
	return b.String()
}

// docxMainPart resolves the main document part from [Content_Types].xml, falling
// back to word/document.xml. Attribute order inside Override is not fixed.
func docxMainPart(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			break
		}
		for _, o := range overrideTag.FindAll(data, -1) {
			if !bytes.Contains(o, []byte(`ContentType="`+docxMainContentType+`"`)) {
				continue
			}
			if m := partNameAttr.FindSubmatch(o); m != nil {
				return strings.TrimPrefix(string(m[1]), "/")
			}
		}
		break
	}
	return docxDocumentXMLPath
}

// extractDOCX collects every <w:t> text node of the main document part.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	part := docxMainPart(zr)
	for _, f := range zr.File {
		if f.Name != part {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("extract DOCX: %w", err)
		}
		return joinTextNodes(data, wtTag), nil
	}
	return "", fmt.Errorf("extract DOCX: %s not found", part)
}

// slideNumber parses N out of ppt/slides/slideN.xml; ok is false for other entries.
func slideNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, pptxSlidePrefix) || !strings.HasSuffix(name, ".xml") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pptxSlidePrefix), ".xml"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractPPTX collects every <a:t> text node, slides in numeric order.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		if n, ok := slideNumber(f.Name); ok {
			slides = append(slides, slide{n: n, f: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })
	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		data, err := readZipFile(s.f)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		if text := joinTextNodes(data, atTag); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
