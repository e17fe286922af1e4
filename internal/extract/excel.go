package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel streams each workbook sheet and renders its non-blank rows as
// tab-separated cells, one row per line. Sheets are separated by a blank line.
func extractExcel(content []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var sheets []string
	for _, name := range wb.GetSheetList() {
		text, err := sheetText(wb, name)
		if err != nil {
			return "", err
		}
		if text != "" {
			sheets = append(sheets, text)
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}

func sheetText(wb *excelize.File, name string) (string, error) {
	rows, err := wb.Rows(name)
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", name, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return "", fmt.Errorf("read row in sheet %q: %w", name, err)
		}
		if line := rowText(cells); line != "" {
			lines = append(lines, line)
		}
	}
	if err := rows.Error(); err != nil {
		return "", fmt.Errorf("read sheet %q: %w", name, err)
	}
	return strings.Join(lines, "\n"), nil
}

// rowText trims every cell and drops trailing empty ones; a row with no text
// yields "".
func rowText(cells []string) string {
	last := -1
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
		if cells[i] != "" {
			last = i
		}
	}
	return strings.Join(cells[:last+1], "\t")
}
