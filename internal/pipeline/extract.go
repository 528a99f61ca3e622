package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"platval/internal"
	"platval/internal/util"
)

// ExtractEntriesFromInput turns an input file into raw line entries for the
// line parser. Text keeps physical line numbers; structured sources (tables,
// sheets) synthesize "qty name" lines so everything downstream sees one shape.
func ExtractEntriesFromInput(inputType, path string) ([]internal.RawLineEntry, error) {
	switch inputType {
	case "text":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return extractText(string(blob)), nil
	case "html":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return extractHTML(string(blob))
	case "xlsx":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return extractXLSX(blob)
	case "pdf":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return extractPDF(blob)
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

func extractText(text string) []internal.RawLineEntry {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := []internal.RawLineEntry{}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, internal.RawLineEntry{LineNo: i + 1, Source: internal.SourceText, Text: line})
	}
	return out
}

func extractHTML(html string) ([]internal.RawLineEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	out := []internal.RawLineEntry{}
	lineNo := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
		})

		nameIdx := findHeaderIndex(headers, []string{"item", "mod", "name", "arcane", "donation"})
		qtyIdx := findHeaderIndex(headers, []string{"qty", "quantity", "count", "number", "amount"})

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(cell.Text()))
			})
			name := pickCell(cells, nameIdx, 0)
			if name == "" {
				return
			}
			lineNo++
			out = append(out, internal.RawLineEntry{
				LineNo: lineNo,
				Source: internal.SourceHTMLTable,
				Text:   composeLine(pickCell(cells, qtyIdx, -1), name),
			})
		})
	})

	if len(out) > 0 {
		return out, nil
	}

	// No usable table; fall back to the document's visible text lines.
	fallback := extractText(doc.Text())
	for i := range fallback {
		fallback[i].Source = internal.SourceHTMLTable
	}
	return fallback, nil
}

func extractXLSX(content []byte) ([]internal.RawLineEntry, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.RawLineEntry{}
	lineNo := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		nameIdx, qtyIdx := -1, -1
		for i, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				cells = append(cells, util.NormalizeSpaces(c))
			}
			if len(cells) == 0 {
				continue
			}

			if i < 3 && nameIdx < 0 {
				n := findHeaderIndex(lowerAll(cells), []string{"item", "mod", "name", "arcane", "donation"})
				q := findHeaderIndex(lowerAll(cells), []string{"qty", "quantity", "count", "number", "amount"})
				if n >= 0 || q >= 0 {
					nameIdx, qtyIdx = n, q
					continue
				}
			}
			if nameIdx < 0 {
				nameIdx, qtyIdx = 0, 1
			}

			name := pickCell(cells, nameIdx, 0)
			if name == "" || !regexp.MustCompile(`[A-Za-z]`).MatchString(name) {
				continue
			}
			lineNo++
			out = append(out, internal.RawLineEntry{
				LineNo: lineNo,
				Source: internal.SourceXLSX,
				Text:   composeLine(pickCell(cells, qtyIdx, -1), name),
			})
		}
	}

	return out, nil
}

func extractPDF(content []byte) ([]internal.RawLineEntry, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.RawLineEntry{}
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, entry := range extractText(text) {
			lineNo++
			out = append(out, internal.RawLineEntry{LineNo: lineNo, Source: internal.SourcePDF, Text: entry.Text})
		}
	}
	return out, nil
}

func composeLine(qtyCell, name string) string {
	if qty := util.ParseCellQty(qtyCell); qty != nil {
		return fmt.Sprintf("%d %s", *qty, name)
	}
	return name
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func lowerAll(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		out = append(out, strings.ToLower(c))
	}
	return out
}
