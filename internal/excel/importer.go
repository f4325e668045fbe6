package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/itabot/pkg/models"
)

// Expected column order: English, Italian, Chapter, Group, Notes.
// Chapter, Group and Notes are optional.
const (
	colEnglish = 0
	colItalian = 1
	colChapter = 2
	colGroup   = 3
	colNotes   = 4
)

// WordStore is the subset of the word repository the importer needs.
type WordStore interface {
	FindByEnglish(ctx context.Context, english string) (*models.Word, error)
	Create(ctx context.Context, word *models.Word) error
	Update(ctx context.Context, word *models.Word) error
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Added          int
	Updated        int
	Skipped        int
	Errors         []string
}

// Importer loads word lists from Excel workbooks and CSV files
type Importer struct {
	words WordStore
}

// NewImporter creates an importer over the given word store
func NewImporter(words WordStore) *Importer {
	return &Importer{words: words}
}

// Import parses an uploaded file by extension and stores its words.
// Existing words (matched by english, case-insensitive) are updated,
// new ones created.
func (im *Importer) Import(ctx context.Context, data []byte, filename string) (*ImportResult, error) {
	rows, err := parseRows(data, filename)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		// Skip a header row if present.
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if isEmptyRow(row) {
			continue
		}
		result.TotalProcessed++
		if err := im.processRow(ctx, row, result); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

// parseRows extracts raw rows from the file by extension
func parseRows(data []byte, filename string) ([][]string, error) {
	if strings.ToLower(filepath.Ext(filename)) == ".csv" {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV file: %v", err)
		}
		return rows, nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

// processRow stores one parsed word row
func (im *Importer) processRow(ctx context.Context, row []string, result *ImportResult) error {
	english := cell(row, colEnglish)
	italian := cell(row, colItalian)
	if english == "" {
		return fmt.Errorf("english word is empty")
	}
	if italian == "" {
		return fmt.Errorf("italian translation is empty")
	}

	existing, err := im.words.FindByEnglish(ctx, english)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Italian = italian
		if chapter := cell(row, colChapter); chapter != "" {
			existing.Chapter = chapter
		}
		if group := cell(row, colGroup); group != "" {
			existing.Group = group
		}
		if notes := cell(row, colNotes); notes != "" {
			existing.Notes = notes
		}
		if err := im.words.Update(ctx, existing); err != nil {
			return err
		}
		result.Updated++
		return nil
	}

	word := models.Word{
		English: english,
		Italian: italian,
		Chapter: cell(row, colChapter),
		Group:   cell(row, colGroup),
		Notes:   cell(row, colNotes),
	}
	if err := im.words.Create(ctx, &word); err != nil {
		return err
	}
	result.Added++
	return nil
}

// cell returns the trimmed cell at index, or "" when out of range
func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

// isHeaderRow detects the conventional header line
func isHeaderRow(row []string) bool {
	return strings.EqualFold(cell(row, colEnglish), "english")
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ExportWorkbook writes the word list as an Excel workbook, one row per
// word with a header line.
func ExportWorkbook(words []models.Word) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"English", "Italian", "Chapter", "Group", "Notes"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %v", err)
	}
	for i, word := range words {
		row := []interface{}{word.English, word.Italian, word.Chapter, word.Group, word.Notes}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %v", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %v", err)
	}
	return buf.Bytes(), nil
}
