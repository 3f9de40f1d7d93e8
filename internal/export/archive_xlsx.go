package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"fleetdocs/internal/model"
)

const ArchiveSheet = "Archived"

var archiveHeader = []any{
	"id", "module", "entity_id", "document_type", "filename", "mime_type",
	"size_bytes", "uploaded_at", "archived_at", "archived_by",
}

// WriteArchivedXLSX writes archived documents as a single-sheet workbook.
func WriteArchivedXLSX(w io.Writer, docs []model.ArchivedDocumentRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ArchiveSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(ArchiveSheet, "A1", &archiveHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(ArchiveSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, d := range docs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		typeName := d.DocumentType.Name
		if typeName == "" {
			typeName = d.DocumentTypeID
		}
		row := []any{
			d.ID,
			d.Module.String(),
			d.EntityID,
			typeName,
			d.OriginalFilename,
			d.MimeType,
			d.Size,
			formatTime(d.UploadedAt),
			formatTime(d.ArchivedAt),
			d.ArchivedBy,
		}
		if err := f.SetSheetRow(ArchiveSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ArchiveSheet, "A", "J", 22); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
