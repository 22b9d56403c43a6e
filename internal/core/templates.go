package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the sheet name used in generated templates.
const TemplateSheet = "Sheet1"

// TemplateWorkbook builds the empty upload workbook for a kind: one bold
// header row in field spec order.
func TemplateWorkbook(kind string) (*excelize.File, KindInfo, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, KindInfo{}, err
	}

	f := excelize.NewFile()

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, KindInfo{}, fmt.Errorf("create header style: %w", err)
	}

	for i, name := range def.Info.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			f.Close()
			return nil, KindInfo{}, err
		}
		if err := f.SetCellValue(TemplateSheet, cell, name); err != nil {
			f.Close()
			return nil, KindInfo{}, fmt.Errorf("write header %s: %w", name, err)
		}
		if err := f.SetCellStyle(TemplateSheet, cell, cell, style); err != nil {
			f.Close()
			return nil, KindInfo{}, err
		}
	}

	last, _ := excelize.ColumnNumberToName(len(def.Info.Columns))
	if err := f.SetColWidth(TemplateSheet, "A", last, 18); err != nil {
		f.Close()
		return nil, KindInfo{}, err
	}

	return f, def.Info, nil
}

// WriteTemplate writes the template for kind to w.
func (s *Service) WriteTemplate(w io.Writer, kind string) (KindInfo, error) {
	f, info, err := TemplateWorkbook(kind)
	if err != nil {
		return KindInfo{}, err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return KindInfo{}, fmt.Errorf("write template: %w", err)
	}
	return info, nil
}
