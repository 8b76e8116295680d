package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"nearby-listings/internal/models"
)

func OpenFile(filename string) (*excelize.File, error) {
	return excelize.OpenFile(filename)
}

// ReadRows returns every row of sheetName, header included. An empty
// sheetName reads the first sheet of the workbook.
func ReadRows(f *excelize.File, sheetName string) ([]string, [][]string, error) {
	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheetName)
	}
	return rows[0], rows[1:], nil
}

var resultHeaders = []interface{}{
	"Título", "Precio", "Área (m²)", "Tipo de propiedad", "Estrato",
	"Baños", "Habitaciones", "Garaje", "Latitud", "Longitud",
	"Punto de Interés", "Categoría", "Latitud POI", "Longitud POI",
	"Distancia (metros)",
}

// NewResultWorkbook builds a workbook with one sheet holding the result table.
func NewResultWorkbook(data []models.ResultRow, sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return nil, err
	}
	if err := sw.SetRow("A1", resultHeaders); err != nil {
		return nil, err
	}

	for i, r := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.Title, r.Price, r.Area, r.PropertyType, r.Stratum,
			r.Bathrooms, r.Bedrooms, r.Garage, r.SubjectLat, r.SubjectLon,
			r.LandmarkName, r.Category, r.LandmarkLat, r.LandmarkLon,
			r.Distance,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, err
	}

	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}
	return f, nil
}

func WriteResult(path string, data []models.ResultRow, sheetName string) error {
	f, err := NewResultWorkbook(data, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func StreamResult(w io.Writer, data []models.ResultRow, sheetName string) error {
	f, err := NewResultWorkbook(data, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}
