package users

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/tres-passos/marketplace/internal/model"
)

// SheetName is the worksheet written by ExportXLSX.
const SheetName = "Usuários"

var exportHeader = []string{"Nome", "Email", "Função"}

// ExportXLSX writes users as a single-sheet workbook with a header row.
func ExportXLSX(users []model.UserListItem, w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "users: add sheet")
	}

	addRow(sheet, exportHeader...)
	for _, u := range users {
		addRow(sheet, u.Name, u.Email, u.Role.Label())
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "users: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
