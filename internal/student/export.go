package student

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Students"

var rosterHeaders = []string{
	"Class", "Roll No", "Student Name", "Father's Name", "Mother's Name", "Ledger No", "DOB",
	"Gender", "Fee Amount", "Fee Status", "Status", "Aadhar No", "Submitted",
}

// WriteRoster writes students as an xlsx workbook, one row per record in the given order.
func WriteRoster(w io.Writer, students []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("roster sheet: %w", err)
	}
	for i, h := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(rosterSheet, cell, h); err != nil {
			return err
		}
	}

	for i, s := range students {
		row := i + 2
		values := []any{
			s.Class, s.RollNo, s.StudentName, s.FatherName, s.MotherName, deref(s.LedgerNo),
			s.DOB.Format("02/01/2006"), string(s.Gender), s.FeeAmount, string(s.FeeStatus),
			string(s.Status), deref(s.AadharNo), yesNo(s.IsSubmitted),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(rosterSheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
