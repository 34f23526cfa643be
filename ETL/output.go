package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/LilVoxy/sales_warehouse/ETL/models"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
)

// PrintSuccess выводит сообщение об успехе
func PrintSuccess(format string, args ...any) {
	successColor.Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError выводит сообщение об ошибке
func PrintError(format string, args ...any) {
	errorColor.Printf("✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning выводит предупреждение
func PrintWarning(format string, args ...any) {
	warningColor.Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}

// printOutcome выводит итог запуска и сводку по таблицам
func printOutcome(outcome *RunOutcome) {
	switch outcome.Status {
	case models.RunStatusPartial:
		PrintWarning("Запуск %s завершен частично: отброшено строк %d, ошибок фактов %d, предупреждений %d",
			outcome.RunID, outcome.Rejected, outcome.Load.FactsFailed, outcome.Warnings)
	default:
		PrintSuccess("Запуск %s завершен успешно за %v", outcome.RunID, outcome.Duration.Round(time.Millisecond))
	}

	if outcome.Summary != nil {
		fmt.Println(outcome.Summary.Render())
	}
}
