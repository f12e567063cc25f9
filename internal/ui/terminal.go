package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const Logo = `
       __                            __
  ____/ /_  __  ______ __________ _/ /
 / ___/ __ \/ / / / __ '/ ___/ __ '/ /
/ /__/ / / / /_/ / /_/ (__  ) /_/ / /
\___/_/ /_/\__,_/\__, /____/\__, /_/
                /____/        /_/
`

func PrintLogo() {
	fmt.Println(LogoStyle.Render(Logo))
}

func PrintTitle(title string) {
	fmt.Println(TitleStyle.Render(title))
}

func PrintSubtitle(subtitle string) {
	fmt.Println(SubtitleStyle.Render(subtitle))
}

func PrintSuccess(message string) {
	fmt.Println(SuccessStyle.Render("✓ " + message))
}

func PrintError(message string) {
	fmt.Println(ErrorStyle.Render("✗ " + message))
}

func PrintWarning(message string) {
	fmt.Println(WarningStyle.Render("! " + message))
}

func PrintInfo(message string) {
	fmt.Println(InfoStyle.Render(message))
}

func PrintHighlight(message string) {
	fmt.Println(HighlightStyle.Render(message))
}

// PrintBox prints content under a highlighted title inside a rounded border.
func PrintBox(title string, content string) {
	titleText := HighlightStyle.Render(title)
	contentText := InfoStyle.Render(content)
	boxContent := lipgloss.JoinVertical(lipgloss.Left, titleText, contentText)
	fmt.Println(BoxStyle.Render(boxContent))
}

// ExitWithError prints an error message and exits with code 1
func ExitWithError(message string) {
	PrintError(message)
	os.Exit(1)
}

// DisplayTable prints a styled table with headers and rows
func DisplayTable(headers []string, rows [][]string) {
	fmt.Print(RenderTable(headers, rows))
}

// RenderTable lays out headers and rows in padded columns. Widths are
// measured in terminal cells, so wide and multi-byte text lines up.
func RenderTable(headers []string, rows [][]string) string {
	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && lipgloss.Width(cell) > colWidths[i] {
				colWidths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder

	headerCells := make([]string, len(headers))
	for i, header := range headers {
		headerCells[i] = TableHeaderStyle.Render(
			lipgloss.PlaceHorizontal(colWidths[i], lipgloss.Left, header),
		)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, headerCells...))
	b.WriteByte('\n')

	separator := make([]string, len(headers))
	for i, width := range colWidths {
		separator[i] = strings.Repeat("─", width+2) // cell padding
	}
	b.WriteString(HighlightStyle.Render(strings.Join(separator, "")))
	b.WriteByte('\n')

	for _, row := range rows {
		rowCells := make([]string, 0, len(colWidths))
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			rowCells = append(rowCells, TableCellStyle.Render(
				lipgloss.PlaceHorizontal(colWidths[i], lipgloss.Left, cell),
			))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rowCells...))
		b.WriteByte('\n')
	}
	return b.String()
}
