package ticket

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"text/template"
)

var csvHeader = []string{"ID", "Fecha", "Categoria", "Asunto", "Descripcion", "Estado", "Tiene Foto"}

// WriteCSV writes the bulk staff export: one row per ticket, same columns as
// the panel's spreadsheet download. Read-only.
func WriteCSV(w io.Writer, tickets []Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, tkt := range tickets {
		hasPhoto := "NO"
		if tkt.HasEvidence() {
			hasPhoto = "SI"
		}
		row := []string{
			tkt.ID.String(),
			tkt.CreatedAt.Format("2006-01-02 15:04"),
			tkt.CategoryName,
			tkt.Subject,
			tkt.Description,
			tkt.Status.Display(),
			hasPhoto,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const informeWidth = 72

const informeText = `{{center "ESCUELA MILITAR DE INGENIERÍA"}}
{{center "REPORTE DE INCIDENTE / SUGERENCIA"}}
{{rule}}

{{row "Código de Reporte:" .ID}}
{{row "Fecha:" .Date}}
{{row "Categoría:" .Category}}
{{row "Prioridad:" .Priority}}
{{row "Asunto:" .Subject}}
{{row "Estado:" .Status}}
{{rule}}

DETALLE:

{{.Description}}

EVIDENCIA:

{{.Evidence}}



{{center "________________________________________"}}
{{center "Firma y Sello del Responsable"}}
`

var informeTmpl = template.Must(template.New("informe").Funcs(template.FuncMap{
	"center": func(s string) string {
		if pad := (informeWidth - len([]rune(s))) / 2; pad > 0 {
			return strings.Repeat(" ", pad) + s
		}
		return s
	},
	"rule": func() string { return strings.Repeat("_", informeWidth) },
	"row": func(label, value string) string {
		if n := 22 - len([]rune(label)); n > 0 {
			return label + strings.Repeat(" ", n) + value
		}
		return label + " " + value
	},
}).Parse(informeText))

type informeData struct {
	ID          string
	Date        string
	Category    string
	Priority    string
	Subject     string
	Status      string
	Description string
	Evidence    string
}

// RenderInforme writes the formal single-ticket report document: letterhead,
// metadata table, full description, evidence reference and signature block.
func RenderInforme(w io.Writer, tkt Ticket, cat Category, evidenceURL string) error {
	evidence := "Sin evidencia fotográfica."
	if tkt.HasEvidence() {
		evidence = "Imagen adjunta: " + evidenceURL
	}
	return informeTmpl.Execute(w, informeData{
		ID:          tkt.ID.String(),
		Date:        tkt.CreatedAt.Format("02/01/2006 15:04"),
		Category:    cat.Name,
		Priority:    "Nivel " + strconv.Itoa(cat.BasePriority),
		Subject:     tkt.Subject,
		Status:      tkt.Status.Display(),
		Description: tkt.Description,
		Evidence:    evidence,
	})
}

// InformeFilename matches the panel's download naming.
func InformeFilename(tkt Ticket) string {
	return "Informe_EMI_" + tkt.ID.String()[:6] + ".txt"
}
