package perf

import (
	"fmt"
	"math/rand"
	"time"

	_ "github.com/pagora/pagora-edp/internal/testing/guard"
)

var perfNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

var (
	perfManagers = []string{"Ana Rojas", "Bruno Díaz", "Carla Soto", "Diego Muñoz", "Elena Vera"}
	perfClients  = []string{"Codelco", "Enel", "Arauco", "Colbún", "Falabella", "Entel", "Aguas Andinas"}
	perfStatuses = []string{"revisión", "enviado", "aprobado", "validado", "pagado", "re-trabajo"}
)

// syntheticEDPs builds n deterministic EDP rows spread over the first half
// of 2024.
func syntheticEDPs(n int) []map[string]any {
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]map[string]any, n)
	for i := range rows {
		emitted := start.AddDate(0, 0, rng.Intn(170))
		sent := emitted.AddDate(0, 0, rng.Intn(6))
		status := perfStatuses[rng.Intn(len(perfStatuses))]
		row := map[string]any{
			"n_edp":               fmt.Sprintf("%05d", i+1),
			"proyecto":            fmt.Sprintf("P-%03d", rng.Intn(60)),
			"jefe_proyecto":       perfManagers[rng.Intn(len(perfManagers))],
			"cliente":             perfClients[rng.Intn(len(perfClients))],
			"estado":              status,
			"monto_propuesto":     float64(500000 + rng.Intn(9500000)),
			"fecha_emision":       emitted.Format(time.DateOnly),
			"fecha_envio_cliente": sent.Format(time.DateOnly),
		}
		row["monto_aprobado"] = row["monto_propuesto"].(float64) * (0.85 + rng.Float64()*0.15)
		if status == "pagado" || status == "validado" {
			row["fecha_conformidad"] = sent.AddDate(0, 0, 5+rng.Intn(50)).Format(time.DateOnly)
		}
		rows[i] = row
	}
	return rows
}
