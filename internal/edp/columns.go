package edp

import (
	"maps"
	"slices"
)

// Canonical column keys. Raw headers are folded with FoldKey before lookup.
const (
	colID              = "id"
	colNumber          = "n_edp"
	colProject         = "proyecto"
	colClient          = "cliente"
	colManager         = "jefe_proyecto"
	colMonth           = "mes"
	colProposed        = "monto_propuesto"
	colApproved        = "monto_aprobado"
	colEmitted         = "fecha_emision"
	colSent            = "fecha_envio_cliente"
	colEstimated       = "fecha_estimada_pago"
	colConformed       = "fecha_conformidad"
	colRegistered      = "fecha_registro"
	colStatus          = "estado"
	colDetailedStatus  = "estado_detallado"
	colRejection       = "motivo_no_aprobado"
	colFailureType     = "tipo_falla"
	colConformanceSent = "conformidad_enviada"
)

var recordColumns = map[string][]string{
	colID:              {"id", "id_edp"},
	colNumber:          {"n_edp", "no_edp", "nro_edp", "numero_edp", "edp", "number"},
	colProject:         {"proyecto", "project", "nombre_proyecto"},
	colClient:          {"cliente", "client", "mandante"},
	colManager:         {"jefe_proyecto", "jefe_de_proyecto", "manager", "encargado"},
	colMonth:           {"mes", "month", "periodo"},
	colProposed:        {"monto_propuesto", "proposed_amount", "monto_edp"},
	colApproved:        {"monto_aprobado", "approved_amount"},
	colEmitted:         {"fecha_emision", "fecha_de_emision", "emitted_at"},
	colSent:            {"fecha_envio_cliente", "fecha_envio", "fecha_envio_al_cliente", "sent_at"},
	colEstimated:       {"fecha_estimada_pago", "fecha_estimada_de_pago", "estimated_payment_at"},
	colConformed:       {"fecha_conformidad", "fecha_de_conformidad", "conformed_at"},
	colRegistered:      {"fecha_registro", "fecha_de_registro", "registered_at"},
	colStatus:          {"estado", "status"},
	colDetailedStatus:  {"estado_detallado", "detalle_estado", "detailed_status"},
	colRejection:       {"motivo_no_aprobado", "motivo_rechazo", "rejection_reason"},
	colFailureType:     {"tipo_falla", "tipo_de_falla", "failure_type"},
	colConformanceSent: {"conformidad_enviada", "conformance_sent"},
}

// folded indexes a raw row by folded header.
type folded map[string]any

// foldRow keeps one value per folded header. A header already in canonical
// form wins; otherwise the first raw header in sort order does.
func foldRow(row map[string]any) folded {
	out := make(folded, len(row))
	exact := make(map[string]bool, len(row))
	for _, k := range slices.Sorted(maps.Keys(row)) {
		key := FoldKey(k)
		if key == "" {
			continue
		}
		if _, dup := out[key]; dup && (exact[key] || k != key) {
			continue
		}
		out[key] = row[k]
		exact[key] = k == key
	}
	return out
}

func (f folded) lookup(aliases []string) (any, string, bool) {
	for _, alias := range aliases {
		if v, ok := f[alias]; ok {
			return v, alias, true
		}
	}
	return nil, "", false
}
