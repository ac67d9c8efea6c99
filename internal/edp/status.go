package edp

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the closed set of EDP lifecycle states.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusRevision  Status = "revision"
	StatusSent      Status = "sent"
	StatusApproved  Status = "approved"
	StatusValidated Status = "validated"
	StatusPaid      Status = "paid"
	StatusRework    Status = "rework"
)

var statusLabels = map[Status]string{
	StatusUnknown:   "desconocido",
	StatusRevision:  "revisión",
	StatusSent:      "enviado",
	StatusApproved:  "aprobado",
	StatusValidated: "validado",
	StatusPaid:      "pagado",
	StatusRework:    "re-trabajo solicitado",
}

// Statuses lists every known status except StatusUnknown.
func Statuses() []Status {
	return []Status{StatusSent, StatusRevision, StatusApproved, StatusRework, StatusValidated, StatusPaid}
}

// Label returns the Spanish label used on the spreadsheet.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[StatusUnknown]
}

// IsPending reports whether the certificate still awaits collection.
func (s Status) IsPending() bool {
	switch s {
	case StatusSent, StatusRevision, StatusApproved, StatusRework:
		return true
	}
	return false
}

// IsCompleted reports whether the certificate is validated or paid.
func (s Status) IsCompleted() bool {
	return s == StatusValidated || s == StatusPaid
}

// IsTerminal reports whether the certificate left the collection cycle.
func (s Status) IsTerminal() bool {
	return s.IsCompleted()
}

// CriticalEligible reports whether waiting time can flag the record as critical.
func (s Status) CriticalEligible() bool {
	return !s.IsTerminal()
}

// Vocabulary maps raw spreadsheet status strings onto Status values.
type Vocabulary struct {
	aliases map[string]Status
}

// DefaultVocabulary returns the aliases observed in the EDP spreadsheets.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{aliases: make(map[string]Status)}
	defaults := map[Status][]string{
		StatusRevision:  {"revisión", "en revisión", "revision cliente", "pendiente revisión"},
		StatusSent:      {"enviado", "enviada", "enviado a cliente", "enviado cliente"},
		StatusApproved:  {"aprobado", "aprobada"},
		StatusValidated: {"validado", "validada", "validado cliente"},
		StatusPaid:      {"pagado", "pagada", "cobrado", "cobrada"},
		StatusRework:    {"re-trabajo solicitado", "retrabajo solicitado", "re trabajo solicitado", "re-trabajo", "retrabajo"},
	}
	for status, aliases := range defaults {
		v.aliases[Fold(string(status))] = status
		for _, alias := range aliases {
			v.aliases[Fold(alias)] = status
		}
	}
	return v
}

// With returns a copy of the vocabulary including the extra aliases.
func (v *Vocabulary) With(extra map[string]Status) *Vocabulary {
	out := &Vocabulary{aliases: make(map[string]Status, len(v.aliases)+len(extra))}
	for k, s := range v.aliases {
		out.aliases[k] = s
	}
	for alias, s := range extra {
		if key := Fold(alias); key != "" {
			out.aliases[key] = s
		}
	}
	return out
}

// Resolve maps a raw status onto the enumeration. Unmapped text yields StatusUnknown.
func (v *Vocabulary) Resolve(raw string) Status {
	key := Fold(raw)
	if key == "" || v == nil {
		return StatusUnknown
	}
	if s, ok := v.aliases[key]; ok {
		return s
	}
	return StatusUnknown
}

// Aliases returns the folded aliases registered for s, sorted.
func (v *Vocabulary) Aliases(s Status) []string {
	var out []string
	for alias, status := range v.aliases {
		if status == s {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// ParseAliases reads "alias=status,alias2=status2" where status is either a
// Status code ("paid") or a label known to the default vocabulary.
func ParseAliases(spec string) (map[string]Status, error) {
	out := make(map[string]Status)
	if strings.TrimSpace(spec) == "" {
		return out, nil
	}
	base := DefaultVocabulary()
	for _, pair := range strings.Split(spec, ",") {
		alias, target, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(alias) == "" {
			return nil, fmt.Errorf("edp: invalid status alias %q", pair)
		}
		status := base.Resolve(target)
		if status == StatusUnknown {
			return nil, fmt.Errorf("edp: unknown status %q for alias %q", strings.TrimSpace(target), strings.TrimSpace(alias))
		}
		out[alias] = status
	}
	return out, nil
}
