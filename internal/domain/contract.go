package domain

import "strings"

// ContractType is the closed set of contract kinds the engine understands.
// Connectors map provider tags into it at normalization time so nothing
// downstream has to guess at raw strings.
type ContractType string

const (
	ContractUnknown        ContractType = ""
	ContractPermanent      ContractType = "permanent"
	ContractFixedTerm      ContractType = "fixed_term"
	ContractInterim        ContractType = "interim"
	ContractInternship     ContractType = "internship"
	ContractApprenticeship ContractType = "apprenticeship"
	ContractStudentJob     ContractType = "student_job"
)

// France Travail typeContrat codes.
var franceTravailContracts = map[string]ContractType{
	"CDI": ContractPermanent,
	"CDD": ContractFixedTerm,
	"MIS": ContractInterim,
	"SAI": ContractFixedTerm, // saisonnier
	"DIN": ContractPermanent, // CDI intérimaire
}

var adzunaContracts = map[string]ContractType{
	"permanent": ContractPermanent,
	"contract":  ContractFixedTerm,
}

var joobleContracts = map[string]ContractType{
	"full-time":   ContractPermanent,
	"temporary":   ContractFixedTerm,
	"internship":  ContractInternship,
	"part-time":   ContractStudentJob,
	"apprentice":  ContractApprenticeship,
	"contractor":  ContractFixedTerm,
	"freelance":   ContractFixedTerm,
	"placement":   ContractInternship,
	"traineeship": ContractInternship,
}

// ContractFromSource resolves a provider tag through that provider's mapping
// table, falling back to free-text recognition for tags the table misses.
func ContractFromSource(source, raw string) ContractType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ContractUnknown
	}

	var table map[string]ContractType
	switch source {
	case "francetravail":
		table = franceTravailContracts
		if ct, ok := table[strings.ToUpper(raw)]; ok {
			return ct
		}
	case "adzuna":
		table = adzunaContracts
	case "jooble":
		table = joobleContracts
	}
	if table != nil {
		if ct, ok := table[strings.ToLower(raw)]; ok {
			return ct
		}
	}
	return ParseContractText(raw)
}

// ParseContractText recognizes free-text contract descriptions, used by the
// HTML connector and by profile preferences typed in by candidates.
func ParseContractText(raw string) ContractType {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case t == "":
		return ContractUnknown
	case strings.Contains(t, "cdi") || strings.Contains(t, "permanent") || strings.Contains(t, "full-time") || strings.Contains(t, "full time"):
		return ContractPermanent
	case strings.Contains(t, "apprenti") || strings.Contains(t, "alternance"):
		return ContractApprenticeship
	case strings.Contains(t, "intern") || strings.Contains(t, "stage"):
		return ContractInternship
	case strings.Contains(t, "student") || strings.Contains(t, "étudiant") || strings.Contains(t, "part-time"):
		return ContractStudentJob
	case strings.Contains(t, "interim") || strings.Contains(t, "intérim") || strings.Contains(t, "temp"):
		return ContractInterim
	case strings.Contains(t, "cdd") || strings.Contains(t, "fixed") || strings.Contains(t, "contract"):
		return ContractFixedTerm
	default:
		return ContractUnknown
	}
}

// contract alias groups: a stated preference accepts every member of its
// group, not just the exact kind.
var contractAliases = map[ContractType][]ContractType{
	ContractInternship:     {ContractApprenticeship},
	ContractApprenticeship: {ContractInternship},
	ContractStudentJob:     {ContractFixedTerm},
}

// Compatible reports whether a job tagged with ct satisfies a candidate
// preference. Absence on either side is permissive.
func (ct ContractType) Compatible(pref ContractType) bool {
	if pref == ContractUnknown || ct == ContractUnknown {
		return true
	}
	if ct == pref {
		return true
	}
	for _, alias := range contractAliases[pref] {
		if ct == alias {
			return true
		}
	}
	return false
}
