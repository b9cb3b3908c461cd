package domain

// Job is the canonical listing shape every connector normalizes into.
// It is ephemeral: produced fresh on every run and never stored as its own
// row, only the outcome of attempting it is persisted.
type Job struct {
	ExternalID   string
	Source       string // francetravail/adzuna/jooble/hellowork
	CompanyName  string
	Title        string
	Location     string
	ContractType ContractType
	TargetEmail  string // empty when the provider exposes no contact
	TargetURL    string
}

// TargetName is the display name recorded on an application row.
func (j Job) TargetName() string {
	if j.CompanyName == "" {
		return j.Title
	}
	return j.CompanyName + " - " + j.Title
}
