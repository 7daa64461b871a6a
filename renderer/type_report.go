package renderer

// Report is the printable view of an analysis: every number is already
// formatted.
type Report struct {
	ModeLabel   string
	Seed        int64
	Threshold   string
	Instruments int
	Score       string
	Intro       string
	Buckets     []Group
	Mergers     []MergerSize
	Inclusion   *InclusionView
}

// Group is a titled bucket with its correlation table.
type Group struct {
	Title string
	Score string
	Pairs []string
	Table Table
}

// Table is a correlation table, cells are highlighted when needed.
type Table struct {
	Header []string
	Rows   []Row
}

// Row is a line of a Table.
type Row struct {
	Symbol string
	Cells  []string
}

// MergerSize lists the super buckets of a given size, best first.
type MergerSize struct {
	Size    int
	Summary []MergerLine
	Groups  []Group
}

// MergerLine is a line of the super bucket summary table.
type MergerLine struct {
	Rank       int
	Buckets    string
	Violations int
	Magnitude  string
}

// InclusionView is the max inclusion section.
type InclusionView struct {
	Buckets     int
	Cap         int
	Instruments string
	Pairs       string
	Excluded    string
	Groups      []Group
}
