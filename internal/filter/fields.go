package filter

// atomKind classifies what argument shape a flag takes.
type atomKind int

const (
	atomUnary atomKind = iota // bare flag, no argument
	atomRegex                 // flag + regex pattern
	atomInt                   // flag + integer
)

// fieldSpec maps one flag code onto its SQL lowering against the derived
// views. Regex and int clauses carry exactly one placeholder. This table is
// the single source of truth for the filter vocabulary; flag lookup happens
// on the whole lexed code, so prefix-sharing codes (m / marked / marker)
// cannot shadow each other.
type fieldSpec struct {
	kind   atomKind
	clause string
	help   string
}

// Regex clauses pass flag 1 to search(), selecting case-insensitive
// matching; filter regexes never care about case. status_code is NULL on
// flows without a response, so the ~c clause is wrapped in COALESCE to stay
// two-valued under NOT.
var fields = map[string]fieldSpec{
	"all":     {atomUnary, `1 = 1`, "match all flows"},
	"marked":  {atomUnary, `(marked IS NOT NULL AND marked != '')`, "marked flows"},
	"q":       {atomUnary, `status_code IS NULL`, "flows with no response yet"},
	"s":       {atomUnary, `status_code IS NOT NULL`, "flows with a response"},
	"m":       {atomRegex, `search(?, method, 1)`, "method"},
	"u":       {atomRegex, `search(?, url, 1)`, "URL"},
	"d":       {atomRegex, `search(?, host, 1)`, "domain"},
	"c":       {atomInt, `COALESCE(status_code = ?, 0)`, "HTTP status code"},
	"h":       {atomRegex, `fid IN (SELECT fid FROM header_view WHERE search(?, kvstr, 1))`, "header (request or response)"},
	"marker":  {atomRegex, `search(?, marked, 1)`, "marker label"},
	"comment": {atomRegex, `search(?, comment, 1)`, "comment"},
	"src":     {atomRegex, `search(?, src, 1)`, "client address"},
	"dst":     {atomRegex, `search(?, dst, 1)`, "server address"},
}

// urlField is the lowering used for a bare regex atom, which means
// "match URL".
var urlField = fields["u"]
