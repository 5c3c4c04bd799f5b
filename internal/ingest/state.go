package ingest

// State：单个文件的导入状态
// 约束：NotStarted → DuplicateCheck → {AlreadyImported | Extracting → (Skipped | SegmentRegistration → Persisting → Committed)}
type State int

const (
	NotStarted State = iota
	DuplicateCheck
	AlreadyImported
	Extracting
	Skipped
	SegmentRegistration
	Persisting
	Committed
)

var stateNames = [...]string{
	NotStarted:          "not_started",
	DuplicateCheck:      "duplicate_check",
	AlreadyImported:     "already_imported",
	Extracting:          "extracting",
	Skipped:             "skipped",
	SegmentRegistration: "segment_registration",
	Persisting:          "persisting",
	Committed:           "committed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "invalid"
	}
	return stateNames[s]
}

// Terminal：是否为终态
func (s State) Terminal() bool {
	return s == AlreadyImported || s == Skipped || s == Committed
}
