package constants

// Default staging directory layout. Every stage is a plain directory; a
// file's presence in a stage is its only state.
const (
	DefaultInputDir  = "./inputs"
	DefaultTextDir   = "./step1_texts"
	DefaultOutputDir = "./step3_final"
	DefaultDoneDir   = "./done"

	DefaultCoordDir  = "./coord_db"
	DefaultMasterDir = "./masters"
	DefaultRubricDir = "./rubric_txts"
)

// DraftSuffix pairs an input PDF with its extracted text:
// inputs/<base>.pdf <-> step1_texts/<base>_draft.txt.
const DraftSuffix = "_draft.txt"

// ArchiveDateLayout names done/ subfolders (same-day runs share a folder).
const ArchiveDateLayout = "20060102"

// OutputArchiveSuffix marks an archive folder holding a prior output
// batch, retired before a new extraction run.
const OutputArchiveSuffix = "_output"

// UnknownMasterID is the literal the extraction service must emit on the
// first line when the sheet matches no known master.
const UnknownMasterID = "UNKNOWN"
