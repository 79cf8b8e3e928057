package domain

// DocumentName identifies the kind of a document in the stream.
type DocumentName string

const (
	DocStart      DocumentName = "start"
	DocDescriptor DocumentName = "descriptor"
	DocEvent      DocumentName = "event"
	DocEventPage  DocumentName = "event_page"
	DocStop       DocumentName = "stop"
	DocResource   DocumentName = "resource"
	DocDatum      DocumentName = "datum"
	DocDatumPage  DocumentName = "datum_page"
)

// Valid reports whether n is one of the known document names.
func (n DocumentName) Valid() bool {
	switch n {
	case DocStart, DocDescriptor, DocEvent, DocEventPage, DocStop,
		DocResource, DocDatum, DocDatumPage:
		return true
	}
	return false
}

const (
	// LabelStreamData is the artifact label under which spec files are registered.
	LabelStreamData = "stream_data"

	// StreamBaseline is the descriptor name whose readings become the positioner block.
	StreamBaseline = "baseline"

	// ExitSuccess is the RunStop exit status of a run that completed normally.
	ExitSuccess = "success"

	// FileExtension is appended to every rendered file prefix.
	FileExtension = ".spec"

	// DefaultFilePrefix names files after the run uid.
	DefaultFilePrefix = "{{.start.uid}}"
)
