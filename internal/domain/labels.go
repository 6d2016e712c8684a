package domain

// Label keys attached to every managed container so that unrelated
// containers on the same host are never touched.
const (
	LabelManaged = "dev.managed"
	LabelSource  = "dev.source"
	LabelSession = "dev.session"
)
