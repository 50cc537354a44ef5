package ui

//nolint:gochecknoglobals // exported for external tests
var (
	RenderSource = renderSource
	RenderStatus = renderStatus
)
