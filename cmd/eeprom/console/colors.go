package console

import "github.com/fatih/color"

// Red marks errors, Yellow warnings.
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
)
