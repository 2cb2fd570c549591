package parser

import "fmt"

// ParseError reports source that the declaration parser cannot make sense
// of. Files that fail to parse must be left untouched by callers.
type ParseError struct {
	File    string
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d (offset %d): %s", file, e.Pos.Line, e.Pos.Column, e.Pos.Offset, e.Message)
}

// Offset is the byte offset at which parsing failed.
func (e *ParseError) Offset() int {
	return e.Pos.Offset
}
