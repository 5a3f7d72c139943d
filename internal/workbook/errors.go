package workbook

import "fmt"

// ParseError reports an upload that cannot be turned into expense columns.
type ParseError struct {
	File string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.File == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.File, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MsgTooShort is reported for sheets without data rows.
const MsgTooShort = "file must have header + data"
