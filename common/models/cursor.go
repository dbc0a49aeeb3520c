package models

import (
	"encoding/base64"
	"encoding/json"
)

const (
	CursorDirectionPrev CursorDirection = "p"
	CursorDirectionNext CursorDirection = "n"
)

// Cursor holds the markers for the pages either side of a page of results.
type Cursor struct {
	Prev *DirectionalCursor
	Next *DirectionalCursor
}

type CursorDirection string

type DirectionalCursor struct {
	Direction CursorDirection `json:"d"`
	Marker    string          `json:"m"`
}

// DecodeCursor parses an opaque cursor string, as produced by Encode. Empty input yields nil.
func DecodeCursor(str string) (*DirectionalCursor, error) {
	if str == "" {
		return nil, nil
	}
	buf, err := base64.URLEncoding.DecodeString(str)
	if err != nil {
		return nil, err
	}
	cursor := &DirectionalCursor{}
	if err := json.Unmarshal(buf, cursor); err != nil {
		return nil, err
	}
	return cursor, nil
}

func (m *DirectionalCursor) Encode() (string, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
