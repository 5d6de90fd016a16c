package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotObject = errors.New("content payload must be a JSON object")

// Normalize merges a raw payload over EmptyData. profile and media are
// merged key by key; every other key replaces its default. Absent and null
// keys keep the default.
func Normalize(payload []byte) (Document, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Document{}, ErrNotObject
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Document{}, fmt.Errorf("decode content payload: %w", err)
	}

	doc := EmptyData()
	for key, value := range raw {
		if isNull(value) {
			continue
		}
		var err error
		switch key {
		case "profile":
			err = json.Unmarshal(value, &doc.Profile)
		case "media":
			err = json.Unmarshal(value, &doc.Media)
		case "summary":
			err = replace(value, &doc.Summary)
		case "resume_text":
			err = replace(value, &doc.ResumeText)
		case "passion_text":
			err = replace(value, &doc.PassionText)
		case "resume":
			err = replace(value, &doc.Resume)
		case "passion":
			err = replace(value, &doc.Passion)
		case "blogs":
			err = replace(value, &doc.Blogs)
		case "contact_blurb":
			err = replace(value, &doc.ContactBlurb)
		case "stats":
			err = replace(value, &doc.Stats)
		case "story":
			err = replace(value, &doc.Story)
		case "experience":
			err = replace(value, &doc.Experience)
		case "education":
			err = replace(value, &doc.Education)
		case "programs":
			err = replace(value, &doc.Programs)
		case "competencies":
			err = replace(value, &doc.Competencies)
		case "technical":
			err = replace(value, &doc.Technical)
		case "languages":
			err = replace(value, &doc.Languages)
		case "interests":
			err = replace(value, &doc.Interests)
		case "publications":
			err = replace(value, &doc.Publications)
		case "ideas":
			err = replace(value, &doc.Ideas)
		case "meta":
			err = replace(value, &doc.Meta)
		}
		if err != nil {
			return Document{}, fmt.Errorf("decode %q: %w", key, err)
		}
	}

	doc.fillEmpty()
	return doc, nil
}

func replace[T any](raw json.RawMessage, dst *T) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
