package news

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Payload is the work item handed to a run. Field names match the automation
// harness that produces it.
type Payload struct {
	Month    int    `json:"Month"`
	Phrase   string `json:"Phrase"`
	Category string `json:"Category"`
}

// DecodePayload reads a JSON work item and fills in defaults for missing
// phrase and category.
func DecodePayload(r io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if p.Phrase == "" {
		p.Phrase = DefaultPhrase
	}
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	return p, nil
}

// LoadPayload decodes the work item stored at path.
func LoadPayload(path string) (Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Payload{}, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()
	return DecodePayload(f)
}

// Criteria converts the payload into search criteria.
func (p Payload) Criteria() Criteria {
	return Criteria{
		Phrase:   p.Phrase,
		Category: p.Category,
		Months:   p.Month,
	}
}
