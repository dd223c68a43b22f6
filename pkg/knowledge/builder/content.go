package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Content is the structured portfolio document chunked into the knowledge base.
type Content struct {
	Personal       *Personal                   `json:"personal,omitempty"`
	Experience     []Experience                `json:"experience,omitempty"`
	Projects       []Project                   `json:"projects,omitempty"`
	CaseStudy      *CaseStudy                  `json:"case_study,omitempty"`
	Skills         Ordered[SkillGroup]         `json:"skills,omitempty"`
	Education      *Education                  `json:"education,omitempty"`
	Certifications Ordered[CertificationGroup] `json:"certifications,omitempty"`
}

type Personal struct {
	Name            string `json:"name"`
	Title           string `json:"title"`
	ExperienceYears Text   `json:"experience_years"`
	Tagline         string `json:"tagline"`
	Location        string `json:"location"`
	Email           string `json:"email"`
}

type Experience struct {
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Role        string   `json:"role"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Location    string   `json:"location"`
	Highlights  []string `json:"highlights"`
}

type Project struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	Technologies     []string `json:"technologies"`
}

type CaseStudy struct {
	Title     string        `json:"title"`
	AtAGlance AtAGlance     `json:"at_a_glance"`
	Problem   string        `json:"problem"`
	Solution  string        `json:"solution"`
	MyRole    Ordered[Text] `json:"my_role"`
	Impact    Ordered[Text] `json:"impact"`
	Learnings []string      `json:"learnings"`
}

type AtAGlance struct {
	Impact   string `json:"impact"`
	Timeline string `json:"timeline"`
	Role     string `json:"role"`
}

type SkillGroup struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	ShortName   string `json:"short_name"`
	Location    string `json:"location"`
	StartYear   Text   `json:"start_year"`
	EndYear     Text   `json:"end_year"`
}

type CertificationGroup struct {
	Items []Certification `json:"items"`
}

type Certification struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Date     string `json:"date"`
	Expected string `json:"expected"`
}

// Text is a string that also accepts JSON numbers, booleans and, for
// anything else, keeps the raw JSON text.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	*t = Text(bytes.TrimSpace(data))
	return nil
}

// Entry is one key/value pair of an Ordered object.
type Entry[T any] struct {
	Key   string
	Value T
}

// Ordered decodes a JSON object keeping the order of its keys, so chunking
// the same document always yields the same chunk sequence.
type Ordered[T any] []Entry[T]

func (o *Ordered[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	var entries Ordered[T]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var value T
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		entries = append(entries, Entry[T]{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = entries
	return nil
}

// LoadContent reads and parses a content document.
func LoadContent(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	return ParseContent(data)
}

// ParseContent parses a content document.
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	return &c, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
