package devserver

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/mocktest/internal/exam"
)

//go:embed sample.yaml
var sampleFixture []byte

//go:embed fixture.schema.json
var fixtureSchema []byte

const fixtureSchemaURL = "schema://mocktest/fixture.json"

// Fixture is the set of tests served by the devserver.
type Fixture struct {
	Tests []exam.Test `yaml:"tests"`
}

// Test returns the test with the given id.
func (f *Fixture) Test(id string) (exam.Test, bool) {
	for _, t := range f.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return exam.Test{}, false
}

// SampleFixture returns the built-in fixture.
func SampleFixture() (*Fixture, error) {
	return ParseFixture(sampleFixture)
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture validates raw YAML against the fixture schema, then checks
// cross references the schema cannot express.
func ParseFixture(raw []byte) (*Fixture, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := validateFixture(doc); err != nil {
		return nil, err
	}

	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) check() error {
	seen := make(map[string]bool)
	for _, t := range f.Tests {
		if seen[t.ID] {
			return fmt.Errorf("fixture: duplicate test id %q", t.ID)
		}
		seen[t.ID] = true

		qids := make(map[string]bool)
		for _, q := range t.Questions {
			if qids[q.ID] {
				return fmt.Errorf("fixture: test %s: duplicate question id %q", t.ID, q.ID)
			}
			qids[q.ID] = true
			if q.IsChoice() && len(q.Options) == 0 {
				return fmt.Errorf("fixture: test %s: question %s has no options", t.ID, q.ID)
			}
			if !q.IsChoice() {
				continue
			}
			if q.Type == exam.TypeSingleChoice && len(q.CorrectAnswers) > 1 {
				return fmt.Errorf("fixture: test %s: question %s has several correct answers", t.ID, q.ID)
			}
			for _, id := range q.CorrectAnswers {
				if !q.HasOption(id) {
					return fmt.Errorf("fixture: test %s: question %s: correct answer %q is not an option", t.ID, q.ID, id)
				}
			}
		}
	}
	return nil
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func fixtureValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(fixtureSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse fixture schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(fixtureSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add fixture schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(fixtureSchemaURL)
	})
	return compiledSchema, schemaErr
}

// validateFixture round-trips the YAML document through JSON so the
// validator sees JSON numbers and string-keyed maps.
func validateFixture(doc any) error {
	schema, err := fixtureValidator()
	if err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("fixture schema validation failed: %w", err)
	}
	return nil
}
