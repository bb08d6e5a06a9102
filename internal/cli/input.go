package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/orchestrator"
)

// envelope is the wrapped input form. A document without a "patient" key is
// read as a bare patient state.
type envelope struct {
	ID      string              `json:"id"`
	Patient domain.PatientState `json:"patient"`
}

// ReadRequest decodes an assessment request from r. Unknown fields are
// rejected so a misspelled clinical field cannot silently default to false.
func ReadRequest(r io.Reader) (orchestrator.Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("read input: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return orchestrator.Request{}, fmt.Errorf("input is not a JSON object: %w", err)
	}

	if _, wrapped := probe["patient"]; wrapped {
		var env envelope
		if err := strictDecode(data, &env); err != nil {
			return orchestrator.Request{}, err
		}
		return orchestrator.Request{ID: env.ID, Patient: env.Patient}, nil
	}

	var p domain.PatientState
	if err := strictDecode(data, &p); err != nil {
		return orchestrator.Request{}, err
	}
	return orchestrator.Request{Patient: p}, nil
}

// ReadRequestFile reads a request from path, or from stdin when path is "-" or empty.
func ReadRequestFile(path string, stdin io.Reader) (orchestrator.Request, error) {
	if path == "" || path == "-" {
		return ReadRequest(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return orchestrator.Request{}, err
	}
	defer f.Close()
	return ReadRequest(f)
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}
