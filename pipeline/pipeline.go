// Package pipeline parses and executes PDAL-style JSON pipeline
// descriptions over point clouds: one reader, a chain of filters, and one
// or more writers.
package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/seqsense/pcgol/pc"
)

// Stage is one step of a pipeline. A reader receives nil and returns the
// loaded cloud; filters and writers receive the current cloud.
type Stage interface {
	Name() string
	Run(pp *pc.PointCloud) (*pc.PointCloud, error)
}

type Pipeline struct {
	stages []Stage
}

// stageTypes maps the "type" field to a constructor decoding the stage
// object. Registered in stages.go.
var stageTypes = map[string]func(json.RawMessage) (Stage, error){}

// Parse decodes a pipeline description of the form
//
//	{"pipeline": ["in.pcd", {"type": "filters.recenter"}, "out.pcd"]}
//
// Bare strings are inferred as the reader (first entry) or a PCD writer.
// The first stage must be a reader, readers may not appear elsewhere, and
// filters may not follow a writer.
func Parse(b []byte) (*Pipeline, error) {
	var raw struct {
		Pipeline []json.RawMessage `json:"pipeline"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Pipeline) == 0 {
		return nil, errors.New("pipeline must have at least one stage")
	}

	p := &Pipeline{}
	for i, rm := range raw.Pipeline {
		s, err := parseStage(rm, i == 0)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		p.stages = append(p.stages, s)
	}

	seenWriter := false
	for i, s := range p.stages {
		switch {
		case i == 0 && !strings.HasPrefix(s.Name(), "readers."):
			return nil, fmt.Errorf("pipeline must start with a reader, got %s", s.Name())
		case i > 0 && strings.HasPrefix(s.Name(), "readers."):
			return nil, errors.New("pipeline must have exactly one reader")
		case strings.HasPrefix(s.Name(), "writers."):
			seenWriter = true
		case seenWriter:
			return nil, fmt.Errorf("filter %s after a writer", s.Name())
		}
	}
	return p, nil
}

func parseStage(rm json.RawMessage, first bool) (Stage, error) {
	var name string
	if err := json.Unmarshal(rm, &name); err == nil {
		if !strings.HasSuffix(name, ".pcd") {
			return nil, fmt.Errorf("cannot infer stage type from filename %q", name)
		}
		if first {
			return &readPCD{Filename: name}, nil
		}
		return &writePCD{Filename: name}, nil
	}

	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rm, &hdr); err != nil {
		return nil, err
	}
	mk, ok := stageTypes[hdr.Type]
	if !ok {
		return nil, fmt.Errorf("unknown stage type %q", hdr.Type)
	}
	return mk(rm)
}

// Run executes the stages in order. The first error aborts the run; there
// are no partial results.
func (p *Pipeline) Run() error {
	var pp *pc.PointCloud
	for _, s := range p.stages {
		out, err := s.Run(pp)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		pp = out
		log.Printf("%s: %d points", s.Name(), pp.Points)
	}
	return nil
}

// Stages returns the parsed stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

func decodeStrict(rm json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(rm))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
