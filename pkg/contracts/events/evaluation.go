// Package events defines the progress events emitted while a batch of
// startups is evaluated, and their wire encoding.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"tiervc/pkg/contracts/domain"
)

// Kind identifies an event variant on the wire
type Kind string

const (
	KindLog      Kind = "log"
	KindResult   Kind = "result"
	KindMapping  Kind = "mapping"
	KindStartups Kind = "startups"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// Stage tags the component that produced a log event
type Stage string

const (
	StageSystem = Stage("system")
	StageMarket = Stage("market-analyst")
	StageTeam   = Stage("team-analyst")
	StageJudge  = Stage("judge")
)

// Event is the closed set of progress events. Only types in this package
// implement it.
type Event interface {
	Kind() Kind
	event()
}

// Log is a human-readable progress line
type Log struct {
	Startup string `json:"startup,omitempty"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Result carries the three raw judgments for one startup
type Result struct {
	Startup string                `json:"startup"`
	Market  domain.MarketJudgment `json:"market"`
	Team    domain.TeamJudgment   `json:"team"`
	Judge   domain.FinalJudgment  `json:"judge"`
}

// Mapping echoes how spreadsheet columns were matched to record fields.
// Fields with no matching column map to an empty string.
type Mapping struct {
	Mapping map[string]string `json:"mapping"`
	Count   int               `json:"count"`
}

// Startups lists record names in submission order
type Startups struct {
	Names []string `json:"names"`
}

// Complete terminates a successful stream
type Complete struct {
	BatchID    string            `json:"batch_id,omitempty"`
	TierCounts domain.TierCounts `json:"tier_counts"`
	Total      int               `json:"total"`
	Failed     int               `json:"failed"`
}

// Error terminates a stream that could not finish
type Error struct {
	Message string `json:"message"`
}

func (Log) Kind() Kind      { return KindLog }
func (Result) Kind() Kind   { return KindResult }
func (Mapping) Kind() Kind  { return KindMapping }
func (Startups) Kind() Kind { return KindStartups }
func (Complete) Kind() Kind { return KindComplete }
func (Error) Kind() Kind    { return KindError }

func (Log) event()      {}
func (Result) event()   {}
func (Mapping) event()  {}
func (Startups) event() {}
func (Complete) event() {}
func (Error) event()    {}

// IsTerminal reports whether e ends a stream
func IsTerminal(e Event) bool {
	switch e.Kind() {
	case KindComplete, KindError:
		return true
	}
	return false
}

// Marshal encodes e as a flat JSON object with a "type" discriminator
func Marshal(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Kind(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("flatten %s event: %w", e.Kind(), err)
	}
	fields["type"] = json.RawMessage(strconv.Quote(string(e.Kind())))
	return json.Marshal(fields)
}

// Unmarshal decodes an event produced by Marshal
func Unmarshal(data []byte) (Event, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event type: %w", err)
	}

	var e Event
	var err error
	switch head.Type {
	case KindLog:
		var v Log
		err = json.Unmarshal(data, &v)
		e = v
	case KindResult:
		var v Result
		err = json.Unmarshal(data, &v)
		e = v
	case KindMapping:
		var v Mapping
		err = json.Unmarshal(data, &v)
		e = v
	case KindStartups:
		var v Startups
		err = json.Unmarshal(data, &v)
		e = v
	case KindComplete:
		var v Complete
		err = json.Unmarshal(data, &v)
		e = v
	case KindError:
		var v Error
		err = json.Unmarshal(data, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", head.Type, err)
	}
	return e, nil
}
