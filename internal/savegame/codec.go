package savegame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Codec turns a snapshot into bytes and back.
type Codec interface {
	Marshal(Snapshot) ([]byte, error)
	Unmarshal([]byte) (Snapshot, error)
	Ext() string
}

// wire mirrors Snapshot with pointers so absent fields are detected.
type wire struct {
	Pieces       map[string]string `json:"pieces" yaml:"pieces"`
	ActivePlayer *string           `json:"active_player" yaml:"active_player"`
	WhiteSeconds *float64          `json:"white_seconds" yaml:"white_seconds"`
	BlackSeconds *float64          `json:"black_seconds" yaml:"black_seconds"`
}

func (w wire) snapshot() (Snapshot, error) {
	switch {
	case w.Pieces == nil:
		return Snapshot{}, fmt.Errorf("%w: pieces missing", ErrMalformed)
	case w.ActivePlayer == nil:
		return Snapshot{}, fmt.Errorf("%w: active_player missing", ErrMalformed)
	case w.WhiteSeconds == nil || w.BlackSeconds == nil:
		return Snapshot{}, fmt.Errorf("%w: clock totals missing", ErrMalformed)
	}
	return Snapshot{
		Pieces:       w.Pieces,
		ActivePlayer: *w.ActivePlayer,
		WhiteSeconds: *w.WhiteSeconds,
		BlackSeconds: *w.BlackSeconds,
	}, nil
}

type JSONCodec struct{}

func (JSONCodec) Ext() string { return ".json" }

func (JSONCodec) Marshal(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func (JSONCodec) Unmarshal(b []byte) (Snapshot, error) {
	var w wire
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return w.snapshot()
}

type YAMLCodec struct{}

func (YAMLCodec) Ext() string { return ".yaml" }

func (YAMLCodec) Marshal(s Snapshot) ([]byte, error) { return yaml.Marshal(s) }

func (YAMLCodec) Unmarshal(b []byte) (Snapshot, error) {
	var w wire
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return w.snapshot()
}

// CodecFor picks YAML for .yaml/.yml paths and JSON for everything else.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCodec{}
	default:
		return JSONCodec{}
	}
}
