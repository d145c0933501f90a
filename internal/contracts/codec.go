// Package contracts defines the messages exchanged between the controller
// and the preview panel, and their JSON encoding.
package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"
)

// ErrUnknownCommand is returned for messages whose command tag is not one
// the controller handles.
var ErrUnknownCommand = errors.New("unknown command")

//go:embed inbound.schema.json
var inboundSchema []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(inboundSchema))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling inbound schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("inbound.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding inbound schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("inbound.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling inbound schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Encode wraps msg in its wire envelope, {"command": ..., fields...}.
func Encode(msg Outbound) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Command(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Command(), err)
	}
	tag, _ := json.Marshal(msg.Command())
	fields["command"] = tag

	return json.Marshal(fields)
}

// Decode validates raw against the inbound message schema and returns the
// typed message. Unknown commands yield ErrUnknownCommand.
func Decode(raw []byte) (Inbound, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("message is not valid JSON")
	}

	command := gjson.GetBytes(raw, "command")
	if command.Type != gjson.String {
		return nil, errors.New("message has no command")
	}

	var msg Inbound
	switch command.String() {
	case CommandUpdateDelimiters:
		msg = &UpdateDelimiters{}
	case CommandSettingsClicked:
		msg = &SettingsClicked{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, command.String())
	}

	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("invalid %s message: %w", command.String(), err)
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", command.String(), err)
	}

	switch m := msg.(type) {
	case *UpdateDelimiters:
		return *m, nil
	case *SettingsClicked:
		return *m, nil
	}
	return msg, nil
}

func validate(raw []byte) error {
	sch, err := schema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return sch.Validate(inst)
}
