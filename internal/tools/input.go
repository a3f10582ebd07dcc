package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"smart-email/internal/apperr"
	"smart-email/internal/model"
)

const (
	ToolInfo     = "smart_email_info"
	ToolClassify = "classify_email"
	// toolClassifyAlias is the name older callers use for ToolClassify.
	toolClassifyAlias = "categorize_email"
)

// Input is one of the registered tools' typed inputs.
type Input interface {
	Tool() string
}

// InfoInput takes no arguments.
type InfoInput struct{}

func (InfoInput) Tool() string { return ToolInfo }

type ClassifyInput struct {
	From    string
	Subject string
	Snippet string
}

func (ClassifyInput) Tool() string { return ToolClassify }

func (in ClassifyInput) Request() model.ClassificationRequest {
	return model.ClassificationRequest{Sender: in.From, Subject: in.Subject, Snippet: in.Snippet}
}

// DecodeInput validates raw against the schema of tool. An absent or null
// input is treated as an empty object.
func DecodeInput(tool string, raw json.RawMessage) (Input, error) {
	const op = "tools.DecodeInput"

	if tool != ToolInfo && tool != ToolClassify && tool != toolClassifyAlias {
		return nil, apperr.New(apperr.KindInvalidInput, op, "Unknown tool: "+tool)
	}

	fields, err := decodeObject(raw)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, op, "Invalid input: "+err.Error())
	}
	if tool == ToolInfo {
		return InfoInput{}, nil
	}

	in, err := decodeClassify(fields)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, op, "Invalid input: "+err.Error())
	}
	return in, nil
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("expected an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("malformed object: %v", err)
	}
	return fields, nil
}

func decodeClassify(fields map[string]json.RawMessage) (ClassifyInput, error) {
	var problems []string
	str := func(names ...string) string {
		for _, name := range names {
			raw, ok := fields[name]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				problems = append(problems, fmt.Sprintf("%s: expected string", name))
				return ""
			}
			return s
		}
		problems = append(problems, fmt.Sprintf("%s: required", names[0]))
		return ""
	}

	in := ClassifyInput{
		From:    str("from", "sender"),
		Subject: str("subject"),
		Snippet: str("snippet"),
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return ClassifyInput{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return in, nil
}
