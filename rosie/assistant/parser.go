package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReplySchema is the contract for the model's structured reply. Each actionRequests
// item must match exactly one action shape.
const ReplySchema = `{
  "type": "object",
  "required": ["answer"],
  "properties": {
    "answer": {"type": "string"},
    "actionRequests": {
      "type": "array",
      "items": {
        "oneOf": [
          {
            "type": "object",
            "required": ["type"],
            "properties": {
              "type": {"enum": ["new_conversation"]},
              "params": {"type": "object", "properties": {"name": {"type": "string"}}}
            }
          },
          {
            "type": "object",
            "required": ["type", "params"],
            "properties": {
              "type": {"enum": ["set_conversation"]},
              "params": {"type": "object", "required": ["id"], "properties": {"id": {"type": "string", "minLength": 1}}}
            }
          },
          {
            "type": "object",
            "required": ["type", "params"],
            "properties": {
              "type": {"enum": ["search_pc"]},
              "params": {"type": "object", "required": ["query"], "properties": {"query": {"type": "string"}}}
            }
          },
          {
            "type": "object",
            "required": ["type", "params"],
            "properties": {
              "type": {"enum": ["add_memory"]},
              "params": {"type": "object", "required": ["text"], "properties": {"text": {"type": "string"}}}
            }
          },
          {
            "type": "object",
            "required": ["type", "params"],
            "properties": {
              "type": {"enum": ["run_cmd"]},
              "params": {"type": "object", "required": ["cmd"], "properties": {"cmd": {"type": "string", "minLength": 1}}}
            }
          },
          {
            "type": "object",
            "required": ["type", "params"],
            "properties": {
              "type": {"enum": ["gen_image"]},
              "params": {
                "type": "object",
                "required": ["prompt"],
                "properties": {
                  "prompt": {"type": "string"},
                  "images": {"type": "array", "items": {"type": "string"}},
                  "output": {"type": "string"}
                }
              }
            }
          },
          {
            "type": "object",
            "required": ["type"],
            "properties": {
              "type": {"enum": ["analyze_screen"]},
              "params": {"type": "object", "properties": {"prompt": {"type": "string"}}}
            }
          }
        ]
      }
    }
  }
}`

// Reply is the decoded model reply: StructuredReply or RawReply.
type Reply interface {
	Answer() string
	Actions() []ActionRequest
	isReply()
}

// StructuredReply passed schema validation.
type StructuredReply struct {
	Text     string
	Requests []ActionRequest
}

// RawReply is any content that did not validate; its text is the answer verbatim.
type RawReply struct {
	Text string
}

func (r StructuredReply) Answer() string           { return r.Text }
func (r StructuredReply) Actions() []ActionRequest { return r.Requests }
func (StructuredReply) isReply()                   {}

func (r RawReply) Answer() string         { return r.Text }
func (RawReply) Actions() []ActionRequest { return nil }
func (RawReply) isReply()                 {}

// ReplyParser decodes model output into a Reply.
type ReplyParser struct {
	validator *JSONValidator
}

// NewReplyParser compiles the reply schema.
func NewReplyParser() (*ReplyParser, error) {
	v, err := NewJSONValidator(ReplySchema)
	if err != nil {
		return nil, err
	}
	return &ReplyParser{validator: v}, nil
}

type wireReply struct {
	Answer         string            `json:"answer"`
	ActionRequests []json.RawMessage `json:"actionRequests"`
}

// Parse validates text against the reply schema first. Any failure, at validation or
// while decoding, yields a RawReply carrying the original text.
func (p *ReplyParser) Parse(text string) Reply {
	reply, err := p.decode(text)
	if err != nil {
		return RawReply{Text: text}
	}
	return reply
}

func (p *ReplyParser) decode(text string) (StructuredReply, error) {
	data := []byte(strings.TrimSpace(text))
	if err := p.validator.Validate(data); err != nil {
		return StructuredReply{}, err
	}

	var wire wireReply
	if err := json.Unmarshal(data, &wire); err != nil {
		return StructuredReply{}, fmt.Errorf("failed to decode reply: %w", err)
	}

	requests := make([]ActionRequest, 0, len(wire.ActionRequests))
	for _, raw := range wire.ActionRequests {
		var req ActionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return StructuredReply{}, err
		}
		req.Result = nil // results only come from execution
		requests = append(requests, req)
	}

	return StructuredReply{Text: wire.Answer, Requests: requests}, nil
}

// CanonicalReply is the serialized form of a reply stored in the transcript.
func CanonicalReply(r Reply) (string, error) {
	requests := r.Actions()
	if requests == nil {
		requests = []ActionRequest{}
	}
	data, err := json.Marshal(struct {
		Answer         string          `json:"answer"`
		ActionRequests []ActionRequest `json:"actionRequests"`
	}{Answer: r.Answer(), ActionRequests: requests})
	if err != nil {
		return "", fmt.Errorf("failed to serialize reply: %w", err)
	}
	return string(data), nil
}
