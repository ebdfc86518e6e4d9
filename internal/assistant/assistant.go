// Package assistant is the AI generation collaborator: it turns a prompt and a
// mode into generated text, and wraps generated copy into a text component.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-site-builder/internal/model"
)

// Mode selects the kind of generation.
type Mode string

const (
	ModeCode      Mode = "code"
	ModeDesign    Mode = "design"
	ModeContent   Mode = "content"
	ModeLayout    Mode = "layout"
	ModeConvert   Mode = "convert"
	ModeTemplates Mode = "templates"
)

var (
	ErrInvalidMode = errors.New("invalid assistant mode")
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrDisabled    = errors.New("assistant not configured")
	ErrRateLimited = errors.New("assistant rate limit exceeded")
	ErrUpstream    = errors.New("assistant upstream error")
)

// ParseMode validates a mode name. An empty name means ModeCode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeCode, nil
	case ModeCode, ModeDesign, ModeContent, ModeLayout, ModeConvert, ModeTemplates:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Instruction wraps the user's prompt in the instruction sent upstream for mode.
func Instruction(mode Mode, prompt string) string {
	switch mode {
	case ModeDesign:
		return fmt.Sprintf("Generate design suggestions for: %s. Provide specific CSS properties and values that would work well.", prompt)
	case ModeContent:
		return fmt.Sprintf("Generate website content for: %s. Provide well-structured, engaging content suitable for a website.", prompt)
	case ModeLayout:
		return fmt.Sprintf("Optimize this website layout: %s. Suggest improvements for better user experience, accessibility, and visual hierarchy.", prompt)
	case ModeConvert:
		return fmt.Sprintf("Convert this natural language description to HTML and CSS code: %s. Return only the code without any explanations.", prompt)
	case ModeTemplates:
		return fmt.Sprintf("Based on these requirements: %s, suggest 3-5 website templates that would be suitable. For each template, provide a name, brief description, and key features.", prompt)
	default:
		return fmt.Sprintf("Generate code for the following: %s. Return only the code without any explanations or markdown formatting.", prompt)
	}
}

type Response struct {
	Text string `json:"text"`
}

type Generator interface {
	Generate(ctx context.Context, mode Mode, prompt string) (Response, error)
}

// Disabled is the Generator used when no endpoint is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Mode, string) (Response, error) {
	return Response{}, ErrDisabled
}

// ContentComponent wraps generated copy into a text node ready to be added to a
// page. The node has no id; the engine assigns one.
func ContentComponent(text string) *model.Component {
	return &model.Component{
		Type:  model.TypeText,
		Name:  "AI Generated Text",
		Props: model.Props{"text": text},
		Styles: model.Styles{
			"fontSize":   "16px",
			"color":      "#333333",
			"lineHeight": "1.5",
		},
		Children: []*model.Component{},
	}
}
