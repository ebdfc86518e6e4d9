package schema

import "go-site-builder/internal/model"

const textSchema = `{
  "type": "object",
  "properties": {
    "text": {"type": "string"}
  }
}`

const headingSchema = `{
  "type": "object",
  "properties": {
    "text":  {"type": "string"},
    "level": {"type": "string", "enum": ["h1", "h2", "h3", "h4", "h5", "h6"]}
  }
}`

const buttonSchema = `{
  "type": "object",
  "properties": {
    "text":    {"type": "string"},
    "variant": {"type": "string"},
    "href":    {"type": "string"}
  }
}`

const imageSchema = `{
  "type": "object",
  "properties": {
    "src": {"type": "string"},
    "alt": {"type": "string"}
  }
}`

const layoutSchema = `{
  "type": "object"
}`

const columnSchema = `{
  "type": "object",
  "properties": {
    "width": {"type": "string"}
  }
}`

const navbarSchema = `{
  "type": "object",
  "properties": {
    "links": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text", "url"],
        "properties": {
          "text": {"type": "string"},
          "url":  {"type": "string"}
        }
      }
    }
  }
}`

const footerSchema = `{
  "type": "object",
  "properties": {
    "copyright": {"type": "string"}
  }
}`

const formSchema = `{
  "type": "object",
  "properties": {
    "action": {"type": "string"},
    "method": {"type": "string", "enum": ["get", "post"]}
  }
}`

const inputSchema = `{
  "type": "object",
  "properties": {
    "type":        {"type": "string"},
    "placeholder": {"type": "string"},
    "label":       {"type": "string"}
  }
}`

const textareaSchema = `{
  "type": "object",
  "properties": {
    "rows":        {"type": "integer", "minimum": 1},
    "placeholder": {"type": "string"},
    "label":       {"type": "string"}
  }
}`

var builtinSchemas = map[model.ComponentType]string{
	model.TypeText:      textSchema,
	model.TypeHeading:   headingSchema,
	model.TypeButton:    buttonSchema,
	model.TypeImage:     imageSchema,
	model.TypeContainer: layoutSchema,
	model.TypeRow:       layoutSchema,
	model.TypeColumn:    columnSchema,
	model.TypeCard:      layoutSchema,
	model.TypeNavbar:    navbarSchema,
	model.TypeFooter:    footerSchema,
	model.TypeForm:      formSchema,
	model.TypeInput:     inputSchema,
	model.TypeTextarea:  textareaSchema,
}
