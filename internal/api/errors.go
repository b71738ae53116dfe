package api

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"sort"

	"github.com/facet-api/facet/internal/encoding"
	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/relationships"
	"github.com/facet-api/facet/internal/validation"
)

// Stable error codes carried in every error response detail
const (
	CodeResourceNotFound = "RESOURCE_NOT_FOUND"
	CodeParamsNotValid   = "PARAMS_NOT_VALID"
	CodeBodyNotValid     = "BODY_NOT_VALID"
	CodePathNotFound     = "PATH_NOT_FOUND"
	CodeServerError      = "SERVER_ERROR"
)

// Error is the API-level error shape: an HTTP status, a stable code, a
// human-readable detail and, for validation failures, the per-field
// violations.
type Error struct {
	Status     int
	Code       string
	Detail     string
	Violations *validation.Errors
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Detail
}

// NotFound reports a missing resource
func NotFound(detail string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeResourceNotFound, Detail: detail}
}

// ParamsNotValid reports a malformed path or query parameter
func ParamsNotValid(detail string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeParamsNotValid, Detail: detail}
}

// BodyNotValid reports a rejected request payload
func BodyNotValid(detail string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeBodyNotValid, Detail: detail}
}

// PathNotFound reports a URL that maps to nothing
func PathNotFound() *Error {
	return &Error{Status: http.StatusNotFound, Code: CodePathNotFound, Detail: "the requested URL does not exist"}
}

// ServerError reports an unexpected internal failure. The underlying cause
// is logged, never exposed.
func ServerError() *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeServerError, Detail: "something went wrong on the server"}
}

// Convert maps an internal error onto the API error taxonomy. Anything
// unrecognized becomes a server error.
func Convert(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var violations *validation.Errors
	if errors.As(err, &violations) {
		e := BodyNotValid("check the payload fields")
		e.Violations = violations
		return e
	}

	switch {
	case errors.Is(err, query.ErrNotFound):
		return NotFound(err.Error())
	case errors.Is(err, query.ErrUnknownKind):
		return PathNotFound()
	case errors.Is(err, query.ErrUniqueViolation):
		return &Error{Status: http.StatusConflict, Code: CodeBodyNotValid, Detail: err.Error()}
	case errors.Is(err, relationships.ErrUnknownRelationship),
		errors.Is(err, relationships.ErrExpansionTooDeep):
		return ParamsNotValid(err.Error())
	case errors.Is(err, encoding.ErrUnsupportedFormat):
		return &Error{Status: http.StatusNotAcceptable, Code: CodeParamsNotValid, Detail: err.Error()}
	default:
		return ServerError()
	}
}

// errorBody is the JSON shape of an error response
type errorBody struct {
	Detail     string              `json:"detail"`
	Violations map[string][]string `json:"violations,omitempty"`
}

// Encode renders the error in the requested format, returning the body and
// its content type. XML encoding cannot fail for this shape, but any
// unknown format falls back to JSON so errors always reach the client.
func (e *Error) Encode(format encoding.Format) ([]byte, string) {
	if format == encoding.FormatXML {
		return e.encodeXML(), encoding.FormatXML.ContentType()
	}

	body := errorBody{Detail: e.Error()}
	if e.Violations != nil {
		body.Violations = e.Violations.Fields
	}
	data, err := json.Marshal(body)
	if err != nil {
		data = []byte(`{"detail":"` + CodeServerError + `: something went wrong on the server"}`)
	}
	return data, encoding.FormatJSON.ContentType()
}

func (e *Error) encodeXML() []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{
		Name: xml.Name{Local: "error"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "code"}, Value: e.Code}},
	}
	_ = enc.EncodeToken(root)

	detail := xml.StartElement{Name: xml.Name{Local: "detail"}}
	_ = enc.EncodeToken(detail)
	_ = enc.EncodeToken(xml.CharData(e.Error()))
	_ = enc.EncodeToken(detail.End())

	if e.Violations != nil {
		wrapper := xml.StartElement{Name: xml.Name{Local: "violations"}}
		_ = enc.EncodeToken(wrapper)

		fields := make([]string, 0, len(e.Violations.Fields))
		for name := range e.Violations.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, name := range fields {
			for _, message := range e.Violations.Fields[name] {
				field := xml.StartElement{
					Name: xml.Name{Local: "field"},
					Attr: []xml.Attr{{Name: xml.Name{Local: "name"}, Value: name}},
				}
				_ = enc.EncodeToken(field)
				_ = enc.EncodeToken(xml.CharData(message))
				_ = enc.EncodeToken(field.End())
			}
		}
		_ = enc.EncodeToken(wrapper.End())
	}

	_ = enc.EncodeToken(root.End())
	_ = enc.Flush()
	return buf.Bytes()
}
