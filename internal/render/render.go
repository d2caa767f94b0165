package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/techlab/whatsapp-gateway/internal/model"
)

var (
	ErrModelMismatch      = errors.New("template model mismatch")
	ErrUnknownRoot        = errors.New("unknown placeholder root")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidPlaceholder = errors.New("invalid placeholder")
	ErrNoRecord           = errors.New("no record bound")
)

var placeholderRE = regexp.MustCompile(`\$\{([^}]+)\}`)

// Renderer substitutes ${root.path} placeholders in template bodies. The
// user and company roots are fixed at construction; the object root comes
// from the record snapshot handed to each render.
type Renderer struct {
	user    UserScope
	company CompanyScope
}

func New(user UserScope, company CompanyScope) *Renderer {
	return &Renderer{user: user, company: company}
}

// Render renders tpl against rec. The only hard failure is a model
// mismatch; any placeholder that cannot be resolved degrades to an inline
// [Error: ...] marker so one bad field never loses the whole message.
func (r *Renderer) Render(tpl *model.Template, rec *model.RecordRef) (string, error) {
	if rec != nil && rec.Model != "" && tpl.ModelName != "" && rec.Model != tpl.ModelName {
		return "", fmt.Errorf("%w: template is for model %s, but record is from %s",
			ErrModelMismatch, tpl.ModelName, rec.Model)
	}

	var object Scope
	if rec != nil && rec.Fields != nil {
		object = Fields(rec.Fields)
	}
	return r.RenderBody(tpl.Body, object), nil
}

// RenderBody walks the body once, replacing each placeholder span with its
// resolved value. Output is assembled from the original body's spans, so
// text produced by a substitution is never scanned again.
func (r *Renderer) RenderBody(body string, object Scope) string {
	matches := placeholderRE.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	last := 0
	for _, m := range matches {
		b.WriteString(body[last:m[0]])
		expr := body[m[2]:m[3]]
		value, err := r.resolve(expr, object)
		if err != nil {
			b.WriteString("[Error: ")
			b.WriteString(err.Error())
			b.WriteString("]")
		} else {
			b.WriteString(value)
		}
		last = m[1]
	}
	b.WriteString(body[last:])
	return b.String()
}

func (r *Renderer) resolve(expr string, object Scope) (string, error) {
	parts := strings.Split(expr, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: %s", ErrInvalidPlaceholder, expr)
	}

	var current interface{}
	switch parts[0] {
	case "object":
		if object == nil {
			return "", ErrNoRecord
		}
		current = object
	case "user":
		current = Scope(r.user)
	case "company":
		current = Scope(r.company)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownRoot, parts[0])
	}

	for _, part := range parts[1:] {
		scope, ok := asScope(current)
		if !ok {
			return "", fmt.Errorf("%w %q on %s", ErrUnknownField, part, parts[0])
		}
		value, ok := scope.Field(part)
		if !ok {
			return "", fmt.Errorf("%w %q on %s", ErrUnknownField, part, parts[0])
		}
		if value == nil {
			return "", nil
		}
		current = value
	}
	return stringify(current), nil
}

func asScope(v interface{}) (Scope, bool) {
	switch t := v.(type) {
	case Scope:
		return t, true
	case map[string]interface{}:
		return Fields(t), true
	}
	return nil, false
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

// ValidateBody is the save-time syntax check: every placeholder must sit
// under one of the three known roots.
func ValidateBody(body string) error {
	for _, ph := range placeholderRE.FindAllString(body, -1) {
		if strings.HasPrefix(ph, "${object.") ||
			strings.HasPrefix(ph, "${user.") ||
			strings.HasPrefix(ph, "${company.") {
			continue
		}
		return fmt.Errorf("%w: %s (use ${object.field}, ${user.field} or ${company.field})",
			ErrInvalidPlaceholder, ph)
	}
	return nil
}

// Placeholders lists the statically known placeholder expressions. Object
// fields depend on the caller's snapshot, so only the root is advertised.
func Placeholders() []string {
	out := []string{"${object.<field>}"}
	for _, f := range UserFieldNames() {
		out = append(out, "${user."+f+"}")
	}
	for _, f := range CompanyFieldNames() {
		out = append(out, "${company."+f+"}")
	}
	return out
}
