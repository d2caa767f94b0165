package render

// Scope resolves one level of a placeholder path. Typed scopes enumerate
// their fields explicitly; snapshot maps pass through as-is.
type Scope interface {
	Field(name string) (interface{}, bool)
}

// Fields adapts a record snapshot to a Scope. Nested maps resolve as
// nested scopes during the path walk.
type Fields map[string]interface{}

func (f Fields) Field(name string) (interface{}, bool) {
	v, ok := f[name]
	return v, ok
}

// UserScope exposes the acting user under the user. placeholder root.
type UserScope struct {
	Name  string
	Email string
	Phone string
}

func (u UserScope) Field(name string) (interface{}, bool) {
	switch name {
	case "name":
		return u.Name, true
	case "email":
		return u.Email, true
	case "phone":
		return u.Phone, true
	}
	return nil, false
}

func UserFieldNames() []string {
	return []string{"name", "email", "phone"}
}

// CompanyScope exposes the acting company under the company. root.
type CompanyScope struct {
	Name      string
	Email     string
	Phone     string
	Website   string
	VAT       string
	Signature string
}

func (c CompanyScope) Field(name string) (interface{}, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "phone":
		return c.Phone, true
	case "website":
		return c.Website, true
	case "vat":
		return c.VAT, true
	case "signature":
		return c.Signature, true
	}
	return nil, false
}

func CompanyFieldNames() []string {
	return []string{"name", "email", "phone", "website", "vat", "signature"}
}
