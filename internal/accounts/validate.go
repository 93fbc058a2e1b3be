package accounts

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"trading-journal/internal/types"
)

// platformFields are the credentials each platform cannot connect without
var platformFields = map[types.Platform][]string{
	types.PlatformMT4:         {"Login", "Password", "Server"},
	types.PlatformMT5:         {"Login", "Password", "Server"},
	types.PlatformCTrader:     {"AccessToken", "AccountNumber"},
	types.PlatformDXtrade:     {"Username", "Domain", "Password", "AccountNumber"},
	types.PlatformMatchTrader: {"Email", "Password", "BrokerID"},
}

func credentialValue(c types.Credentials, field string) string {
	switch field {
	case "Login":
		return c.Login
	case "Password":
		return c.Password
	case "Server":
		return c.Server
	case "AccountNumber":
		return c.AccountNumber
	case "AccessToken":
		return c.AccessToken
	case "Username":
		return c.Username
	case "Domain":
		return c.Domain
	case "Email":
		return c.Email
	case "BrokerID":
		return c.BrokerID
	}
	return ""
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(connectRequestRules, types.ConnectRequest{})
	return v
}

func connectRequestRules(sl validator.StructLevel) {
	req := sl.Current().Interface().(types.ConnectRequest)
	for _, field := range platformFields[req.Platform] {
		val := credentialValue(req.Credentials, field)
		if strings.TrimSpace(val) == "" {
			sl.ReportError(val, "credentials."+lowerFirst(field), field, "required", "")
		}
	}
	if req.Platform == types.PlatformMatchTrader && req.Credentials.Email != "" && !strings.Contains(req.Credentials.Email, "@") {
		sl.ReportError(req.Credentials.Email, "credentials.email", "Email", "email", "")
	}
}

// validateConnect normalizes the platform alias and checks the request
func (s *Service) validateConnect(req types.ConnectRequest) (types.ConnectRequest, error) {
	if p, err := types.ParsePlatform(string(req.Platform)); err == nil {
		req.Platform = p
	}
	req.Name = strings.TrimSpace(req.Name)

	err := s.validate.Struct(req)
	if err == nil {
		return req, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return req, err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldName(fe), Rule: fe.Tag()})
	}
	return req, out
}

// fieldName reports "platform" or "credentials.login" instead of Go struct paths
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	if strings.HasPrefix(ns, "credentials.") {
		return ns
	}
	return lowerFirst(ns)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if s == "BrokerID" {
		return "brokerId"
	}
	return strings.ToLower(s[:1]) + s[1:]
}
