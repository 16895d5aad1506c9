package validate

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var serviceNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ReservedNames are the infrastructure's own services. A connected service
// may not take any of them.
var ReservedNames = []string{
	"traefik",
	"mongodb",
	"postgres",
	"redis",
	"dnsmasq",
	"localhost",
}

// rules is the shared validator instance. Custom tags are registered in init.
var rules *validator.Validate

func init() {
	rules = validator.New()
	_ = rules.RegisterValidation("servicename", isServiceName)
}

func isServiceName(fl validator.FieldLevel) bool {
	return serviceNamePattern.MatchString(fl.Field().String())
}

// IsReserved reports whether name belongs to the infrastructure.
func IsReserved(name string) bool {
	for _, r := range ReservedNames {
		if r == name {
			return true
		}
	}
	return false
}

// Name checks a service name: non-empty, at most 63 characters, lowercase
// letters, digits and hyphens, starting with a letter, and not reserved.
func Name(name string) error {
	if err := rules.Var(name, "required,max=63,servicename"); err != nil {
		return fail("name", name, reasonFor(err, "must start with a letter and contain only a-z, 0-9 and -"))
	}
	if IsReserved(name) {
		return fail("name", name, "reserved for infrastructure service")
	}
	return nil
}

// Domain checks a DNS name made of valid labels.
func Domain(domain string) error {
	if err := rules.Var(domain, "required,max=253,hostname_rfc1123"); err != nil {
		return fail("domain", domain, reasonFor(err, "must be a sequence of DNS labels"))
	}
	for _, label := range strings.Split(domain, ".") {
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return fail("domain", domain, "labels may not start or end with a hyphen")
		}
	}
	return nil
}

// Port checks a TCP port. Privileged ports pass with a warning.
func Port(port int) (warning string, err error) {
	if err := rules.Var(port, "min=1,max=65535"); err != nil {
		return "", fail("port", strconv.Itoa(port), "must be between 1 and 65535")
	}
	if port < 1024 {
		return "port " + strconv.Itoa(port) + " is in the privileged range (<1024)", nil
	}
	return "", nil
}

// reasonFor turns the first failed validator tag into a sentence.
func reasonFor(err error, pattern string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return pattern
	}
}
