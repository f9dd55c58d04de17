package auth

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/acevedod1974/gradebook/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	// password policy
	pwdMinLen     = 8
	pwdMinLenText = "password must contain at least 8 characters"

	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimText = "password cannot be similar to the email address"
)

type (
	// CredentialStore keeps the per-student password map keyed by email.
	// Passwords are stored in clear: the backup envelope round-trips them
	// verbatim, so hashing here would break the export/import contract.
	CredentialStore interface {
		SetPassword(email, password string) error
		GetPassword(email string) (string, error)
		DeletePassword(email string) error
		AllPasswords() (map[string]string, error)
		ReplaceAll(passwords map[string]string) error
	}

	Service struct {
		store CredentialStore
		conf  *core.Config
	}

	// Analysis reports credential hygiene across all students.
	Analysis struct {
		Missing  []string `json:"missing"`  // emails with an empty password
		Repeated []string `json:"repeated"` // passwords shared by 2+ students
		Weak     []string `json:"weak"`     // emails whose password fails the policy
	}
)

func NewService(store CredentialStore, conf *core.Config) *Service {
	return &Service{store: store, conf: conf}
}

// Authenticate resolves credentials to an Identity. The teacher account comes
// from configuration; students are matched against the credential store.
func (svc *Service) Authenticate(email, password string) (Identity, error) {
	email = core.CleanString(email, true /* lower */)

	if svc.conf.Teacher.Password != "" && email == core.CleanString(svc.conf.Teacher.Email, true) {
		if password != svc.conf.Teacher.Password {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{Email: email, Role: RoleTeacher}, nil
	}

	stored, err := svc.store.GetPassword(email)
	if err != nil {
		if core.IsNotFound(err) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, errors.Wrap(err, "getting password")
	}
	if stored == "" || stored != password {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{Email: email, Role: RoleStudent}, nil
}

// ChangePassword applies the password policy and stores the new password.
func (svc *Service) ChangePassword(email, password string) error {
	email = core.CleanString(email, true /* lower */)
	if msg := checkPassword(password, email); msg != "" {
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "password", Error: msg})
	}
	return svc.store.SetPassword(email, password)
}

// Analyze inspects the whole credential map; mirrors what the password
// analysis screen reports.
func (svc *Service) Analyze() (Analysis, error) {
	passwords, err := svc.store.AllPasswords()
	if err != nil {
		return Analysis{}, errors.Wrap(err, "listing passwords")
	}

	analysis := Analysis{
		Missing:  []string{},
		Repeated: []string{},
		Weak:     []string{},
	}
	seen := make(map[string]int, len(passwords))
	for email, pwd := range passwords {
		if pwd == "" {
			analysis.Missing = append(analysis.Missing, email)
			continue
		}
		seen[pwd]++
		if msg := checkPassword(pwd, email); msg != "" {
			analysis.Weak = append(analysis.Weak, email)
		}
	}
	for pwd, count := range seen {
		if count > 1 {
			analysis.Repeated = append(analysis.Repeated, pwd)
		}
	}
	sort.Strings(analysis.Missing)
	sort.Strings(analysis.Repeated)
	sort.Strings(analysis.Weak)
	return analysis, nil
}

// checkPassword applies the password policy:
// - minLen: 8
// - not all numeric
// - not similar to the email address
// It returns an empty string when the password passes.
func checkPassword(pwd, email string) string {
	if len(pwd) < pwdMinLen {
		return pwdMinLenText
	}

	digitCount := 0
	for _, char := range pwd {
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(pwd) {
		return pwdNotAllNumText
	}

	if similarity(pwd, email) >= pwdMaxSim {
		return pwdAttrSimText
	}
	return ""
}

func similarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
}
