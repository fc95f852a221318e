package access

import "strings"

// DefaultAdminEmails — админы, которым разрешён callable-эндпоинт, если конфиг не задал своих.
var DefaultAdminEmails = []string{"saums06@gmail.com"}

// AllowList — неизменяемый набор email. Сравнение точное, без приведения регистра.
type AllowList struct {
	emails map[string]struct{}
}

func NewAllowList(emails ...string) AllowList {
	m := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.TrimSpace(e); e != "" {
			m[e] = struct{}{}
		}
	}
	return AllowList{emails: m}
}

func (a AllowList) Allows(email string) bool {
	if email == "" {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

func (a AllowList) Len() int { return len(a.emails) }
