// redact маскирует чувствительные данные перед записью в лог:
// e-mail пользователя и учётные данные в строках подключения.
package redact

import (
	"net/url"
	"strings"
)

// Email оставляет два первых символа локальной части и домен.
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	if lr := []rune(local); len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// URL убирает пароль из DSN (postgres://, mongodb://, redis://).
// Строка, которую не удалось разобрать, заменяется целиком.
func URL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "***"
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}

	return u.String()
}
