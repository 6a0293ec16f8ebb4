package cache

import (
	"net/url"
	"sort"
	"strings"
)

// Kind — вид сущности, первый сегмент ключа. Значения не пересекаются по префиксу
// с экранированными идентификаторами, поэтому ключи разных видов не совпадают.
type Kind string

const (
	KindUser        Kind = "user"
	KindPost        Kind = "post"
	KindSession     Kind = "session"
	KindPostList    Kind = "posts"
	KindPostViews   Kind = "post:views"
	KindLeaderboard Kind = "leaderboard"
)

// Param — элемент query-дескриптора ключа.
type Param struct {
	Name  string
	Value string
}

// Key строит ключ "<kind>:<id>" или "<kind>:<id>?<name>=<value>&...".
// id, имена и значения экранируются url.QueryEscape, параметры сортируются,
// поэтому функция чистая и инъективная: разные входы дают разные ключи.
func Key(kind Kind, id string, query ...Param) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(url.QueryEscape(id))

	if len(query) == 0 {
		return b.String()
	}

	params := make([]Param, len(query))
	copy(params, query)
	sort.Slice(params, func(i, j int) bool {
		if params[i].Name != params[j].Name {
			return params[i].Name < params[j].Name
		}

		return params[i].Value < params[j].Value
	})

	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}

		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}

	return b.String()
}
