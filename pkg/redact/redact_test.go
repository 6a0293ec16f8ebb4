package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	cases := map[string]string{
		"foobar@example.com":  "fo***@example.com",
		"ab@ex.com":           "***@ex.com",
		"user@":               "us***@",
		"no-at":               "***",
		"a@b@c":               "***",
		"абвгд@пример.рф":     "аб***@пример.рф",
		"abc.def+tag@EXAMPLE": "ab***@EXAMPLE",
	}

	for in, want := range cases {
		require.Equal(t, want, Email(in), in)
	}
}

func TestURL(t *testing.T) {
	require.Equal(t, "postgres://user:xxxxx@db:5432/blog?sslmode=disable",
		URL("postgres://user:secret@db:5432/blog?sslmode=disable"))
	require.Equal(t, "mongodb://mongo:27017/blog", URL("mongodb://mongo:27017/blog"))
	require.Equal(t, "redis://:xxxxx@cache:6379/0", URL("redis://:pa55@cache:6379/0"))
	require.Equal(t, "", URL(""))
	require.Equal(t, "***", URL("not a url"))
}
