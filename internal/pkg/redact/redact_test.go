package redact

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

// TestEmail_Masking — табличные тесты маскирования e-mail: обычные адреса,
// короткая локальная часть, невалидный формат (нет '@' либо их несколько),
// сохранение домена и многобайтовые локали.
func TestEmail_Masking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "long_local", in: "foobar@example.com", want: "fo***@example.com"},
		{name: "plus_tag_and_domain_case", in: "abc.def+tag@EXAMPLE.org", want: "ab***@EXAMPLE.org"},
		{name: "short_local_hidden", in: "ab@ex.com", want: "***@ex.com"},
		{name: "single_char_local", in: "a@ex.com", want: "***@ex.com"},
		{name: "empty_local", in: "@domain", want: "***@domain"},
		{name: "empty_domain", in: "user@", want: "us***@"},
		{name: "no_at", in: "no-at-here", want: "***"},
		{name: "two_ats", in: "a@b@c", want: "***"},
		{name: "empty_string", in: "", want: "***"},
		{name: "cyrillic_local", in: "юзер@пример.рф", want: "юз***@пример.рф"},
		{name: "cyrillic_local_two_runes", in: "юз@домен", want: "***@домен"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Email(tt.in)
			require.Equal(t, tt.want, got)
			// Усечение не должно порождать битый UTF-8 в логах.
			require.True(t, utf8.ValidString(got))
		})
	}
}

// TestRedactedLiterals — заглушки для токенов и паролей неизменны.
func TestRedactedLiterals(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[REDACTED_TOKEN]", Token())
	require.Equal(t, "[REDACTED_PASSWORD]", Password())
}
