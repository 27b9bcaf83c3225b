// redact маскирует чувствительные значения перед записью в логи:
// email усечён до первых символов локальной части, токены и пароли
// в логи не попадают никогда.
package redact

import "strings"

// Email возвращает замаскированный e-mail для логов.
//
// Строка с числом '@', отличным от одного, считается невалидной и
// редактируется целиком в "***". Локальная часть усечена до первых двух
// символов (по рунам, чтобы не резать многобайтовые буквы посреди кодовой
// точки) + "***"; локаль из двух и менее символов скрывается полностью.
// Домен остаётся как есть — он полезен при отладке и сам по себе не секрет.
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	at := strings.IndexByte(s, '@')
	local, domain := s[:at], s[at+1:]

	runes := []rune(local)
	if len(runes) > 2 {
		local = string(runes[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token и Password — литералы-заглушки: сырые значения не логируются никогда.
func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
