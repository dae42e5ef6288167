package activation

import (
	"unicode"
	"unicode/utf8"
)

// Partition splits args into environment variables and main-parameter fields
// per the partitioning rule: a key whose first character is upper-case
// becomes an environment variable; every other key is a main-parameter
// field. The rule depends only on the key's first rune, never on
// declaredEnv — declaredEnv is accepted for callers that want to cross-check
// the action's declared environment keys against the partition, but every
// declared key must already satisfy the upper-case rule to appear in env.
//
// The union of the two returned maps equals args; every key appears in
// exactly one of them.
func Partition(args map[string]any, declaredEnv map[string]bool) (env, params map[string]any) {
	env = make(map[string]any, len(declaredEnv))
	params = make(map[string]any, len(args))

	for k, v := range args {
		if isEnvKey(k) {
			env[k] = v
			continue
		}
		params[k] = v
	}

	return env, params
}

// isEnvKey reports whether k's first rune is upper-case, per the
// partitioning rule. A key with no runes (empty string) is not an
// environment variable.
func isEnvKey(k string) bool {
	r, size := utf8.DecodeRuneInString(k)
	if size == 0 {
		return false
	}
	return unicode.IsUpper(r)
}
