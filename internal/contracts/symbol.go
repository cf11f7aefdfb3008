package contracts

import "strings"

// symbolAliases 사용자 입력 별칭 → Yahoo 티커
var symbolAliases = map[string]string{
	"GSPC":   "^GSPC",
	"SPX":    "^GSPC",
	"SP500":  "^GSPC",
	"SPX500": "^GSPC",
}

// CanonicalSymbol trims, upper-cases and resolves aliases (SPX → ^GSPC)
// ⭐ SSOT: 캐시 키, 저장소, 아카이브는 모두 이 심볼을 사용
func CanonicalSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if mapped, ok := symbolAliases[s]; ok {
		return mapped
	}
	return s
}
