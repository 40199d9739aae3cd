// Package i18n provides the engine-facing display strings in the three
// supported story languages. Lookup is a pure function over a static table.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is a supported story language code.
type Language string

const (
	Korean   Language = "ko"
	English  Language = "en"
	Japanese Language = "ja"
)

// DefaultLanguage is used when a preference cannot be matched.
const DefaultLanguage = Korean

var matcher = language.NewMatcher([]language.Tag{
	language.Korean, // first entry is the fallback
	language.English,
	language.Japanese,
})

// Match resolves a free-form language preference ("en-US", "jp", "ko-KR")
// to a supported Language.
func Match(pref string) Language {
	// "jp" is a common shorthand that language.Parse rejects.
	if strings.EqualFold(pref, "jp") {
		return Japanese
	}
	tag, err := language.Parse(pref)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, _ := matcher.Match(tag)
	switch idx {
	case 1:
		return English
	case 2:
		return Japanese
	default:
		return Korean
	}
}

// Name returns the English name of the language, as embedded in prompts.
func (l Language) Name() string {
	switch l {
	case English:
		return "ENGLISH"
	case Japanese:
		return "JAPANESE"
	default:
		return "KOREAN"
	}
}

var translations = map[string]map[Language]string{
	"retry":              {Korean: "재시도", English: "Retry", Japanese: "再試行"},
	"day":                {Korean: "{n}일차", English: "Day {n}", Japanese: "{n}日目"},
	"succeeded":          {Korean: "성공", English: "succeeded", Japanese: "成功"},
	"failed":             {Korean: "실패", English: "failed", Japanese: "失敗"},
	"unspecifiedSkill":   {Korean: "미지정 기술", English: "Unspecified Skill", Japanese: "未指定のスキル"},
	"n/a":                {Korean: "해당 없음", English: "N/A", Japanese: "該当なし"},
	"understood":         {Korean: "알겠습니다.", English: "Understood.", Japanese: "わかりました。"},
	"noSummary":          {Korean: "아직 요약이 없습니다.", English: "No summary yet.", Japanese: "まだ要約はありません。"},
	"summaryUnavailable": {Korean: "요약을 사용할 수 없습니다.", English: "Summary unavailable.", Japanese: "要約は利用できません。"},
	"apiKeyNotSet":       {Korean: "API 키가 설정되지 않았습니다.", English: "API key is not set.", Japanese: "APIキーが設定されていません。"},
	"saveOnlyDuringPlay": {Korean: "플레이 중에만 저장할 수 있습니다.", English: "You can only save during play.", Japanese: "プレイ中のみ保存できます。"},
	"saveFailed":         {Korean: "저장에 실패했습니다.", English: "Failed to save the game.", Japanese: "保存に失敗しました。"},
	"noSaveFile":         {Korean: "저장된 게임이 없습니다.", English: "No saved game found.", Japanese: "保存されたゲームがありません。"},
	"loadFailedNoApiKey": {Korean: "API 키가 없어 불러올 수 없습니다.", English: "Cannot load: no API key available.", Japanese: "APIキーがないため読み込めません。"},
	"loadFailedCorrupt":  {Korean: "저장 파일이 손상되어 불러올 수 없습니다.", English: "Cannot load: save data is corrupt.", Japanese: "セーブデータが破損しているため読み込めません。"},
	"serviceError": {
		Korean:   "오류: AI 연결에 실패했습니다. 잠시 후 다시 시도해 주세요.",
		English:  "Error: Failed to reach the AI. Please try again shortly.",
		Japanese: "エラー：AIへの接続に失敗しました。しばらくしてから再試行してください。",
	},
	"malformedResponse": {
		Korean:   "오류: AI 응답을 처리할 수 없습니다. 형식이 올바르지 않습니다.",
		English:  "Error: Could not process the AI response. The format may be incorrect.",
		Japanese: "エラー：AIの応答を処理できません。形式が正しくない可能性があります。",
	},
}

// T looks up a display string by key. Unknown keys return the key itself
// so a missing entry is visible rather than silent.
func T(key string, lang Language) string {
	entry, ok := translations[key]
	if !ok {
		return key
	}
	if s, ok := entry[lang]; ok {
		return s
	}
	return entry[DefaultLanguage]
}

// Tf looks up a display string and substitutes {name} placeholders from
// sequential name/value pairs.
func Tf(key string, lang Language, pairs ...string) string {
	s := T(key, lang)
	for i := 0; i+1 < len(pairs); i += 2 {
		s = strings.ReplaceAll(s, "{"+pairs[i]+"}", pairs[i+1])
	}
	return s
}
