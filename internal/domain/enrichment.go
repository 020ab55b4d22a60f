package domain

// LanguageOutcome 语言检测结果的类别
type LanguageOutcome int

const (
	// LanguageAbsent bio 为空，没有可检测的内容
	LanguageAbsent LanguageOutcome = iota
	// LanguageDetected 检测成功
	LanguageDetected
	// LanguageUnknown 检测失败 (例如纯数字、纯表情)
	LanguageUnknown
)

// 落库时使用的哨兵值
const (
	BioLanguageAbsent  = "N/A"
	BioLanguageUnknown = "Unknown"
)

// LanguageResult 把检测失败建模成一个显式的分支，而不是错误
type LanguageResult struct {
	Outcome LanguageOutcome
	Code    string // 仅在 LanguageDetected 时有值，小写 ISO 639-1
}

func DetectedLanguage(code string) LanguageResult {
	return LanguageResult{Outcome: LanguageDetected, Code: code}
}

func UnknownLanguage() LanguageResult {
	return LanguageResult{Outcome: LanguageUnknown}
}

func AbsentLanguage() LanguageResult {
	return LanguageResult{Outcome: LanguageAbsent}
}

// String 返回写入 bio_language 列的值
func (r LanguageResult) String() string {
	switch r.Outcome {
	case LanguageDetected:
		return r.Code
	case LanguageUnknown:
		return BioLanguageUnknown
	default:
		return BioLanguageAbsent
	}
}
