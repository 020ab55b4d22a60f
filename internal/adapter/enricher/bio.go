package enricher

import (
	"math"
	"strings"

	"github-profile-miner/internal/domain"

	"github.com/jonreiter/govader"
	"github.com/pemistahl/lingua-go"
)

// 候选语言集合
// 集合固定，同样的输入永远得到同样的输出
var candidateLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Turkish,
	lingua.Arabic,
	lingua.Hindi,
	lingua.Indonesian,
	lingua.Vietnamese,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
}

// BioEnricher 实现了 port.Enricher 接口
type BioEnricher struct {
	detector lingua.LanguageDetector
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewBioEnricher 初始化语言检测器和 VADER 情感词典
func NewBioEnricher() *BioEnricher {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(candidateLanguages...).
		Build()

	return &BioEnricher{
		detector: detector,
		analyzer: govader.NewSentimentIntensityAnalyzer(),
	}
}

// DetectLanguage 检测 bio 的语言
// 空 bio -> N/A；检测不出来 (包括检测器内部 panic) -> Unknown
func (e *BioEnricher) DetectLanguage(bio *string) (result domain.LanguageResult) {
	if domain.IsBlank(bio) {
		return domain.AbsentLanguage()
	}

	defer func() {
		if r := recover(); r != nil {
			result = domain.UnknownLanguage()
		}
	}()

	lang, ok := e.detector.DetectLanguageOf(*bio)
	if !ok {
		return domain.UnknownLanguage()
	}
	code := strings.ToLower(lang.IsoCode639_1().String())
	if code == "" {
		return domain.UnknownLanguage()
	}
	return domain.DetectedLanguage(code)
}

// Sentiment 基于词典的情感极性 (VADER compound)，范围 [-1, 1]
func (e *BioEnricher) Sentiment(bio *string) *float64 {
	if domain.IsBlank(bio) {
		return nil
	}
	score := e.analyzer.PolarityScores(*bio).Compound
	score = math.Max(-1, math.Min(1, score))
	return &score
}
