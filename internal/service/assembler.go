package service

import (
	"cmp"
	"slices"

	"github-profile-miner/internal/domain"

	"github.com/google/go-github/v53/github"
)

// TopRepoLimit 每个档案保留的仓库数量
const TopRepoLimit = 5

// AssembleProfile 合并 GitHub 返回的数据和增强结果，生成归一化档案
// 缺失的数值字段为 0，缺失的字符串字段为空串，可空字段保持 nil
func AssembleProfile(user *github.User, repos []*github.Repository, lang domain.LanguageResult, sentiment *float64) *domain.Profile {
	return &domain.Profile{
		Username:     user.GetLogin(),
		Name:         user.GetName(),
		Bio:          user.Bio,
		BioLanguage:  lang.String(),
		BioSentiment: sentiment,
		PublicRepos:  user.GetPublicRepos(),
		Followers:    user.GetFollowers(),
		Following:    user.GetFollowing(),
		AvatarURL:    user.GetAvatarURL(),
		Repositories: TopRepositories(repos, TopRepoLimit),
	}
}

// TopRepositories 按 star 数降序 (稳定排序，同分保持 API 原始顺序) 取前 limit 个
func TopRepositories(repos []*github.Repository, limit int) []domain.Repository {
	sorted := make([]*github.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	slices.SortStableFunc(sorted, func(a, b *github.Repository) int {
		return cmp.Compare(b.GetStargazersCount(), a.GetStargazersCount())
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	result := make([]domain.Repository, 0, len(sorted))
	for i, r := range sorted {
		result = append(result, domain.Repository{
			Position:    i,
			Name:        r.GetName(),
			Description: r.Description,
			Stars:       r.GetStargazersCount(),
			Language:    r.Language,
			HTMLURL:     r.GetHTMLURL(),
		})
	}
	return result
}
