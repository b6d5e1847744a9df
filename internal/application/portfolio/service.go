package portfolio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/apperror"
	"estate-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ResultCreated = "created"
	ResultUpdated = "updated"
	ResultSkipped = "skipped"
)

// ImportOptions mirrors the knobs of a GitHub import.
type ImportOptions struct {
	PublishNow         bool
	PublishFrom        *time.Time
	PublishTo          *time.Time
	ImportTopics       bool
	ImportPrimaryLang  bool
	ImportAllLanguages bool
	IncludePrivate     bool
	SkipExisting       bool
	FetchReadme        bool
}

// DefaultImportOptions are the defaults offered by the import form.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		PublishNow:        true,
		ImportTopics:      true,
		ImportPrimaryLang: true,
		SkipExisting:      true,
		FetchReadme:       true,
	}
}

type ImportResult struct {
	Status  string                   `json:"status"`
	Project *domain.PortfolioProject `json:"project"`
}

type ImportSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Service imports GitHub repositories into the website portfolio.
type Service struct {
	DB     *gorm.DB
	GitHub *GitHubClient
	Clock  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

var gitSuffix = regexp.MustCompile(`(?i)\.git$`)

// NormalizeOwnerRepo accepts "owner", "owner/repo", https URLs and git@ URLs; ".git" is stripped.
func NormalizeOwnerRepo(owner, repo string) (string, string) {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)

	var parts []string
	switch {
	case strings.HasPrefix(owner, "http://") || strings.HasPrefix(owner, "https://"):
		if u, err := url.Parse(owner); err == nil {
			parts = splitPath(u.Path)
		}
	case strings.HasPrefix(owner, "git@"):
		after := owner
		if i := strings.Index(owner, ":"); i >= 0 {
			after = owner[i+1:]
		}
		parts = splitPath(after)
	case strings.Contains(owner, "/") && repo == "":
		o, r, _ := strings.Cut(owner, "/")
		owner, repo = o, r
	}
	if len(parts) >= 1 {
		owner = parts[0]
	}
	if len(parts) >= 2 && repo == "" {
		repo = parts[1]
	}
	return strings.TrimSpace(owner), gitSuffix.ReplaceAllString(repo, "")
}

func splitPath(p string) []string {
	var out []string
	for _, x := range strings.Split(strings.Trim(p, "/"), "/") {
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

// ImportRepo imports one repository.
func (s *Service) ImportRepo(ctx context.Context, actor domain.Actor, owner, repo string, opts ImportOptions) (*ImportResult, error) {
	if !actor.Can(constants.ImportPortfolio) {
		return nil, apperror.ErrForbidden
	}
	owner, repo = NormalizeOwnerRepo(owner, repo)
	if owner == "" || repo == "" {
		return nil, ErrOwnerRepoRequired
	}
	meta, err := s.GitHub.GetRepo(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return s.upsert(ctx, *meta, opts)
}

// ImportAll imports every repository of owner and counts the outcomes.
func (s *Service) ImportAll(ctx context.Context, actor domain.Actor, owner string, opts ImportOptions) (*ImportSummary, error) {
	if !actor.Can(constants.ImportPortfolio) {
		return nil, apperror.ErrForbidden
	}
	owner, _ = NormalizeOwnerRepo(owner, "")
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	sum := &ImportSummary{}
	err := s.GitHub.EachOwnerRepo(ctx, owner, opts.IncludePrivate, func(meta RepoMeta) error {
		res, err := s.upsert(ctx, meta, opts)
		if err != nil {
			return err
		}
		switch res.Status {
		case ResultCreated:
			sum.Created++
		case ResultUpdated:
			sum.Updated++
		default:
			sum.Skipped++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("owner", owner).Int("created", sum.Created).Int("updated", sum.Updated).
		Int("skipped", sum.Skipped).Msg("portfolio: github import finished")
	return sum, nil
}

func (s *Service) collectTagNames(ctx context.Context, meta RepoMeta, opts ImportOptions) []string {
	owner, repo := meta.Owner.Login, meta.Name
	var names []string
	if opts.ImportTopics {
		topics := s.GitHub.Topics(ctx, owner, repo)
		if len(topics) == 0 {
			topics = meta.Topics
		}
		names = append(names, topics...)
	}
	if opts.ImportAllLanguages {
		names = append(names, s.GitHub.Languages(ctx, owner, repo)...)
	} else if opts.ImportPrimaryLang && meta.Language != "" {
		names = append(names, meta.Language)
	}
	return dedupeTags(names)
}

// upsert creates or updates the project for meta. GitHub calls happen before the transaction.
func (s *Service) upsert(ctx context.Context, meta RepoMeta, opts ImportOptions) (*ImportResult, error) {
	owner, repo := meta.Owner.Login, meta.Name
	fullName := meta.FullName
	if fullName == "" {
		fullName = owner + "/" + repo
	}
	repoURL := meta.HTMLURL
	if repoURL == "" {
		repoURL = "https://github.com/" + fullName
	}
	name := repo
	if name == "" {
		name = fullName
	}

	tagNames := s.collectTagNames(ctx, meta, opts)
	short := meta.Description
	longHTML := ""
	if opts.FetchReadme && owner != "" && repo != "" {
		branch := meta.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		longHTML = RewriteReadmeLinks(s.GitHub.ReadmeHTML(ctx, owner, repo), owner, repo, branch)
	}
	quarantine := strings.TrimSpace(longHTML) == ""
	if quarantine {
		tagNames = append(tagNames, NoReadmeTag, QuarantineTag)
	} else if short == "" {
		short = FirstParagraph(longHTML, SummaryMaxLen)
	}

	project := domain.PortfolioProject{
		Name:             name,
		RepoURL:          repoURL,
		GithubFullName:   &fullName,
		DescriptionShort: short,
		DescriptionLong:  longHTML,
		WebsitePublished: !quarantine && opts.PublishNow,
	}
	if !quarantine && !opts.PublishNow {
		project.PublishFrom = opts.PublishFrom
		project.PublishTo = opts.PublishTo
	}

	result := &ImportResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.PortfolioProject
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("github_full_name = ?", fullName).First(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if found && opts.SkipExisting {
			result.Status = ResultSkipped
			result.Project = &existing
			return nil
		}

		tagIDs, err := ensurePortfolioTags(tx, tagNames)
		if err != nil {
			return err
		}
		if found {
			project.ProjectID = existing.ProjectID
			project.CreatedAt = existing.CreatedAt
			err = tx.Model(&domain.PortfolioProject{}).Where("project_id = ?", existing.ProjectID).
				Updates(map[string]interface{}{
					"name":              project.Name,
					"repo_url":          project.RepoURL,
					"description_short": project.DescriptionShort,
					"description_long":  project.DescriptionLong,
					"website_published": project.WebsitePublished,
					"publish_from":      project.PublishFrom,
					"publish_to":        project.PublishTo,
				}).Error
			result.Status = ResultUpdated
		} else {
			err = tx.Omit(clause.Associations).Create(&project).Error
			result.Status = ResultCreated
		}
		if err != nil {
			return fmt.Errorf("Failed to save project: %v", err)
		}
		if err := replaceProjectTags(tx, project.ProjectID, tagIDs); err != nil {
			return err
		}
		return tx.Preload("Tags").Where("project_id = ?", project.ProjectID).First(&project).Error
	})
	if err != nil {
		return nil, err
	}
	if result.Project == nil {
		result.Project = &project
	}
	return result, nil
}

// ensurePortfolioTags finds or creates a tag per name (matched by slug) and returns their ids in order.
func ensurePortfolioTags(tx *gorm.DB, names []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(names))
	seen := map[uuid.UUID]bool{}
	for _, name := range names {
		slug := Slugify(name)
		if slug == "" {
			continue
		}
		var tag domain.PortfolioTag
		err := tx.Where("slug = ?", slug).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = domain.PortfolioTag{Name: name, Slug: slug}
			err = tx.Create(&tag).Error
		}
		if err != nil {
			return nil, fmt.Errorf("Failed to save tag %q: %v", name, err)
		}
		if !seen[tag.TagID] {
			seen[tag.TagID] = true
			ids = append(ids, tag.TagID)
		}
	}
	return ids, nil
}

func replaceProjectTags(tx *gorm.DB, projectID uuid.UUID, tagIDs []uuid.UUID) error {
	if err := tx.Exec("DELETE FROM portfolio_project_tag_rel WHERE project_id = ?", projectID).Error; err != nil {
		return err
	}
	for _, id := range tagIDs {
		if err := tx.Table("portfolio_project_tag_rel").Create(map[string]interface{}{
			"project_id": projectID,
			"tag_id":     id,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ListPublished returns live projects, optionally filtered by tag slug,
// ordered by publish_from desc then name.
func (s *Service) ListPublished(ctx context.Context, tagSlug string) ([]domain.PortfolioProject, error) {
	q := s.live(s.DB.WithContext(ctx)).Preload("Tags")
	if tagSlug != "" {
		q = q.Where(`project_id IN (SELECT r.project_id FROM portfolio_project_tag_rel r
			JOIN "PortfolioTags" t ON t.tag_id = r.tag_id WHERE t.slug = ?)`, tagSlug)
	}
	var out []domain.PortfolioProject
	if err := q.Order("publish_from DESC").Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FavoriteSlug marks the projects featured on the portfolio page.
const FavoriteSlug = "favorite"

const favoritesLimit = 12

// ListFavorites returns up to 12 live projects tagged favorite, by name. Without a favorite
// tag the first live projects by name are featured instead.
func (s *Service) ListFavorites(ctx context.Context) ([]domain.PortfolioProject, error) {
	db := s.DB.WithContext(ctx)
	var fav domain.PortfolioTag
	err := db.Where("slug = ?", FavoriteSlug).First(&fav).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("LOWER(name) LIKE ?", "%"+FavoriteSlug+"%").First(&fav).Error
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	q := s.live(db).Preload("Tags")
	if fav.TagID != uuid.Nil {
		q = q.Where("project_id IN (SELECT project_id FROM portfolio_project_tag_rel WHERE tag_id = ?)", fav.TagID)
	}
	var out []domain.PortfolioProject
	if err := q.Order("name ASC").Limit(favoritesLimit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetPublished returns a live project; anything else is not found.
func (s *Service) GetPublished(ctx context.Context, id uuid.UUID) (*domain.PortfolioProject, error) {
	var p domain.PortfolioProject
	err := s.live(s.DB.WithContext(ctx)).Preload("Tags").Where("project_id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListTags returns every portfolio tag by name.
func (s *Service) ListTags(ctx context.Context) ([]domain.PortfolioTag, error) {
	var tags []domain.PortfolioTag
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

// SetTagColor changes a tag's palette index.
func (s *Service) SetTagColor(ctx context.Context, actor domain.Actor, id uuid.UUID, color int) error {
	if !actor.Can(constants.ImportPortfolio) {
		return apperror.ErrForbidden
	}
	if color < 0 || color > 9 {
		return ErrInvalidColor
	}
	res := s.DB.WithContext(ctx).Model(&domain.PortfolioTag{}).Where("tag_id = ?", id).Update("color", color)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Tag not found")
	}
	return nil
}

func (s *Service) live(q *gorm.DB) *gorm.DB {
	now := s.now()
	return q.Model(&domain.PortfolioProject{}).
		Where("website_published = ?", true).
		Where("(publish_from IS NULL OR publish_from <= ?)", now).
		Where("(publish_to IS NULL OR publish_to >= ?)", now)
}
