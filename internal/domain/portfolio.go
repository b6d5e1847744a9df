package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PortfolioProject is a website showcase entry, typically imported from a GitHub repository.
type PortfolioProject struct {
	ProjectID        uuid.UUID      `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	Name             string         `gorm:"column:name;not null" json:"name"`
	RepoURL          string         `gorm:"column:repo_url" json:"repo_url"`
	GithubFullName   *string        `gorm:"column:github_full_name;uniqueIndex" json:"github_full_name"`
	DescriptionShort string         `gorm:"column:description_short" json:"description_short"`
	DescriptionLong  string         `gorm:"column:description_long" json:"description_long"`
	WebsitePublished bool           `gorm:"column:website_published;not null" json:"website_published"`
	PublishFrom      *time.Time     `gorm:"column:publish_from" json:"publish_from"`
	PublishTo        *time.Time     `gorm:"column:publish_to" json:"publish_to"`
	Tags             []PortfolioTag `gorm:"many2many:portfolio_project_tag_rel;joinForeignKey:ProjectID;joinReferences:TagID" json:"tags,omitempty"`
	CreatedAt        time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (PortfolioProject) TableName() string {
	return "PortfolioProjects"
}

func (p *PortfolioProject) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == uuid.Nil {
		p.ProjectID = uuid.New()
	}
	return nil
}

// VisibleAt reports whether the project is published and inside its publish window at t.
func (p *PortfolioProject) VisibleAt(t time.Time) bool {
	if !p.WebsitePublished {
		return false
	}
	if p.PublishFrom != nil && t.Before(*p.PublishFrom) {
		return false
	}
	if p.PublishTo != nil && t.After(*p.PublishTo) {
		return false
	}
	return true
}

// PortfolioTag labels portfolio projects (topics, languages).
type PortfolioTag struct {
	TagID     uuid.UUID `gorm:"column:tag_id;type:uuid;primaryKey" json:"tag_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Color     int       `gorm:"column:color;not null" json:"color"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (PortfolioTag) TableName() string {
	return "PortfolioTags"
}

func (t *PortfolioTag) BeforeCreate(tx *gorm.DB) error {
	if t.TagID == uuid.Nil {
		t.TagID = uuid.New()
	}
	return nil
}
