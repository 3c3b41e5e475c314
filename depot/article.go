package depot

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"errors"
	"time"

	"github.com/freight-pulse/freight-pulse/pkg/errlvl"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultImportance = 1

// NewsArticle is one ingested news item. Tags, Importance and Notes can be
// edited from the dashboard; once a user has touched them, re-ingestion keeps
// its hands off (see mergeUpdates).
type NewsArticle struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Hash        string    `gorm:"size:32;uniqueIndex;not null" json:"hash"` // MD5 of URL + title
	Source      string    `gorm:"size:64;index" json:"source"`
	Title       string    `gorm:"size:512;not null" json:"title"`
	URL         string    `gorm:"size:512;uniqueIndex;not null" json:"url"`
	PublishedAt time.Time `gorm:"index;not null" json:"published_at"`
	Summary     string    `gorm:"size:1024" json:"summary"`
	FullContent string    `gorm:"type:text" json:"full_content"`
	Tags        string    `gorm:"size:256" json:"tags"`        // comma-separated: "capacity,rates,diesel"
	Importance  int       `gorm:"default:1" json:"importance"` // 1-5, default 1 until somebody rates it
	Notes       string    `gorm:"type:text" json:"notes"`      // user annotations, never auto-written
	Read        bool      `gorm:"default:false" json:"read"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// GenerateHash derives the content-addressed identity of the article.
func (a *NewsArticle) GenerateHash() {
	h := md5.Sum([]byte(a.URL + a.Title)) //nolint:gosec
	a.Hash = hex.EncodeToString(h[:])
}

func (a *NewsArticle) Validate() error {
	if a.Title == "" {
		return newErrorLvl(errlvl.INFO, errTitleEmpty, nil)
	}
	if a.URL == "" {
		return newErrorLvl(errlvl.INFO, errURLEmpty, nil)
	}
	if len(a.URL) > 512 {
		return newErrorLvl(errlvl.INFO, errURLTooLong, nil)
	}
	if a.Importance < 1 || a.Importance > 5 {
		return newErrorLvl(errlvl.INFO, errImportanceRange, nil)
	}
	return nil
}

func (a *NewsArticle) BeforeCreate(*gorm.DB) error {
	a.ID = uuid.New()

	if a.Hash == "" {
		a.GenerateHash()
	}
	if a.Importance == 0 {
		a.Importance = defaultImportance
	}
	// Cut by runes, not bytes, so a multibyte character is never split.
	if r := []rune(a.Summary); len(r) > 1024 {
		a.Summary = string(r[:1024])
	}

	if err := a.Validate(); err != nil {
		return newErrorLvl(errlvl.INFO, errArticleValidation, err)
	}
	return nil
}

// mergeUpdates computes the column updates applied when an incoming article
// matches an existing row. Auto-extracted fields are refreshed; user-owned
// fields are only filled while still at their defaults. Notes and the read
// flag belong to the user entirely and are never written here.
func mergeUpdates(existing, incoming *NewsArticle) map[string]any {
	updates := map[string]any{
		"summary":      incoming.Summary,
		"full_content": incoming.FullContent,
	}
	if existing.Tags == "" && incoming.Tags != "" {
		updates["tags"] = incoming.Tags
	}
	if existing.Importance == defaultImportance && incoming.Importance != existing.Importance {
		updates["importance"] = incoming.Importance
	}
	return updates
}

type ArticlesDB struct {
	Conn *gorm.DB
}

// Upsert reconciles a batch of freshly parsed articles against the store,
// keyed by content hash. Safe to re-run with the same input.
func (db *ArticlesDB) Upsert(ctx context.Context, articles []*NewsArticle) (created, updated int, err error) {
	for _, incoming := range articles {
		if incoming.Hash == "" {
			incoming.GenerateHash()
		}

		var existing NewsArticle
		res := db.Conn.WithContext(ctx).Where("hash = ?", incoming.Hash).Take(&existing)
		switch {
		case res.Error == nil:
			updates := mergeUpdates(&existing, incoming)
			if err := db.Conn.WithContext(ctx).Model(&NewsArticle{}).
				Where("hash = ?", incoming.Hash).
				Updates(updates).Error; err != nil {
				return created, updated, newError(errArticleUpsert, err)
			}
			updated++
		case errors.Is(res.Error, gorm.ErrRecordNotFound):
			if err := db.Conn.WithContext(ctx).Create(incoming).Error; err != nil {
				return created, updated, newError(errArticleUpsert, err)
			}
			created++
		default:
			return created, updated, newError(errArticleUpsert, res.Error)
		}
	}
	return created, updated, nil
}

// FindAllByHashes returns the stored articles matching the given hashes.
func (db *ArticlesDB) FindAllByHashes(ctx context.Context, hashes []string) ([]*NewsArticle, error) {
	var out []*NewsArticle
	res := db.Conn.WithContext(ctx).Where("hash IN ?", hashes).Find(&out)
	if res.Error != nil {
		return nil, newError(errArticleUpsert, res.Error)
	}
	return out, nil
}
