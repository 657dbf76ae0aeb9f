package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/echonow/echonow_server/internal/model"
	"github.com/echonow/echonow_server/internal/model/dto"
	"github.com/echonow/echonow_server/internal/pkg/pubsub"
	"github.com/echonow/echonow_server/internal/policy"
	"github.com/echonow/echonow_server/internal/repository"
	"github.com/echonow/echonow_server/internal/testutil"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []*pubsub.ModerationEvent
	err    error
}

func (f *fakeNotifier) PublishModeration(_ context.Context, ev *pubsub.ModerationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func setupArticleService(t *testing.T) (*ArticleService, *gorm.DB, *fakeNotifier) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	notifier := &fakeNotifier{}
	svc := NewArticleService(repository.NewArticleRepository(db), repository.NewUserRepository(db), notifier, nil)
	return svc, db, notifier
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestArticleService_Create_QuotaForNonPremium(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("a@x.com"))

	req := &dto.CreateArticleRequest{Title: "first", AuthorEmail: "a@x.com"}
	resp, err := svc.Create("a@x.com", req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.InsertedID)

	_, err = svc.Create("a@x.com", req)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestArticleService_Create_PremiumAuthorExempt(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("p@x.com"), testutil.WithPremiumUntil(time.Now().Add(48*time.Hour)))

	for i := 0; i < 3; i++ {
		_, err := svc.Create("p@x.com", &dto.CreateArticleRequest{Title: "post"})
		require.NoError(t, err)
	}
}

func TestArticleService_Create_ExpiredPremiumIsNotExempt(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("e@x.com"), testutil.WithPremiumUntil(time.Now().Add(-time.Hour)))

	_, err := svc.Create("e@x.com", &dto.CreateArticleRequest{Title: "one"})
	require.NoError(t, err)
	_, err = svc.Create("e@x.com", &dto.CreateArticleRequest{Title: "two"})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestArticleService_Create_Defaults(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("a@x.com"), testutil.WithName("Alice"))

	resp, err := svc.Create("a@x.com", &dto.CreateArticleRequest{Title: "  hi  ", Tags: []string{"go", " go ", ""}})
	require.NoError(t, err)

	var a model.Article
	require.NoError(t, db.First(&a, "id = ?", resp.InsertedID).Error)
	assert.Equal(t, "hi", a.Title)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Nil(t, a.DeclineReason)
	assert.False(t, a.IsPremium)
	assert.Zero(t, a.ViewCount)
	assert.Equal(t, "a@x.com", a.AuthorEmail)
	assert.Equal(t, "Alice", a.AuthorName)
	assert.Equal(t, model.StringArray{"go"}, a.Tags)
	assert.False(t, a.PostedAt.IsZero())
}

func TestArticleService_Create_Validation(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("a@x.com"))

	_, err := svc.Create("a@x.com", &dto.CreateArticleRequest{Title: "   "})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Create("a@x.com", &dto.CreateArticleRequest{Title: "t", PostedAt: strPtr("yesterday")})
	assert.ErrorIs(t, err, ErrInvalidPostedAt)

	_, err = svc.Create("a@x.com", &dto.CreateArticleRequest{Title: "t", AuthorEmail: "other@x.com"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestArticleService_Create_AdminForOtherAuthor(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("admin@x.com"), testutil.WithRole(model.RoleAdmin))

	_, err := svc.Create("admin@x.com", &dto.CreateArticleRequest{Title: "t", AuthorEmail: "Someone@X.com"})
	require.NoError(t, err)

	var a model.Article
	require.NoError(t, db.First(&a).Error)
	assert.Equal(t, "someone@x.com", a.AuthorEmail)
}

func TestArticleService_Get_PremiumGate(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	now := time.Now()
	testutil.TestUser(t, db, testutil.WithEmail("free@x.com"))
	testutil.TestUser(t, db, testutil.WithEmail("stale@x.com"), testutil.WithPremiumUntil(now.Add(-time.Minute)))
	testutil.TestUser(t, db, testutil.WithEmail("paid@x.com"), testutil.WithPremiumUntil(now.Add(time.Hour)))
	testutil.TestUser(t, db, testutil.WithEmail("admin@x.com"), testutil.WithRole(model.RoleAdmin))

	premium := testutil.TestArticle(t, db, "author@x.com", testutil.WithStatus(model.StatusApproved), testutil.WithArticlePremium())
	plain := testutil.TestArticle(t, db, "author@x.com", testutil.WithStatus(model.StatusApproved))

	_, err := svc.Get("", plain.ID)
	assert.NoError(t, err)

	tests := []struct {
		name   string
		viewer string
		want   error
	}{
		{"匿名", "", ErrPremiumLoginRequired},
		{"普通用户", "free@x.com", ErrPremiumRequired},
		{"存储值未修正的过期会员", "stale@x.com", ErrPremiumRequired},
		{"无资料的登录用户", "ghost@x.com", ErrPremiumRequired},
		{"有效会员", "paid@x.com", nil},
		{"管理员", "admin@x.com", nil},
		{"作者本人", "author@x.com", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(tt.viewer, premium.ID)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, premium.ID, got.ID)
		})
	}

	_, err = svc.Get("paid@x.com", "missing")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestArticleService_IncrementViews_Concurrent(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	a := testutil.TestArticle(t, db, "a@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementViews(a.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var got model.Article
	require.NoError(t, db.First(&got, "id = ?", a.ID).Error)
	assert.Equal(t, int64(3), got.ViewCount)

	_, err := svc.IncrementViews("missing")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestArticleService_Update_Moderation(t *testing.T) {
	svc, db, notifier := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("admin@x.com"), testutil.WithRole(model.RoleAdmin))
	ctx := context.Background()

	t.Run("通过后可读取", func(t *testing.T) {
		a := testutil.TestArticle(t, db, "a@x.com")
		_, err := svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{Status: strPtr(model.StatusApproved)})
		require.NoError(t, err)

		got, err := svc.Get("", a.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, got.Status)
	})

	t.Run("空原因拒绝退回待审", func(t *testing.T) {
		a := testutil.TestArticle(t, db, "a@x.com")
		got, err := svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{
			Status:        strPtr(model.StatusDeclined),
			DeclineReason: strPtr("  "),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, got.Status)
		assert.Nil(t, got.DeclineReason)
	})

	t.Run("仅传原因即拒绝", func(t *testing.T) {
		a := testutil.TestArticle(t, db, "a@x.com")
		got, err := svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{DeclineReason: strPtr("spam")})
		require.NoError(t, err)
		assert.Equal(t, model.StatusDeclined, got.Status)
		require.NotNil(t, got.DeclineReason)
		assert.Equal(t, "spam", *got.DeclineReason)
	})

	t.Run("重新通过清除原因", func(t *testing.T) {
		a := testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusDeclined), testutil.WithDeclineReason("bad"))
		got, err := svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{Status: strPtr(model.StatusApproved)})
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, got.Status)
		assert.Nil(t, got.DeclineReason)
	})

	t.Run("已通过不能退回", func(t *testing.T) {
		a := testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusApproved))
		_, err := svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{Status: strPtr(model.StatusPending)})
		assert.ErrorIs(t, err, policy.ErrInvalidTransition)
		_, err = svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{DeclineReason: strPtr("late")})
		assert.ErrorIs(t, err, policy.ErrInvalidTransition)
	})

	t.Run("已通过可设为会员", func(t *testing.T) {
		a := testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusApproved))
		got, err := svc.Update(ctx, "admin@x.com", a.ID, &dto.UpdateArticleRequest{IsPremium: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, got.IsPremium)
		assert.Equal(t, model.StatusApproved, got.Status)
	})

	assert.NotEmpty(t, notifier.events)
	for _, ev := range notifier.events {
		assert.Equal(t, "a@x.com", ev.AuthorEmail)
		if ev.DeclineReason != nil {
			assert.Equal(t, model.StatusDeclined, ev.Status)
		}
	}
}

func TestArticleService_Update_Permissions(t *testing.T) {
	svc, db, notifier := setupArticleService(t)
	ctx := context.Background()
	a := testutil.TestArticle(t, db, "owner@x.com")

	got, err := svc.Update(ctx, "owner@x.com", a.ID, &dto.UpdateArticleRequest{Title: strPtr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	_, err = svc.Update(ctx, "owner@x.com", a.ID, &dto.UpdateArticleRequest{Status: strPtr(model.StatusApproved)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "owner@x.com", a.ID, &dto.UpdateArticleRequest{IsPremium: boolPtr(true)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "stranger@x.com", a.ID, &dto.UpdateArticleRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "owner@x.com", "missing", &dto.UpdateArticleRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrArticleNotFound)

	assert.Empty(t, notifier.events, "content edits do not notify")
}

func TestArticleService_Update_NotifyFailureIgnored(t *testing.T) {
	svc, db, notifier := setupArticleService(t)
	notifier.err = errors.New("redis down")
	testutil.TestUser(t, db, testutil.WithEmail("admin@x.com"), testutil.WithRole(model.RoleAdmin))
	a := testutil.TestArticle(t, db, "a@x.com")

	got, err := svc.Update(context.Background(), "admin@x.com", a.ID, &dto.UpdateArticleRequest{Status: strPtr(model.StatusApproved)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.Len(t, notifier.events, 1)
}

func TestArticleService_Delete(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestUser(t, db, testutil.WithEmail("admin@x.com"), testutil.WithRole(model.RoleAdmin))
	mine := testutil.TestArticle(t, db, "owner@x.com")
	other := testutil.TestArticle(t, db, "owner@x.com")

	assert.ErrorIs(t, svc.Delete("stranger@x.com", mine.ID), ErrForbidden)
	require.NoError(t, svc.Delete("owner@x.com", mine.ID))
	require.NoError(t, svc.Delete("admin@x.com", other.ID))
	assert.ErrorIs(t, svc.Delete("admin@x.com", other.ID), ErrArticleNotFound)
}

func TestArticleService_Listings(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	approved := testutil.WithStatus(model.StatusApproved)

	for i := 0; i < 5; i++ {
		testutil.TestArticle(t, db, "a@x.com", approved, testutil.WithType(model.TypeTrending))
	}
	testutil.TestArticle(t, db, "a@x.com", approved, testutil.WithType(model.TypeHot))
	testutil.TestArticle(t, db, "a@x.com", approved, testutil.WithTags("fashion"), testutil.WithArticlePremium())
	testutil.TestArticle(t, db, "a@x.com", testutil.WithType(model.TypeTrending))

	trending, err := svc.Trending("")
	require.NoError(t, err)
	assert.Len(t, trending, 4)

	special, err := svc.Special("")
	require.NoError(t, err)
	assert.Len(t, special, 6)

	banner, err := svc.BannerTrending("")
	require.NoError(t, err)
	assert.Len(t, banner, 5)

	fashion, err := svc.TopFashion("")
	require.NoError(t, err)
	assert.Len(t, fashion, 1)

	testutil.TestUser(t, db, testutil.WithEmail("member@x.com"), testutil.WithPremiumUntil(time.Now().Add(time.Hour)))
	premium, total, err := svc.ListPremium("member@x.com", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, premium, 1)

	items, total, err := svc.List("", &dto.ListArticlesQuery{Tags: "fashion, none", Page: 1, Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	_, total, err = svc.List("", &dto.ListArticlesQuery{Page: 2, Limit: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
}

func TestArticleService_ListPremium_RequiresActiveMembership(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	now := time.Now()
	testutil.TestUser(t, db, testutil.WithEmail("reader@x.com"))
	testutil.TestUser(t, db, testutil.WithEmail("lapsed@x.com"), testutil.WithPremiumUntil(now.Add(-time.Hour)))
	testutil.TestUser(t, db, testutil.WithEmail("member@x.com"), testutil.WithPremiumUntil(now.Add(time.Hour)))
	testutil.TestUser(t, db, testutil.WithEmail("admin@x.com"), testutil.WithRole(model.RoleAdmin))
	testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusApproved), testutil.WithArticlePremium())

	_, _, err := svc.ListPremium("", 1, 10)
	assert.ErrorIs(t, err, ErrPremiumLoginRequired)

	for _, email := range []string{"reader@x.com", "lapsed@x.com", "ghost@x.com"} {
		items, _, err := svc.ListPremium(email, 1, 10)
		assert.ErrorIs(t, err, ErrPremiumRequired, email)
		assert.Nil(t, items)
	}

	for _, email := range []string{"member@x.com", "admin@x.com"} {
		items, total, err := svc.ListPremium(email, 1, 10)
		require.NoError(t, err, email)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "body", items[0].Description)
	}
}

func TestArticleService_PublicListsRedactPremiumBody(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	now := time.Now()
	testutil.TestUser(t, db, testutil.WithEmail("reader@x.com"))
	testutil.TestUser(t, db, testutil.WithEmail("lapsed@x.com"), testutil.WithPremiumUntil(now.Add(-time.Hour)))
	testutil.TestUser(t, db, testutil.WithEmail("member@x.com"), testutil.WithPremiumUntil(now.Add(time.Hour)))
	approved := testutil.WithStatus(model.StatusApproved)
	locked := testutil.TestArticle(t, db, "author@x.com", approved, testutil.WithArticlePremium(),
		testutil.WithType(model.TypeTrending), testutil.WithTags("fashion"))
	testutil.TestArticle(t, db, "free@x.com", approved, testutil.WithType(model.TypeTrending), testutil.WithTags("fashion"))

	bodies := func(items []*model.Article) map[string]string {
		out := make(map[string]string, len(items))
		for _, a := range items {
			out[a.ID] = a.Description
		}
		return out
	}
	listings := map[string]func(viewer string) ([]*model.Article, error){
		"list": func(viewer string) ([]*model.Article, error) {
			items, _, err := svc.List(viewer, &dto.ListArticlesQuery{Page: 1, Limit: 10})
			return items, err
		},
		"trending":   svc.Trending,
		"special":    svc.Special,
		"topFashion": svc.TopFashion,
		"banner":     svc.BannerTrending,
	}

	tests := []struct {
		viewer string
		want   string
	}{
		{"", ""},
		{"reader@x.com", ""},
		{"lapsed@x.com", ""},
		{"member@x.com", "body"},
		{"author@x.com", "body"},
	}
	for name, fetch := range listings {
		for _, tt := range tests {
			items, err := fetch(tt.viewer)
			require.NoError(t, err, name)
			got := bodies(items)
			require.Len(t, got, 2, name)
			assert.Equal(t, tt.want, got[locked.ID], "%s viewer=%q", name, tt.viewer)
			for id, body := range got {
				if id != locked.ID {
					assert.Equal(t, "body", body, "%s free article untouched", name)
				}
			}
		}
	}
}

func TestArticleService_ListForAdmin(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusDeclined), testutil.WithDeclineReason("no"))
	testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusApproved))
	testutil.TestArticle(t, db, "a@x.com")

	resp, err := svc.ListForAdmin()
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.TotalApproved)

	articles := resp.Articles.([]*model.Article)
	require.Len(t, articles, 3)
	assert.Equal(t, model.StatusPending, articles[0].Status)
	assert.Equal(t, model.StatusApproved, articles[1].Status)
	assert.Equal(t, model.StatusDeclined, articles[2].Status)
}

func TestArticleService_ListByAuthor(t *testing.T) {
	svc, db, _ := setupArticleService(t)
	testutil.TestArticle(t, db, "a@x.com")
	testutil.TestArticle(t, db, "a@x.com", testutil.WithStatus(model.StatusDeclined), testutil.WithDeclineReason("x"))
	testutil.TestArticle(t, db, "b@x.com")

	items, err := svc.ListByAuthor("a@x.com", "A@x.com")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.ListByAuthor("b@x.com", "a@x.com")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListByAuthor("a@x.com", "")
	assert.ErrorIs(t, err, ErrEmailRequired)
}
